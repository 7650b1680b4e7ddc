package picker

import (
	"errors"
	"testing"

	"shiftprompt/internal/prompts"
	"shiftprompt/internal/session"
)

func withTools(t *testing.T, tools map[string]string) {
	t.Helper()
	orig := lookPath
	t.Cleanup(func() { lookPath = orig })
	lookPath = func(name string) (string, error) {
		if path, ok := tools[name]; ok {
			return path, nil
		}
		return "", errors.New("executable file not found in $PATH")
	}
}

func TestResolveChooserX11PrefersRofi(t *testing.T) {
	withTools(t, map[string]string{
		"rofi":  "/usr/bin/rofi",
		"dmenu": "/usr/bin/dmenu",
	})

	argv, err := resolveChooser(session.X11, "", nil)
	if err != nil {
		t.Fatalf("resolveChooser: %v", err)
	}
	if argv[0] != "/usr/bin/rofi" {
		t.Errorf("expected rofi, got %s", argv[0])
	}
}

func TestResolveChooserX11FallsBackToDmenu(t *testing.T) {
	withTools(t, map[string]string{"dmenu": "/usr/bin/dmenu"})

	argv, err := resolveChooser(session.X11, "", nil)
	if err != nil {
		t.Fatalf("resolveChooser: %v", err)
	}
	if argv[0] != "/usr/bin/dmenu" {
		t.Errorf("expected dmenu fallback, got %s", argv[0])
	}
}

func TestResolveChooserWaylandPrefersWofi(t *testing.T) {
	withTools(t, map[string]string{
		"wofi": "/usr/bin/wofi",
		"rofi": "/usr/bin/rofi",
	})

	argv, err := resolveChooser(session.Wayland, "", nil)
	if err != nil {
		t.Fatalf("resolveChooser: %v", err)
	}
	if argv[0] != "/usr/bin/wofi" {
		t.Errorf("expected wofi on Wayland, got %s", argv[0])
	}
}

func TestResolveChooserNoneFound(t *testing.T) {
	withTools(t, nil)

	_, err := resolveChooser(session.X11, "", nil)
	if !errors.Is(err, ErrNoChooser) {
		t.Errorf("expected ErrNoChooser, got %v", err)
	}
}

func TestResolveChooserOverride(t *testing.T) {
	withTools(t, map[string]string{"bemenu": "/usr/local/bin/bemenu"})

	argv, err := resolveChooser(session.Wayland, "bemenu", []string{"-l", "10"})
	if err != nil {
		t.Fatalf("resolveChooser: %v", err)
	}
	if argv[0] != "/usr/local/bin/bemenu" {
		t.Errorf("expected override path, got %s", argv[0])
	}
	if len(argv) != 3 || argv[1] != "-l" || argv[2] != "10" {
		t.Errorf("expected override args appended, got %v", argv[1:])
	}
}

func TestResolveChooserOverrideMissing(t *testing.T) {
	withTools(t, nil)

	if _, err := resolveChooser(session.X11, "bemenu", nil); err == nil {
		t.Error("expected error for missing override tool")
	}
}

func TestMatchSelection(t *testing.T) {
	list := []prompts.Prompt{
		{Name: "Greeting", Content: "Hello!"},
		{Name: "Sign-off", Content: "Kind regards,\n"},
	}

	sel, ok := matchSelection("Sign-off\n", list)
	if !ok {
		t.Fatal("expected a match")
	}
	if sel.Index != 1 || sel.Prompt.Content != "Kind regards,\n" {
		t.Errorf("unexpected selection: %+v", sel)
	}
}

func TestMatchSelectionDuplicateNamesPickFirst(t *testing.T) {
	list := []prompts.Prompt{
		{Name: "Note", Content: "first"},
		{Name: "Note", Content: "second"},
	}

	sel, ok := matchSelection("Note\n", list)
	if !ok {
		t.Fatal("expected a match")
	}
	if sel.Index != 0 || sel.Prompt.Content != "first" {
		t.Errorf("duplicates must resolve to the first occurrence, got %+v", sel)
	}
}

func TestMatchSelectionEmptyOutput(t *testing.T) {
	list := []prompts.Prompt{{Name: "Greeting", Content: "Hello!"}}

	if _, ok := matchSelection("", list); ok {
		t.Error("empty output must not match")
	}
	if _, ok := matchSelection("\n", list); ok {
		t.Error("blank output must not match")
	}
}

func TestMatchSelectionUnknownLine(t *testing.T) {
	list := []prompts.Prompt{{Name: "Greeting", Content: "Hello!"}}

	if _, ok := matchSelection("Typed something else\n", list); ok {
		t.Error("unknown lines must not match")
	}
}
