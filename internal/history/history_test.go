package history

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndTotals(t *testing.T) {
	s := openTestStore(t)

	records := []Record{
		{PromptName: "Greeting", Chars: 6, SessionType: "x11", Outcome: OutcomeSuccess},
		{PromptName: "Greeting", Chars: 6, SessionType: "x11", Outcome: OutcomeSuccess},
		{PromptName: "Sign-off", Chars: 15, SessionType: "x11", Outcome: OutcomeToolFailure},
	}
	for _, r := range records {
		if _, err := s.RecordPaste(r); err != nil {
			t.Fatalf("RecordPaste: %v", err)
		}
	}

	totals, err := s.Totals()
	if err != nil {
		t.Fatalf("Totals: %v", err)
	}
	// Pastes and Chars describe the same population: successful pastes.
	// Failed attempts show up only under Failures.
	if totals.Pastes != 2 {
		t.Errorf("expected 2 successful pastes, got %d", totals.Pastes)
	}
	if totals.Chars != 12 {
		t.Errorf("expected 12 successful chars, got %d", totals.Chars)
	}
	if totals.Failures != 1 {
		t.Errorf("expected 1 failure, got %d", totals.Failures)
	}
	if totals.FirstUsed.IsZero() || totals.LastUsed.IsZero() {
		t.Error("expected first/last timestamps to be set")
	}
}

func TestTotalsEmpty(t *testing.T) {
	s := openTestStore(t)

	totals, err := s.Totals()
	if err != nil {
		t.Fatalf("Totals: %v", err)
	}
	if totals.Pastes != 0 || totals.Chars != 0 || totals.Failures != 0 {
		t.Errorf("expected zero totals, got %+v", totals)
	}
	if !totals.FirstUsed.IsZero() {
		t.Error("expected zero FirstUsed on empty store")
	}
}

func TestRecentDays(t *testing.T) {
	s := openTestStore(t)

	now := time.Now()
	for _, r := range []Record{
		{Timestamp: now, PromptName: "A", Chars: 5, SessionType: "x11", Outcome: OutcomeSuccess},
		{Timestamp: now.Add(-time.Hour), PromptName: "B", Chars: 7, SessionType: "x11", Outcome: OutcomeSuccess},
		{Timestamp: now.AddDate(0, 0, -30), PromptName: "C", Chars: 9, SessionType: "x11", Outcome: OutcomeSuccess},
	} {
		if _, err := s.RecordPaste(r); err != nil {
			t.Fatalf("RecordPaste: %v", err)
		}
	}

	days, err := s.RecentDays(7)
	if err != nil {
		t.Fatalf("RecentDays: %v", err)
	}

	total := 0
	for _, d := range days {
		total += d.Pastes
	}
	if total != 2 {
		t.Errorf("expected 2 pastes within 7 days, got %d (%+v)", total, days)
	}
}

func TestTopPrompts(t *testing.T) {
	s := openTestStore(t)

	for i := 0; i < 3; i++ {
		if _, err := s.RecordPaste(Record{PromptName: "Favorite", Chars: 4, SessionType: "x11", Outcome: OutcomeSuccess}); err != nil {
			t.Fatalf("RecordPaste: %v", err)
		}
	}
	if _, err := s.RecordPaste(Record{PromptName: "Rare", Chars: 4, SessionType: "x11", Outcome: OutcomeSuccess}); err != nil {
		t.Fatalf("RecordPaste: %v", err)
	}
	// Failures don't count toward popularity.
	if _, err := s.RecordPaste(Record{PromptName: "Rare", Chars: 4, SessionType: "x11", Outcome: OutcomeToolFailure}); err != nil {
		t.Fatalf("RecordPaste: %v", err)
	}

	top, err := s.TopPrompts(10)
	if err != nil {
		t.Fatalf("TopPrompts: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("expected 2 prompts, got %d", len(top))
	}
	if top[0].PromptName != "Favorite" || top[0].Pastes != 3 {
		t.Errorf("unexpected leader: %+v", top[0])
	}
	if top[1].PromptName != "Rare" || top[1].Pastes != 1 {
		t.Errorf("unexpected runner-up: %+v", top[1])
	}
}

func TestClear(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.RecordPaste(Record{PromptName: "A", Chars: 1, SessionType: "x11", Outcome: OutcomeSuccess}); err != nil {
		t.Fatalf("RecordPaste: %v", err)
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	totals, err := s.Totals()
	if err != nil {
		t.Fatalf("Totals: %v", err)
	}
	if totals.Pastes != 0 {
		t.Errorf("expected empty store after Clear, got %d", totals.Pastes)
	}
}
