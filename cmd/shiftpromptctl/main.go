// shiftpromptctl is the control CLI for the shiftpromptd daemon.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"shiftprompt/internal/config"
	"shiftprompt/internal/ipc"
)

var socketPath = flag.String("socket", "", "path to daemon socket")

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(1)
	}

	cmd := flag.Arg(0)
	if cmd == "help" || cmd == "-h" || cmd == "--help" {
		usage()
		return
	}

	client := connect()
	defer client.Close()

	var err error

	switch cmd {
	case "status":
		err = cmdStatus(client)
	case "list":
		err = cmdList(client)
	case "paste":
		err = cmdPaste(client, flag.Args()[1:])
	case "show":
		err = client.ShowPicker()
	case "hide":
		err = client.HidePicker()
	case "add":
		err = cmdAdd(client, flag.Args()[1:])
	case "update":
		err = cmdUpdate(client, flag.Args()[1:])
	case "delete":
		err = cmdDelete(client, flag.Args()[1:])
	case "stats":
		err = cmdStats(client)
	case "reload":
		err = client.ReloadConfig()
	case "shutdown":
		err = client.Shutdown()
	case "ping":
		if err = client.Ping(); err == nil {
			fmt.Println("daemon is running")
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "shiftpromptctl: %v\n", err)
		os.Exit(1)
	}
}

func connect() *ipc.Client {
	path := *socketPath
	if path == "" {
		path = config.DefaultSocketPath()
	}
	client := ipc.NewClient(path)
	if err := client.Connect(); err != nil {
		if errors.Is(err, ipc.ErrDaemonNotRunning) {
			fmt.Fprintln(os.Stderr, "shiftpromptctl: daemon is not running (start shiftpromptd first)")
		} else {
			fmt.Fprintf(os.Stderr, "shiftpromptctl: %v\n", err)
		}
		os.Exit(1)
	}
	return client
}

func usage() {
	fmt.Fprintln(os.Stderr, `shiftpromptctl - Control utility for shiftpromptd

Usage: shiftpromptctl [options] <command> [args]

Commands:
  status                  Show daemon status
  list                    List prompts
  paste <index>           Paste the prompt at index into the focused window
  show                    Open the prompt picker
  hide                    Dismiss the prompt picker
  add <name> <content>    Add a prompt
  update <index> <name> <content>
                          Replace the prompt at index
  delete <index>          Delete the prompt at index
  stats                   Show paste usage statistics
  reload                  Reload configuration and prompts
  shutdown                Stop the daemon
  ping                    Check that the daemon is responsive
  help                    Show this help message

Options:
  -socket <path>  Daemon socket path (default: $XDG_RUNTIME_DIR/shiftprompt.sock)`)
}

func cmdStatus(client *ipc.Client) error {
	st, err := client.Status()
	if err != nil {
		return err
	}

	fmt.Printf("shiftpromptd %s\n", st.Version)
	fmt.Printf("  uptime:       %s (since %s)\n", st.Uptime, st.StartedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("  session:      %s\n", st.SessionType)
	fmt.Printf("  inject:       %s\n", yesNo(st.CanInject))
	if st.CopyTool != "" {
		fmt.Printf("  copy tool:    %s\n", st.CopyTool)
	}
	if st.PasteTool != "" {
		fmt.Printf("  paste tool:   %s\n", st.PasteTool)
	}
	fmt.Printf("  hotkey:       %s\n", activeInactive(st.HotkeyActive))
	fmt.Printf("  picker:       %s\n", openClosed(st.PickerOpen))
	fmt.Printf("  prompts:      %d (%s)\n", st.PromptCount, st.PromptsPath)
	fmt.Printf("  history:      %s\n", yesNo(st.HistoryActive))
	for _, diag := range st.Diagnostics {
		fmt.Printf("  warning:      %s\n", diag)
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func activeInactive(b bool) string {
	if b {
		return "active"
	}
	return "inactive"
}

func openClosed(b bool) string {
	if b {
		return "open"
	}
	return "closed"
}

func cmdList(client *ipc.Client) error {
	list, err := client.ListPrompts()
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("no prompts")
		return nil
	}
	for _, p := range list {
		fmt.Printf("%3d  %-30s %s\n", p.Index, p.Name, preview(p.Content))
	}
	return nil
}

// preview flattens content to one short line for listing.
func preview(content string) string {
	s := strings.ReplaceAll(content, "\n", "\\n")
	const max = 60
	if len(s) > max {
		return s[:max-3] + "..."
	}
	return s
}

func cmdPaste(client *ipc.Client, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: shiftpromptctl paste <index>")
	}
	index, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid index %q", args[0])
	}
	return client.Paste(index)
}

func cmdAdd(client *ipc.Client, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: shiftpromptctl add <name> <content>")
	}
	return client.AddPrompt(args[0], args[1])
}

func cmdUpdate(client *ipc.Client, args []string) error {
	if len(args) != 3 {
		return errors.New("usage: shiftpromptctl update <index> <name> <content>")
	}
	index, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid index %q", args[0])
	}
	return client.UpdatePrompt(index, args[1], args[2])
}

func cmdDelete(client *ipc.Client, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: shiftpromptctl delete <index>")
	}
	index, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid index %q", args[0])
	}
	return client.DeletePrompt(index)
}

func cmdStats(client *ipc.Client) error {
	st, err := client.Stats(7, 5)
	if err != nil {
		return err
	}
	if !st.Enabled {
		fmt.Println("history is disabled")
		return nil
	}

	fmt.Printf("pastes:   %d (%d characters)\n", st.Pastes, st.Chars)
	fmt.Printf("failures: %d\n", st.Failures)
	if !st.FirstUsed.IsZero() {
		fmt.Printf("first:    %s\n", st.FirstUsed.Format("2006-01-02 15:04:05"))
		fmt.Printf("last:     %s\n", st.LastUsed.Format("2006-01-02 15:04:05"))
	}
	if len(st.RecentDays) > 0 {
		fmt.Println("\nrecent days:")
		for _, d := range st.RecentDays {
			fmt.Printf("  %s  %4d pastes  %6d chars\n", d.Day, d.Pastes, d.Chars)
		}
	}
	if len(st.TopPrompts) > 0 {
		fmt.Println("\ntop prompts:")
		for _, p := range st.TopPrompts {
			fmt.Printf("  %4d  %s\n", p.Pastes, p.Name)
		}
	}
	return nil
}
