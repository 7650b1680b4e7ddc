// shiftpromptd is the snippet-paste daemon. It watches for a double press of
// the Shift key, shows a prompt picker, and pastes the chosen snippet into
// the focused window via the session's clipboard and key-synthesis tools.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shiftprompt/internal/config"
	"shiftprompt/internal/history"
	"shiftprompt/internal/hotkey"
	"shiftprompt/internal/inject"
	"shiftprompt/internal/input"
	"shiftprompt/internal/ipc"
	"shiftprompt/internal/logging"
	"shiftprompt/internal/notify"
	"shiftprompt/internal/picker"
	"shiftprompt/internal/prompts"
	"shiftprompt/internal/session"
)

const version = "1.0.0"

var (
	configPath  = flag.String("config", "", "path to config file")
	logLevel    = flag.String("log-level", "", "override log level (debug, info, warn, error)")
	showVersion = flag.Bool("version", false, "print version and exit")
	probeOnly   = flag.Bool("probe", false, "print session capabilities and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("shiftpromptd %s\n", version)
		return
	}

	if *probeOnly {
		caps := session.Probe()
		ok, diag := caps.Available()
		fmt.Printf("session:    %s\n", caps.Type)
		fmt.Printf("copy tool:  %s\n", orNone(caps.CopyTool))
		fmt.Printf("read tool:  %s\n", orNone(caps.ReadTool))
		fmt.Printf("paste tool: %s\n", orNone(caps.PasteTool))
		fmt.Printf("inject:     %v (%s)\n", ok, diag)
		if ok, reason := input.NewListener().Available(); !ok {
			fmt.Printf("hotkey:     unavailable (%s)\n", reason)
		} else {
			fmt.Println("hotkey:     available")
		}
		return
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "shiftpromptd: %v\n", err)
		os.Exit(1)
	}
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func run() error {
	loader := config.NewLoader(*configPath)
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	defer loader.Close()
	cfg.ApplyEnvOverrides()

	logCfg := &logging.Config{
		AddSource: false,
	}
	if logCfg.Level, err = logging.ParseLevel(pick(*logLevel, cfg.Logging.Level)); err != nil {
		return err
	}
	if logCfg.Format, err = logging.ParseFormat(cfg.Logging.Format); err != nil {
		return err
	}
	logCfg.Output = cfg.Logging.Output
	logCfg.FilePath = cfg.Logging.Path
	log, err := logging.New(logCfg)
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	defer log.Close()
	logging.SetDefault(log)

	log.Info("starting shiftpromptd", "version", version, "config", loader.Path())

	// Refuse to start twice against the same socket.
	socketPath := cfg.IPC.SocketPath
	if probe := ipc.NewClient(socketPath); probe.Connect() == nil {
		err := probe.Ping()
		probe.Close()
		if err == nil {
			return fmt.Errorf("another daemon is already running on %s", socketPath)
		}
	}

	caps := session.Probe()
	applyToolOverrides(&caps, cfg)
	if ok, diag := caps.Available(); ok {
		log.Info("session probed", "type", caps.Type.String(), "detail", diag)
	} else {
		log.Warn("paste injection unavailable", "type", caps.Type.String(), "detail", diag)
	}

	notifier := notify.New(cfg.Notifications.Enabled, log)
	defer notifier.Close()

	store, err := prompts.Open(cfg.Prompts.Path)
	if err != nil {
		return fmt.Errorf("open prompts: %w", err)
	}
	log.Info("prompts loaded", "path", store.Path(), "count", len(store.List()))

	var promptWatcher *prompts.Watcher
	if cfg.Prompts.WatchExternalEdits {
		promptWatcher, err = prompts.Watch(store, func(werr error) {
			log.Warn("prompts reload failed", "error", werr)
			notifier.Warnf("Prompt file invalid", "%v", werr)
		})
		if err != nil {
			log.Warn("prompts watch unavailable", "error", err)
		} else {
			defer promptWatcher.Close()
		}
	}

	var hist *history.Store
	if cfg.History.Enabled {
		hist, err = history.Open(cfg.History.Path)
		if err != nil {
			log.Warn("history disabled", "error", err)
		} else {
			defer hist.Close()
		}
	}

	injector := inject.New(caps, inject.Options{
		Settle:           cfg.Inject.Settle(),
		ToolTimeout:      cfg.Inject.ToolTimeout(),
		RestoreClipboard: cfg.Inject.RestoreClipboard,
	}, log)

	chooser := picker.New(caps, picker.Config{
		Tool: cfg.Picker.Tool,
		Args: cfg.Picker.Args,
	}, log)
	if ok, reason := chooser.Available(); !ok {
		log.Warn("prompt picker unavailable", "reason", reason)
		notifier.Warnf("Prompt picker unavailable", "%s", reason)
	}

	policy, err := hotkey.ParsePolicy(cfg.Hotkey.Policy)
	if err != nil {
		return err
	}

	var recorder hotkey.Recorder
	if hist != nil {
		recorder = hist
	}
	ctrl := hotkey.NewController(caps, hotkey.Options{
		Threshold: cfg.Hotkey.Threshold(),
		Policy:    policy,
	}, input.NewListener(), chooser, injector, store, recorder, notifier, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctrl.Start(ctx)
	defer ctrl.Stop()

	shutdown := make(chan struct{}, 1)
	handler := &ipc.DaemonHandler{
		Version:   version,
		StartedAt: time.Now(),
		Caps:      caps,
		Ctrl:      ctrl,
		Store:     store,
		Reload: func() error {
			if _, lerr := loader.Reload(); lerr != nil {
				return lerr
			}
			return store.Reload()
		},
		Shutdown: func() {
			select {
			case shutdown <- struct{}{}:
			default:
			}
		},
		Log: log,
	}
	if hist != nil {
		handler.Stats = hist
	}

	server := ipc.NewServer(socketPath, handler, log)
	if err := server.Start(); err != nil {
		return fmt.Errorf("start ipc: %w", err)
	}
	defer server.Stop()

	// Hot-reload the tunable settings when the config file changes.
	loader.OnChange(func(next *config.Config) {
		next.ApplyEnvOverrides()
		if p, perr := hotkey.ParsePolicy(next.Hotkey.Policy); perr == nil {
			ctrl.SetPolicy(p)
		} else {
			log.Warn("config reload: bad policy", "error", perr)
		}
		ctrl.SetThreshold(next.Hotkey.Threshold())
		injector.SetOptions(inject.Options{
			Settle:           next.Inject.Settle(),
			ToolTimeout:      next.Inject.ToolTimeout(),
			RestoreClipboard: next.Inject.RestoreClipboard,
		})
		chooser.SetConfig(picker.Config{
			Tool: next.Picker.Tool,
			Args: next.Picker.Args,
		})
		notifier.SetEnabled(next.Notifications.Enabled)
		log.Info("configuration reloaded")
	})
	if err := loader.Watch(); err != nil {
		log.Warn("config watch unavailable", "error", err)
	}

	log.Info("shiftpromptd ready", "socket", socketPath)

	select {
	case <-ctx.Done():
		log.Info("signal received, shutting down")
	case <-shutdown:
		log.Info("shutdown requested over ipc")
	}
	return nil
}

func pick(override, base string) string {
	if override != "" {
		return override
	}
	return base
}

// applyToolOverrides replaces probed tool paths with configured ones.
func applyToolOverrides(caps *session.Capabilities, cfg *config.Config) {
	if cfg.Inject.CopyTool != "" {
		caps.CopyTool = cfg.Inject.CopyTool
	}
	if cfg.Inject.ReadTool != "" {
		caps.ReadTool = cfg.Inject.ReadTool
	}
	if cfg.Inject.PasteTool != "" {
		caps.PasteTool = cfg.Inject.PasteTool
	}
}
