// gridosc-supervisor runs one gridosc bridge as a child process.
//
// The bridge's stdout is read as its control channel: device info, port
// changes, readiness and disconnection are decoded and logged, and the
// child is restarted with backoff when it fails.
//
// Usage:
//
//	gridosc-supervisor [--config FILE] [--bridge PATH] -- [bridge args...]
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/nerrad567/gridosc/internal/infrastructure/config"
	"github.com/nerrad567/gridosc/internal/infrastructure/logging"
	"github.com/nerrad567/gridosc/internal/process"
)

// Version information - set at build time via ldflags
var version = "dev"

// bridgeUsageExit is the bridge's exit code for configuration errors.
const bridgeUsageExit = 2

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "gridosc-supervisor: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	configPath string
	bridge     string
	bridgeArgs []string
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := pflag.NewFlagSet("gridosc-supervisor", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVarP(&opts.configPath, "config", "c", "", "daemon configuration file (optional)")
	fs.StringVar(&opts.bridge, "bridge", "", "path to the gridosc binary (default: next to this executable, then $PATH)")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	opts.bridgeArgs = fs.Args()
	return opts, nil
}

// findBridge resolves the bridge binary.
func findBridge(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if self, err := os.Executable(); err == nil {
		sibling := filepath.Join(filepath.Dir(self), "gridosc")
		if info, err := os.Stat(sibling); err == nil && !info.IsDir() {
			return sibling, nil
		}
	}
	path, err := exec.LookPath("gridosc")
	if err != nil {
		return "", fmt.Errorf("locating gridosc: %w", err)
	}
	return path, nil
}

func run(ctx context.Context, args []string, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	var cfg *config.Config
	if opts.configPath != "" {
		cfg, err = config.Load(opts.configPath)
	} else {
		cfg, err = config.LoadOptional(filepath.Join(config.DefaultDir(), "gridosc.yaml"))
	}
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logging.New(cfg.Logging, version).With("component", "supervisor")

	bridge, err := findBridge(opts.bridge)
	if err != nil {
		return err
	}

	tracker := newTracker()
	mgr := process.NewManager(managerConfig(cfg.Supervisor, bridge, opts.bridgeArgs, tracker, log, stderr))
	mgr.SetLogger(log)

	if err := mgr.Start(ctx); err != nil {
		return fmt.Errorf("starting bridge: %w", err)
	}

	if interval := cfg.Supervisor.StatusInterval; interval > 0 {
		go reportStatus(mgr.Done(), interval, mgr, tracker, log)
	}

	select {
	case <-ctx.Done():
		log.Info("shutting down")
		if err := mgr.Stop(); err != nil {
			return fmt.Errorf("stopping bridge: %w", err)
		}
	case <-mgr.Done():
	}

	stats := mgr.Stats()
	snap := tracker.Snapshot()
	log.Info("supervisor stopped",
		"serial", snap.Serial,
		"sessions", snap.Sessions,
		"status", stats.Status,
		"restarts", stats.RestartCount,
		"last_error", stats.LastError,
	)

	if err := mgr.LastError(); err != nil && ctx.Err() == nil {
		var exitErr *process.ExitError
		if errors.As(err, &exitErr) && !exitErr.IsRecoverable() {
			return fmt.Errorf("bridge rejected its configuration: %w", err)
		}
		return fmt.Errorf("bridge failed: %w", err)
	}
	return nil
}

// reportStatus logs the bridge's process stats every interval until done closes.
func reportStatus(done <-chan struct{}, interval time.Duration, mgr *process.Manager, tracker *tracker, log *logging.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if !mgr.IsRunning() {
				continue
			}
			stats := mgr.Stats()
			snap := tracker.Snapshot()
			log.Info("bridge status",
				"pid", stats.PID,
				"uptime", stats.Uptime.Round(time.Second),
				"restarts", stats.RestartCount,
				"serial", snap.Serial,
				"port", snap.Port,
				"ready", snap.Ready,
			)
		}
	}
}

func managerConfig(sc config.SupervisorConfig, bridge string, args []string, tracker *tracker, log *logging.Logger, stderr io.Writer) process.Config {
	pc := process.DefaultConfig("gridosc", bridge, args)
	pc.RestartOnFailure = sc.RestartOnFailure
	pc.MaxRestartAttempts = sc.MaxRestartAttempts
	if sc.RestartDelay > 0 {
		pc.RestartDelay = sc.RestartDelay
	}
	if sc.MaxRestartDelay > 0 {
		pc.MaxRestartDelay = sc.MaxRestartDelay
	}
	if sc.GracefulTimeout > 0 {
		pc.GracefulTimeout = sc.GracefulTimeout
	}
	pc.PermanentExitCodes = []int{bridgeUsageExit}
	pc.Stdout = func(r io.Reader) {
		if err := readControl(r, tracker, log); err != nil {
			log.Error("control channel unreadable, ignoring the rest", "error", err)
		}
	}
	pc.Stderr = stderr
	pc.OnStart = func(pid int) {
		log.Info("bridge started", "pid", pid)
	}
	pc.OnStop = func(err error) {
		tracker.Reset()
		if err != nil {
			log.Warn("bridge stopped", "error", err)
		}
	}
	pc.OnRestart = func(attempt int) {
		log.Info("restarting bridge", "attempt", attempt)
	}
	return pc
}
