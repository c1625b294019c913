// gridosc bridges one grid controller to OSC.
//
// It opens the device, serves an OSC endpoint for it and relays input as
// OSC messages to a destination application. When stdin and stdout are
// not terminals the process assumes it runs under a supervisor and speaks
// the binary control protocol on stdout; otherwise it prints status lines
// to stderr.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/pflag"
	"gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/portmididrv"

	"github.com/nerrad567/gridosc/internal/audit"
	"github.com/nerrad567/gridosc/internal/control"
	"github.com/nerrad567/gridosc/internal/device/midigrid"
	"github.com/nerrad567/gridosc/internal/discovery"
	"github.com/nerrad567/gridosc/internal/infrastructure/config"
	"github.com/nerrad567/gridosc/internal/infrastructure/logging"
	"github.com/nerrad567/gridosc/internal/session"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Exit codes. exitUsage marks failures a restart cannot fix.
const (
	exitFailure = 1
	exitUsage   = 2
)

// configFileName is looked up in the default directory when --config is not given.
const configFileName = "gridosc.yaml"

// errUsage marks command line and configuration errors.
var errUsage = errors.New("usage")

// options are the parsed command line flags.
type options struct {
	configPath  string
	configDir   string
	devicePort  string
	listDevices bool
	showVersion bool

	// history is a device serial, historyAll, or empty when not requested.
	history      string
	historyLimit int
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	midi.CloseDriver()
	if err != nil {
		fmt.Fprintf(os.Stderr, "gridosc: %v\n", err)
		if errors.Is(err, errUsage) {
			os.Exit(exitUsage)
		}
		os.Exit(exitFailure)
	}
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := pflag.NewFlagSet("gridosc", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVarP(&opts.configPath, "config", "c", "", "daemon configuration file (default $GRIDOSC_CONFIG or <config-dir>/"+configFileName+")")
	fs.StringVar(&opts.configDir, "config-dir", "", "directory holding per-device configuration")
	fs.StringVarP(&opts.devicePort, "device", "d", "", "MIDI port name (substring match)")
	fs.BoolVar(&opts.listDevices, "list-devices", false, "print the available MIDI input ports and exit")
	fs.BoolVarP(&opts.showVersion, "version", "v", false, "print version and exit")
	fs.StringVar(&opts.history, "history", "", "print recorded sessions (optionally for one serial) and exit; needs the sqlite store")
	fs.Lookup("history").NoOptDefVal = historyAll
	fs.IntVar(&opts.historyLimit, "history-limit", 0, "maximum sessions printed by --history (default 50)")

	if err := fs.Parse(args); err != nil {
		return opts, fmt.Errorf("%w: %w", errUsage, err)
	}
	// Positional form: gridosc <device> [config-dir]
	if rest := fs.Args(); len(rest) > 0 {
		if opts.devicePort == "" {
			opts.devicePort = rest[0]
		}
		if len(rest) > 1 && opts.configDir == "" {
			opts.configDir = rest[1]
		}
		if len(rest) > 2 {
			return opts, fmt.Errorf("%w: unexpected arguments %v", errUsage, rest[2:])
		}
	}
	return opts, nil
}

// loadConfig resolves the configuration file and applies flag overrides.
// An explicitly named file must exist; the default one is optional.
func loadConfig(opts options) (*config.Config, error) {
	path := opts.configPath
	if path == "" {
		path = os.Getenv("GRIDOSC_CONFIG")
	}

	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.Load(path)
	} else {
		dir := opts.configDir
		if dir == "" {
			dir = config.DefaultDir()
		}
		cfg, err = config.LoadOptional(filepath.Join(dir, configFileName))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: loading config: %w", errUsage, err)
	}

	if opts.configDir != "" {
		cfg.Store.Dir = opts.configDir
	}
	if opts.devicePort != "" {
		cfg.Device.Port = opts.devicePort
	}
	return cfg, nil
}

// run is the application logic, separated from main for testability.
func run(ctx context.Context, args []string, stdin, stdout *os.File, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if opts.showVersion {
		fmt.Fprintf(stdout, "gridosc %s (commit %s, built %s)\n", version, commit, date)
		return nil
	}
	if opts.listDevices {
		for _, name := range midigrid.Ports() {
			fmt.Fprintln(stdout, name)
		}
		return nil
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	if opts.history != "" {
		log := logging.NewWithWriter(cfg.Logging, version, stderr)
		return printHistory(ctx, cfg.Store, opts.history, opts.historyLimit, stdout, log)
	}
	if cfg.Device.Port == "" {
		return fmt.Errorf("%w: no device given (use --device)", errUsage)
	}

	channel := control.Detect(stdin, stdout)
	if channel.Supervised() {
		// stdout carries control frames.
		cfg.Logging.Output = "stderr"
	}
	log := logging.New(cfg.Logging, version)
	log.Info("starting gridosc",
		"version", version,
		"commit", commit,
		"build_date", date,
		"supervised", channel.Supervised(),
	)

	grid, err := midigrid.Open(midigrid.Config{
		Port:         cfg.Device.Port,
		Serial:       cfg.Device.Serial,
		FriendlyName: cfg.Device.FriendlyName,
		Channel:      uint8(cfg.Device.Channel), //nolint:gosec // validated to 0-15
	}, log)
	if err != nil {
		return fmt.Errorf("opening device: %w", err)
	}
	defer func() {
		if closeErr := grid.Close(); closeErr != nil {
			log.Error("error closing device", "error", closeErr)
		}
	}()
	log.Info("device opened", "serial", grid.Serial(), "name", grid.FriendlyName())

	store, db, closeStore, err := openStore(ctx, cfg.Store, log)
	if err != nil {
		return fmt.Errorf("opening config store: %w", err)
	}
	defer closeStore()

	var advertiser discovery.Advertiser = discovery.Disabled{}
	if cfg.Discovery.Enabled {
		advertiser = discovery.NewZeroconf(discovery.Config{
			Service: cfg.Discovery.Service,
			Domain:  cfg.Discovery.Domain,
			Text:    []string{"serial=" + grid.Serial(), "type=" + grid.FriendlyName()},
		}, log)
	}

	mirror, closeMirror := connectMirror(ctx, cfg.MQTT, grid.Serial(), log)
	defer closeMirror()

	telemetry, closeTelemetry := connectTelemetry(ctx, cfg.InfluxDB, log)
	defer closeTelemetry()
	if db != nil {
		history, closeHistory := connectHistory(audit.NewSQLiteRepository(db.DB), log)
		defer closeHistory()
		telemetry = fanout(telemetry, history)
	}

	sess, err := session.New(session.Options{
		Device:     grid,
		Store:      store,
		Network:    session.UDPNetwork{Logger: log},
		Advertiser: advertiser,
		Channel:    channel,
		Diag:       stderr,
		Logger:     log,
		Mirror:     mirror,
		Telemetry:  telemetry,
	})
	if err != nil {
		return err
	}

	if err := sess.Run(ctx); err != nil {
		return err
	}
	if dropped := grid.Dropped(); dropped > 0 {
		log.Warn("device events dropped during session", "dropped", dropped)
	}
	if grid.Removed() {
		log.Info("device removed", "serial", grid.Serial())
	}
	log.Info("gridosc stopped")
	return nil
}
