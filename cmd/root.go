package cmd

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/ftahirops/drivelog/config"
)

// Version is set at build time via ldflags.
var Version = "0.3.0"

// ErrUsage is returned after the usage text has been printed.
var ErrUsage = errors.New("invalid usage")

// Options holds the parsed command line.
type Options struct {
	ConfigPath  string
	DriveList   string
	Driver      string
	DSN         string
	Smartctl    string
	Host        string
	TimeoutSec  int
	MaxAttempts int
	DryRun      bool
	Generations bool
	Browse      bool
	InitConfig  bool
	Verbose     bool
	LogJSON     bool
	ShowVersion bool
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `drivelog v%s - SMART telemetry logger with disk-swap detection

Usage:
  drivelog [OPTIONS] DRIVELIST

Modes:
  (default)         Run smartctl for every drive in DRIVELIST and store the results
  -dry-run          Collect and print what would be stored, without a database
  -generations      Print stored drive generations and exit
  -browse           Interactive browser of stored generations (bubbletea)
  -init-config      Write the default config file and exit
  -version          Print version and exit

Options:
  -config PATH      Config file, .json or .yaml (default: %s)
  -db DRIVER        Database driver: sqlite or postgres
  -dsn DSN          Database DSN (sqlite file path or postgres URL)
  -smartctl PATH    smartctl binary (default: smartctl from PATH)
  -host NAME        Owner host recorded with every row (default: hostname)
  -timeout N        Seconds before a smartctl run is killed
  -attempts N       smartctl runs per drive while the device fails to open, 1 or 2 (default: 2)
  -v                Debug logging
  -log-json         Log as JSON lines

Drive list (one drive per line, # comments allowed):
  /dev/sda, sat
  /dev/nvme0, nvme

Environment:
  DRIVELOG_DB_DRIVER, DRIVELOG_DB_DSN, DRIVELOG_SMARTCTL, DRIVELOG_HOST,
  DRIVELOG_TIMEOUT_SEC, DRIVELOG_MAX_ATTEMPTS, DRIVELOG_IDENTITY_KEYS,
  DRIVELOG_BRIEF_KEYS override the config file; flags override both.

Examples:
  sudo drivelog /etc/drivelog/drives.txt
  sudo drivelog -dry-run drives.txt
  drivelog -db postgres -dsn postgres://drivelog@db/drive_control drives.txt
  drivelog -generations
  drivelog -browse -host nas01
`, Version, config.Path())
}

func parseFlags(args []string, stderr io.Writer) (Options, error) {
	var opts Options
	fs := flag.NewFlagSet("drivelog", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&opts.ConfigPath, "config", "", "Config file path")
	fs.StringVar(&opts.Driver, "db", "", "Database driver (sqlite, postgres)")
	fs.StringVar(&opts.DSN, "dsn", "", "Database DSN")
	fs.StringVar(&opts.Smartctl, "smartctl", "", "smartctl binary")
	fs.StringVar(&opts.Host, "host", "", "Owner host name")
	fs.IntVar(&opts.TimeoutSec, "timeout", 0, "smartctl timeout in seconds")
	fs.IntVar(&opts.MaxAttempts, "attempts", 0, "smartctl runs per drive while the device fails to open")
	fs.BoolVar(&opts.DryRun, "dry-run", false, "Collect without a database")
	fs.BoolVar(&opts.Generations, "generations", false, "Print stored drive generations")
	fs.BoolVar(&opts.Browse, "browse", false, "Browse stored generations")
	fs.BoolVar(&opts.InitConfig, "init-config", false, "Write the default config file")
	fs.BoolVar(&opts.Verbose, "v", false, "Debug logging")
	fs.BoolVar(&opts.LogJSON, "log-json", false, "Log as JSON lines")
	fs.BoolVar(&opts.ShowVersion, "version", false, "Print version and exit")
	fs.Usage = func() { printUsage(stderr) }

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return opts, err
		}
		return opts, ErrUsage
	}
	if rest := fs.Args(); len(rest) > 0 {
		opts.DriveList = rest[0]
	}
	return opts, nil
}

// apply overlays flags that were set onto cfg.
func (o Options) apply(cfg *config.Config) {
	if o.Driver != "" {
		cfg.Database.Driver = o.Driver
	}
	if o.DSN != "" {
		cfg.Database.DSN = o.DSN
	}
	if o.Smartctl != "" {
		cfg.SmartctlPath = o.Smartctl
	}
	if o.Host != "" {
		cfg.Host = o.Host
	}
	if o.TimeoutSec > 0 {
		cfg.TimeoutSec = o.TimeoutSec
	}
	if o.MaxAttempts > 0 {
		cfg.MaxAttempts = o.MaxAttempts
	}
}

// Run parses flags and starts the application.
func Run() error {
	return run(os.Args[1:], os.Stdout, os.Stderr)
}

func run(args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}

	if opts.ShowVersion {
		fmt.Fprintf(stdout, "drivelog v%s\n", Version)
		return nil
	}

	if opts.InitConfig {
		path := opts.ConfigPath
		if path == "" {
			path = config.Path()
		}
		if err := config.Save(config.Default(), path); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		fmt.Fprintf(stdout, "wrote %s\n", path)
		return nil
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}
	opts.apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(stderr, opts.Verbose, opts.LogJSON)

	switch {
	case opts.Generations:
		return runGenerations(cfg, stdout)
	case opts.Browse:
		return runBrowse(cfg)
	}

	if opts.DriveList == "" {
		fmt.Fprintln(stderr, "Error: missing DRIVELIST")
		printUsage(stderr)
		return ErrUsage
	}
	return runCollect(cfg, opts, logger, stdout)
}
