package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/ftahirops/drivelog/collector"
	"github.com/ftahirops/drivelog/config"
	"github.com/ftahirops/drivelog/engine"
	"github.com/ftahirops/drivelog/store"
	"github.com/ftahirops/drivelog/ui"
	"github.com/google/uuid"
)

// runCollect runs the pipeline once over the drive list.
func runCollect(cfg config.Config, opts Options, logger *slog.Logger, stdout io.Writer) error {
	targets, err := collector.LoadTargets(opts.DriveList)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		return fmt.Errorf("%s: %w", opts.DriveList, engine.ErrNoDrives)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	host, err := ownerHost(cfg)
	if err != nil {
		return err
	}

	var (
		st  store.Store
		mem *store.Memory
	)
	if opts.DryRun {
		mem = store.NewMemory()
		st = mem
	} else {
		st, err = openStore(ctx, cfg)
		if err != nil {
			return err
		}
	}
	defer st.Close()

	runID := uuid.NewString()
	logger = logger.With("run", runID, "host", host)
	logger.Info("collection started", "drives", len(targets), "dry_run", opts.DryRun)

	p := engine.NewPipeline(engine.PipelineConfig{
		Invoker:      collector.NewSmartctl(cfg.SmartctlPath, cfg.Timeout()),
		Store:        st,
		OwnerHost:    host,
		IdentityKeys: cfg.IdentityKeys,
		BriefKeys:    cfg.BriefKeys,
		DetailRules:  cfg.DetailRules,
		MaxAttempts:  cfg.MaxAttempts,
		Logger:       logger,
	})
	sum, runErr := p.Run(ctx, targets)

	fmt.Fprint(stdout, ui.RenderSummary(sum))
	if mem != nil {
		if err := printDryRun(stdout, mem); err != nil {
			return err
		}
	}
	logger.Info("collection finished", "recorded", sum.Recorded(), "drives", len(sum.Drives))
	return runErr
}

// openStore opens the configured database and creates the tables.
func openStore(ctx context.Context, cfg config.Config) (*store.SQL, error) {
	if err := ensureSQLiteDir(cfg.Database.Driver, cfg.Database.DSN); err != nil {
		return nil, err
	}
	st, err := store.OpenSQL(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

// ensureSQLiteDir creates the parent directory of a plain sqlite file DSN.
func ensureSQLiteDir(driver, dsn string) error {
	d := strings.ToLower(driver)
	if d != "sqlite" && d != "sqlite3" {
		return nil
	}
	if dsn == "" || strings.HasPrefix(dsn, "file:") || strings.HasPrefix(dsn, ":memory:") {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dsn), 0700); err != nil {
		return fmt.Errorf("create database dir: %w", err)
	}
	return nil
}

func ownerHost(cfg config.Config) (string, error) {
	if cfg.Host != "" {
		return cfg.Host, nil
	}
	host, err := os.Hostname()
	if err != nil {
		return "", fmt.Errorf("hostname: %w", err)
	}
	return host, nil
}

// printDryRun prints the rows a real run would have written.
func printDryRun(w io.Writer, mem *store.Memory) error {
	idents, err := mem.Identities(context.Background(), "")
	if err != nil {
		return err
	}
	out := struct {
		Identities   any `json:"drive_identity"`
		Observations any `json:"drive_observation"`
	}{idents, mem.Observations()}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(data))
	return nil
}
