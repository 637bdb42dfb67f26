package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kadirbelkuyu/oracle2pg/internal/config"
	"github.com/kadirbelkuyu/oracle2pg/internal/profiles"
	"github.com/kadirbelkuyu/oracle2pg/internal/script"
	"github.com/kadirbelkuyu/oracle2pg/internal/transfer"
	"github.com/kadirbelkuyu/oracle2pg/pkg/logger"
)

type Service struct {
	out io.Writer
}

func NewService(out io.Writer) *Service {
	if out == nil {
		out = os.Stdout
	}
	return &Service{out: out}
}

// Migrate runs a full migration described by cfg.
func (s *Service) Migrate(ctx context.Context, cfg *config.Config, verboseFlag bool) error {
	log, closeLog, err := openLogger(cfg.Output.LogFile, verboseFlag)
	if err != nil {
		return err
	}
	defer closeLog()

	log.Info("Oracle to PostgreSQL migration")
	for _, line := range cfg.Summary() {
		log.Info(line)
	}

	ddl, err := script.Create(cfg.Output.DDLFile)
	if err != nil {
		return err
	}

	var progressOut io.Writer
	if cfg.Output.LogFile != "" {
		progressOut = os.Stderr
	}

	service := transfer.NewService(cfg, ddl, log, progressOut)
	report, runErr := service.Execute(ctx)

	meta, closeErr := ddl.Close()
	if runErr != nil {
		return fmt.Errorf("migration failed: %w", runErr)
	}
	if closeErr != nil {
		return closeErr
	}

	log.Infof("DDL script: %s (%d statements, %d bytes, sha256 %s)",
		meta.Location, meta.Statements, meta.Size, displayValue(shortChecksum(meta.Checksum), "n/a"))

	summary := report.Summary()
	if summary.FailedTables > 0 || summary.Failed > 0 {
		log.Warnf("Migration finished with %d failed tables and %d failed statements", summary.FailedTables, summary.Failed)
		for _, t := range report.Tables {
			if t.DDL.Err != nil {
				log.Warnf("  %s.%s: %v", t.DDL.Owner, t.DDL.Table, t.DDL.Err)
			}
			if t.TransferErr != nil {
				log.Warnf("  %s.%s: %v", t.DDL.Owner, t.DDL.Table, t.TransferErr)
			}
		}
	}
	return nil
}

// ListTables prints the tables of the configured owner.
func (s *Service) ListTables(ctx context.Context, cfg *config.Config) error {
	log := logger.New(io.Discard, os.Stderr, false)
	service := transfer.NewService(cfg, script.New(io.Discard), log, nil)

	tables, err := service.ListTables(ctx, cfg.Source.Owner)
	if err != nil {
		return err
	}

	fmt.Fprintf(s.out, "\nTables of schema %s on %s:%d/%s:\n", cfg.Source.Owner, cfg.Source.Host, cfg.Source.Port, cfg.Source.Database)
	fmt.Fprintln(s.out, strings.Repeat("=", 36))
	for i, table := range tables {
		fmt.Fprintf(s.out, "%d. %s\n", i+1, table)
	}
	fmt.Fprintf(s.out, "\nTotal tables: %d\n", len(tables))
	return nil
}

// ListProfiles prints the saved profiles in dir.
func (s *Service) ListProfiles(dir string) error {
	manager := profiles.NewManager(dir)
	saved, err := manager.List("")
	if err != nil {
		return fmt.Errorf("failed to list profiles: %w", err)
	}

	if len(saved) == 0 {
		fmt.Fprintf(s.out, "No saved profiles in %s\n", manager.Directory())
		return nil
	}
	for i, p := range saved {
		fmt.Fprintf(s.out, "%d. %s (owner %s, target %s, saved %s)\n",
			i+1, p.Name, p.Owner, p.Target, p.Modified.Format("2006-01-02 15:04"))
	}
	return nil
}

// LoadProfile reads the saved profile alias from dir.
func (s *Service) LoadProfile(dir, alias string) (*config.Config, error) {
	cfg, err := profiles.NewManager(dir).Load(alias)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile %s: %w", alias, err)
	}
	return cfg, nil
}

// DeleteProfile removes the saved profile alias from dir.
func (s *Service) DeleteProfile(dir, alias string) error {
	if err := profiles.NewManager(dir).Delete(alias); err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	fmt.Fprintf(s.out, "Deleted profile %s\n", alias)
	return nil
}

func openLogger(path string, verboseFlag bool) (*logger.Logger, func(), error) {
	if path == "" {
		return logger.NewLogger(verboseFlag), func() {}, nil
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return logger.New(file, os.Stderr, verboseFlag), func() { file.Close() }, nil
}

func shortChecksum(checksum string) string {
	if len(checksum) <= 16 {
		return checksum
	}
	return checksum[:16] + "..."
}

func displayValue(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
