package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/kadirbelkuyu/oracle2pg/internal/config"

	_ "github.com/sijms/go-ora/v2"
)

// Source is a single Oracle connection. Workers never share one.
type Source struct {
	DB     *sql.DB
	Config *config.Config
}

func OpenSource(ctx context.Context, cfg *config.Config) (*Source, error) {
	db, err := sql.Open("oracle", cfg.SourceURL())
	if err != nil {
		return nil, fmt.Errorf("failed to open source connection: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to reach source database %s:%d/%s: %w",
			cfg.Source.Host, cfg.Source.Port, cfg.Source.Database, err)
	}

	return &Source{DB: db, Config: cfg}, nil
}

func (s *Source) Close() error {
	return s.DB.Close()
}

// OpenTarget connects to PostgreSQL.
func OpenTarget(ctx context.Context, cfg *config.Config) (*pgx.Conn, error) {
	connConfig, err := pgx.ParseConfig(cfg.TargetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse target connection settings: %w", err)
	}

	conn, err := pgx.ConnectConfig(ctx, connConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to reach target database %s:%d/%s: %w",
			cfg.Target.Host, cfg.Target.Port, cfg.Target.Database, err)
	}
	return conn, nil
}
