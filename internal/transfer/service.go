package transfer

import (
	"context"
	"errors"
	"io"

	sq "github.com/Masterminds/squirrel"

	"github.com/kadirbelkuyu/oracle2pg/internal/config"
	"github.com/kadirbelkuyu/oracle2pg/internal/database"
	"github.com/kadirbelkuyu/oracle2pg/internal/schema"
	"github.com/kadirbelkuyu/oracle2pg/internal/script"
	"github.com/kadirbelkuyu/oracle2pg/pkg/logger"
)

// Service runs an Engine against real Oracle and PostgreSQL connections.
type Service struct {
	engine *Engine
}

func NewService(cfg *config.Config, ddl *script.Script, log *logger.Logger, progress io.Writer) *Service {
	options := Options{
		Owner:         cfg.Source.Owner,
		Tables:        cfg.Source.Tables,
		CreateSchema:  cfg.Options.CreateSchema,
		CreateTable:   cfg.Options.CreateTable,
		TransferRows:  cfg.Options.TransferRows,
		Threads:       cfg.Transfer.Threads,
		Authorization: cfg.Target.Username,
		Limits: Limits{
			SampleRows: cfg.SampleRows(),
			ChunkSize:  cfg.Transfer.ChunkSize,
			NullToken:  cfg.Transfer.NullToken,
		},
		Progress: progress,
		Logger:   log,
	}

	return &Service{engine: NewEngine(options, connectSessions(cfg, log), ddl)}
}

func (s *Service) Execute(ctx context.Context) (*Report, error) {
	return s.engine.Execute(ctx)
}

func (s *Service) ListTables(ctx context.Context, owner string) ([]string, error) {
	return s.engine.ListSchemaTables(ctx, owner)
}

func connectSessions(cfg *config.Config, log *logger.Logger) SessionFactory {
	return func(ctx context.Context, id int) (*Session, error) {
		log.Debugf("Worker #%d: connecting to %s:%d/%s", id, cfg.Source.Host, cfg.Source.Port, cfg.Source.Database)
		source, err := database.OpenSource(ctx, cfg)
		if err != nil {
			return nil, err
		}

		session := &Session{
			Catalog: schema.NewExtractor(source.DB, sq.Colon, log),
			Rows:    NewSQLRowOpener(source.DB),
		}
		closers := []func() error{source.Close}

		if cfg.NeedsTarget() {
			log.Debugf("Worker #%d: connecting to %s:%d/%s", id, cfg.Target.Host, cfg.Target.Port, cfg.Target.Database)
			conn, err := database.OpenTarget(ctx, cfg)
			if err != nil {
				source.Close()
				return nil, err
			}
			session.Target = NewTarget(conn)
			closers = append(closers, func() error {
				return conn.Close(context.Background())
			})
		}

		session.Close = func() error {
			var errs []error
			for _, closeFn := range closers {
				errs = append(errs, closeFn())
			}
			return errors.Join(errs...)
		}
		return session, nil
	}
}
