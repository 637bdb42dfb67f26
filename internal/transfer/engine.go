package transfer

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/kadirbelkuyu/oracle2pg/internal/schema"
	"github.com/kadirbelkuyu/oracle2pg/internal/script"
	"github.com/kadirbelkuyu/oracle2pg/pkg/logger"
	"github.com/kadirbelkuyu/oracle2pg/pkg/progress"
)

type Options struct {
	Owner         string
	Tables        []string
	CreateSchema  bool
	CreateTable   bool
	TransferRows  bool
	Threads       int
	Authorization string
	Limits        Limits
	// Progress receives a table progress bar when set.
	Progress io.Writer
	Logger   *logger.Logger
}

// Catalog is the source metadata a session exposes.
type Catalog interface {
	schema.Catalog
	ListTables(ctx context.Context, owner string) ([]string, error)
}

// Session is the set of connections owned by one worker. Target is nil when
// no target database is needed.
type Session struct {
	Catalog Catalog
	Rows    RowOpener
	Target  Target
	Close   func() error
}

// SessionFactory opens the connections for worker id.
type SessionFactory func(ctx context.Context, id int) (*Session, error)

// Engine migrates one Oracle schema. The calling goroutine is worker #0;
// Threads-1 more workers run alongside it.
type Engine struct {
	options  Options
	sessions SessionFactory
	ddl      *script.Script
	queue    *JobQueue
	logger   *logger.Logger
}

func NewEngine(options Options, sessions SessionFactory, ddl *script.Script) *Engine {
	if options.Threads < 1 {
		options.Threads = 1
	}
	if options.Logger == nil {
		options.Logger = logger.Discard()
	}
	return &Engine{
		options:  options,
		sessions: sessions,
		ddl:      ddl,
		queue:    NewJobQueue(),
		logger:   options.Logger,
	}
}

// ListSchemaTables returns the tables of owner in the source database.
func (e *Engine) ListSchemaTables(ctx context.Context, owner string) ([]string, error) {
	session, err := e.open(ctx, 0)
	if err != nil {
		return nil, err
	}
	defer e.close(0, session)

	return e.listTables(ctx, session, owner)
}

func (e *Engine) Execute(ctx context.Context) (*Report, error) {
	owner := e.options.Owner
	e.logger.Infof("Starting transfer of schema %s with %d threads", owner, e.options.Threads)

	main, err := e.open(ctx, 0)
	if err != nil {
		return nil, err
	}
	defer e.close(0, main)

	tables := distinct(e.options.Tables)
	if len(tables) == 0 {
		if tables, err = e.listTables(ctx, main, owner); err != nil {
			return nil, err
		}
	}

	report := &Report{}
	report.Schema = e.creator(main).SchemaDDL(ctx, owner)

	e.ddl.Banner("Tables of Schema " + owner)
	e.queue.Push(tables...)
	e.logger.Infof("%d tables queued", e.queue.Len())

	var bar *progress.Bar
	if e.options.Progress != nil {
		bar = progress.NewBar(int64(e.queue.Len()), "Tables", e.options.Progress)
	}

	var wg sync.WaitGroup
	for id := 1; id < e.options.Threads; id++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()

			session, err := e.open(ctx, id)
			if err != nil {
				e.logger.Errorf("Worker #%d: %v", id, err)
				return
			}
			defer e.close(id, session)

			e.worker(id, session, report, bar).run(ctx)
		}(id)
	}
	e.worker(0, main, report, bar).run(ctx)
	wg.Wait()
	bar.Finish()

	report.ForeignKeys = e.creator(main).ForeignKeysDDL(ctx, owner, tables)
	e.ddl.Banner("End of Script")

	report.sortTables()
	summary := report.Summary()
	e.logger.Infof("Finish: %d tables (%d failed), %d statements applied, %d failed, %d skipped, %d rows transferred",
		summary.Tables, summary.FailedTables, summary.Applied, summary.Failed, summary.Skipped, summary.Rows)
	return report, nil
}

func (e *Engine) open(ctx context.Context, id int) (*Session, error) {
	session, err := e.sessions(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("connection error: %w", err)
	}
	return session, nil
}

func (e *Engine) close(id int, session *Session) {
	if session.Close == nil {
		return
	}
	if err := session.Close(); err != nil {
		e.logger.Warnf("Worker #%d: failed to close connections: %v", id, err)
	}
}

func (e *Engine) listTables(ctx context.Context, session *Session, owner string) ([]string, error) {
	tables, err := session.Catalog.ListTables(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables of schema %s: %w", owner, err)
	}
	return tables, nil
}

func (e *Engine) creator(session *Session) *schema.Creator {
	var exec schema.Execer
	if session.Target != nil {
		exec = session.Target
	}
	return schema.NewCreator(session.Catalog, exec, e.ddl, e.logger, schema.CreatorOptions{
		ApplySchema:   e.options.CreateSchema,
		ApplyTables:   e.options.CreateTable,
		Authorization: e.options.Authorization,
	})
}

func (e *Engine) worker(id int, session *Session, report *Report, bar *progress.Bar) *worker {
	return &worker{
		id:       id,
		owner:    e.options.Owner,
		session:  session,
		creator:  e.creator(session),
		queue:    e.queue,
		options:  e.options,
		report:   report,
		progress: bar,
		logger:   e.logger,
	}
}

func distinct(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

type TableResult struct {
	DDL         schema.TableReport
	Strategy    string
	Rows        int64
	TransferErr error
}

func (r TableResult) Failed() bool {
	return r.DDL.Err != nil || r.TransferErr != nil
}

// Report aggregates the outcome of a run. Workers add to it concurrently.
type Report struct {
	mu          sync.Mutex
	Schema      []schema.StatementResult
	Tables      []TableResult
	ForeignKeys []schema.TableReport
}

type Summary struct {
	Tables       int
	FailedTables int
	Applied      int
	Failed       int
	Skipped      int
	Rows         int64
}

func (r *Report) addTable(result TableResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Tables = append(r.Tables, result)
}

func (r *Report) sortTables() {
	r.mu.Lock()
	defer r.mu.Unlock()
	sort.Slice(r.Tables, func(i, j int) bool {
		return r.Tables[i].DDL.Table < r.Tables[j].DDL.Table
	})
}

func (r *Report) Summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	var s Summary
	count := func(results []schema.StatementResult) {
		for _, res := range results {
			switch res.Status {
			case schema.StatusApplied:
				s.Applied++
			case schema.StatusFailed:
				s.Failed++
			case schema.StatusSkipped:
				s.Skipped++
			}
		}
	}

	count(r.Schema)
	for _, t := range r.Tables {
		s.Tables++
		if t.Failed() {
			s.FailedTables++
		}
		s.Rows += t.Rows
		count(t.DDL.Statements)
	}
	for _, fk := range r.ForeignKeys {
		count(fk.Statements)
	}
	return s
}
