package transfer

import (
	"context"

	"github.com/kadirbelkuyu/oracle2pg/internal/schema"
	"github.com/kadirbelkuyu/oracle2pg/pkg/logger"
	"github.com/kadirbelkuyu/oracle2pg/pkg/progress"
)

// worker drains the job queue using its own session.
type worker struct {
	id       int
	owner    string
	session  *Session
	creator  *schema.Creator
	queue    *JobQueue
	options  Options
	report   *Report
	progress *progress.Bar
	logger   *logger.Logger
}

func (w *worker) run(ctx context.Context) {
	w.logger.Infof("Worker #%d: Start", w.id)

	processed := 0
	for {
		table, ok := w.queue.Pop()
		if !ok {
			break
		}
		w.progress.Describe(w.owner + "." + table)
		w.report.addTable(w.process(ctx, table))
		w.progress.Increment()
		processed++
	}

	w.logger.Infof("Worker #%d: Stop (%d tables)", w.id, processed)
}

func (w *worker) process(ctx context.Context, table string) TableResult {
	result := TableResult{DDL: w.creator.TableDDL(ctx, w.owner, table)}
	if result.DDL.Err != nil || !w.options.TransferRows || w.session.Target == nil {
		return result
	}

	spec := TableSpec{Owner: w.owner, Table: table, Columns: result.DDL.Columns}
	strategy := SelectStrategy(spec.Columns, w.options.Limits)
	result.Strategy = strategy.Name()

	w.logger.Infof("Transfer rows of table %s using %s", spec.Name(), strategy.Name())

	rows, err := w.session.Rows.OpenRows(ctx, spec, w.options.Limits.SampleRows)
	if err != nil {
		result.TransferErr = err
		w.logger.Errorf("Transfer rows of table %s ... Failed: %v", spec.Name(), err)
		return result
	}
	defer rows.Close()

	result.Rows, err = strategy.Transfer(ctx, rows, w.session.Target, spec)
	if err != nil {
		result.TransferErr = err
		w.logger.Errorf("Transfer rows of table %s ... Failed after %d rows: %v", spec.Name(), result.Rows, err)
		return result
	}

	w.logger.Infof("Transfer rows of table %s ... Ok (%d rows)", spec.Name(), result.Rows)
	return result
}
