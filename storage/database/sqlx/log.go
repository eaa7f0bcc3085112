package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/hadirapp/hadir/core"
	"github.com/hadirapp/hadir/core/attendee"
)

type logRow struct {
	ID         string       `db:"id"`
	AttendeeID string       `db:"attendee_id"`
	RecordedBy string       `db:"recorded_by"`
	Action     string       `db:"action"`
	CreatedAt  sql.NullTime `db:"created_at"`
}

type logRepository struct {
	db *sqlx.DB
}

var _ attendee.LogRepository = (*logRepository)(nil) // interface compliance check

func NewLogRepository(db *sqlx.DB) *logRepository {
	return &logRepository{db: db}
}

func (repo logRepository) getExec(svcExec []core.DBExecutor) sqlx.ExtContext {
	if len(svcExec) > 0 {
		if e, ok := svcExec[0].(sqlx.ExtContext); ok {
			return e
		}
	}
	return repo.db
}

func (repo logRepository) AppendLog(ctx context.Context, entry attendee.Log, exec ...core.DBExecutor) (attendee.Log, error) {
	entry.ID = uuid.New().String()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO attendance_log (id, attendee_id, recorded_by, action, created_at)
		VALUES (:id, :attendee_id, :recorded_by, :action, :created_at)`
	row := logRow{
		ID:         entry.ID,
		AttendeeID: entry.AttendeeID,
		RecordedBy: entry.RecordedBy,
		Action:     entry.Action,
		CreatedAt:  sql.NullTime{Time: entry.CreatedAt.UTC(), Valid: true},
	}
	if _, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), query, row); err != nil {
		return attendee.Log{}, errors.Wrap(err, "inserting attendance log")
	}
	return entry, nil
}

func (repo logRepository) QueryLogs(ctx context.Context, attendeeID string, exec ...core.DBExecutor) ([]attendee.Log, error) {
	e := repo.getExec(exec)

	var rows []logRow
	query := e.Rebind(`SELECT * FROM attendance_log WHERE attendee_id = ? ORDER BY created_at`)
	if err := sqlx.SelectContext(ctx, e, &rows, query, attendeeID); err != nil {
		return nil, errors.Wrap(err, "querying attendance logs")
	}

	logs := make([]attendee.Log, 0, len(rows))
	for _, r := range rows {
		logs = append(logs, attendee.Log{
			ID:         r.ID,
			AttendeeID: r.AttendeeID,
			RecordedBy: r.RecordedBy,
			Action:     r.Action,
			CreatedAt:  r.CreatedAt.Time,
		})
	}
	return logs, nil
}
