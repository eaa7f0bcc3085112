package dummydb

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hadirapp/hadir/core"
	"github.com/hadirapp/hadir/core/attendee"
)

type logRepository struct {
	db *logTable
}

var _ attendee.LogRepository = (*logRepository)(nil) // interface compliance check

func NewLogRepository(db *DB) *logRepository {
	return &logRepository{db: db.log}
}

func (repo *logRepository) AppendLog(ctx context.Context, entry attendee.Log, exec ...core.DBExecutor) (attendee.Log, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	entry.ID = uuid.New().String()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	repo.db.rows = append(repo.db.rows, &entry)
	return entry, nil
}

func (repo *logRepository) QueryLogs(ctx context.Context, attendeeID string, exec ...core.DBExecutor) ([]attendee.Log, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var logs []attendee.Log
	for _, entry := range repo.db.rows {
		if entry.AttendeeID == attendeeID {
			logs = append(logs, *entry)
		}
	}
	return logs, nil
}
