package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/hadirapp/hadir/core"
	"github.com/hadirapp/hadir/core/attendee"
)

type attendeeRepository struct {
	db *attendeeTable
}

var _ attendee.Repository = (*attendeeRepository)(nil) // interface compliance check

func NewAttendeeRepository(db *DB) *attendeeRepository {
	return &attendeeRepository{db: db.attendee}
}

func (repo *attendeeRepository) query() []attendee.Attendee {
	attendees := make([]attendee.Attendee, 0, len(repo.db.rows))
	for _, att := range repo.db.rows {
		attendees = append(attendees, *att)
	}
	return attendees
}

func (repo *attendeeRepository) CheckDuplicate(ctx context.Context, name, phone string, exec ...core.DBExecutor) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	name = strings.ToLower(strings.TrimSpace(name))
	for _, att := range repo.db.rows {
		if att.IsDeleted {
			continue
		}
		if strings.ToLower(strings.TrimSpace(att.Name)) == name {
			return attendee.ErrNameExists
		}
	}
	for _, att := range repo.db.rows {
		if att.IsDeleted {
			continue
		}
		if att.PhonePrimary == phone {
			return attendee.ErrPhoneExists
		}
	}
	return nil
}

func (repo *attendeeRepository) CreateAttendee(ctx context.Context, att attendee.Attendee, exec ...core.DBExecutor) (attendee.Attendee, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.rows = append(repo.db.rows, &att)
	return att, nil
}

func (repo *attendeeRepository) QueryAttendees(ctx context.Context, filter *attendee.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]attendee.Attendee, error) {
	repo.db.RLock()
	attendees := repo.query()
	repo.db.RUnlock()

	filtered := attendees[:0:0]
	for _, att := range attendees {
		if matchesAttendeeFilter(att, filter) {
			filtered = append(filtered, att)
		}
	}
	attendees = filtered

	asc := false
	if len(ordering) > 0 {
		asc = ordering[0].Ascending
	}
	sort.SliceStable(attendees, func(i, j int) bool {
		if asc {
			return attendees[i].CreatedAt.Before(attendees[j].CreatedAt)
		}
		return attendees[j].CreatedAt.Before(attendees[i].CreatedAt)
	})
	return attendees, nil
}

func matchesAttendeeFilter(att attendee.Attendee, filter *attendee.QueryFilter) bool {
	trash := filter != nil && filter.Scope == attendee.ScopeTrash
	if att.IsDeleted != trash {
		return false
	}
	if filter == nil {
		return true
	}
	if filter.Search != "" {
		kw := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(att.Name), kw) &&
			!strings.Contains(strings.ToLower(att.PhonePrimary), kw) &&
			!strings.Contains(strings.ToLower(att.EmailPrimary), kw) {
			return false
		}
	}
	if filter.Governorate != "" && att.Governorate != filter.Governorate {
		return false
	}
	if filter.SeatClass != "" && att.SeatClass != filter.SeatClass {
		return false
	}
	if filter.CheckedIn != nil && att.AttendanceStatus != *filter.CheckedIn {
		return false
	}
	return true
}

func (repo *attendeeRepository) GetAttendee(ctx context.Context, id string, exec ...core.DBExecutor) (attendee.Attendee, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, att := range repo.db.rows {
		if att.ID == id {
			return *att, nil
		}
	}
	return attendee.Attendee{}, attendee.ErrNotFound
}

func (repo *attendeeRepository) FindByCode(ctx context.Context, code string, exec ...core.DBExecutor) (attendee.Attendee, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, att := range repo.db.rows {
		if att.IsDeleted {
			continue
		}
		if att.QRCode == code || att.Barcode == code || att.ID == code {
			return *att, nil
		}
	}
	return attendee.Attendee{}, attendee.ErrNotFound
}

func (repo *attendeeRepository) FindByCodeFuzzy(ctx context.Context, code string, exec ...core.DBExecutor) (attendee.Attendee, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	kw := strings.ToLower(code)
	for _, att := range repo.db.rows {
		if att.IsDeleted {
			continue
		}
		if strings.Contains(strings.ToLower(att.QRCode), kw) || strings.Contains(strings.ToLower(att.Barcode), kw) {
			return *att, nil
		}
	}
	return attendee.Attendee{}, attendee.ErrNotFound
}

func (repo *attendeeRepository) UpdateAttendee(ctx context.Context, att attendee.Attendee, exec ...core.DBExecutor) (attendee.Attendee, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for i, a := range repo.db.rows {
		if a.ID == att.ID {
			repo.db.rows[i] = &att
			return att, nil
		}
	}
	return attendee.Attendee{}, attendee.ErrNotFound
}

func (repo *attendeeRepository) SetAttendeeDeleted(ctx context.Context, id string, deleted bool, exec ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, att := range repo.db.rows {
		if att.ID == id {
			att.IsDeleted = deleted
			return nil
		}
	}
	return attendee.ErrNotFound
}

func (repo *attendeeRepository) DeleteAttendee(ctx context.Context, id string, exec ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for i, att := range repo.db.rows {
		if att.ID == id {
			repo.db.rows = append(repo.db.rows[:i], repo.db.rows[i+1:]...)
			return nil
		}
	}
	return attendee.ErrNotFound
}
