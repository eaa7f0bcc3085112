package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/hadirapp/hadir/core"
	"github.com/hadirapp/hadir/core/attendee"
)

type attendeeRow struct {
	ID             string `db:"id"`
	Name           string `db:"full_name"`
	PhonePrimary   string `db:"phone_primary"`
	PhoneSecondary string `db:"phone_secondary"`
	EmailPrimary   string `db:"email_primary"`
	EmailSecondary string `db:"email_secondary"`
	FacebookLink   string `db:"facebook_link"`

	Governorate string `db:"governorate"`
	SeatClass   string `db:"seat_class"`
	Status      string `db:"status"`

	PaymentType     string `db:"payment_type"`
	PaymentAmount   int    `db:"payment_amount"`
	RemainingAmount int    `db:"remaining_amount"`

	QRCode  string `db:"qr_code"`
	Barcode string `db:"barcode"`

	AttendanceStatus bool         `db:"attendance_status"`
	CheckedInAt      sql.NullTime `db:"checked_in_at"`
	CheckedInBy      string       `db:"checked_in_by"`

	IsDeleted bool         `db:"is_deleted"`
	CreatedBy string       `db:"created_by"`
	CreatedAt sql.NullTime `db:"created_at"`
	UpdatedAt sql.NullTime `db:"updated_at"`
}

type attendeeRepository struct {
	db *sqlx.DB
}

var _ attendee.Repository = (*attendeeRepository)(nil) // interface compliance check

func NewAttendeeRepository(db *sqlx.DB) *attendeeRepository {
	return &attendeeRepository{db: db}
}

func (repo attendeeRepository) getExec(svcExec []core.DBExecutor) sqlx.ExtContext {
	if len(svcExec) > 0 {
		if e, ok := svcExec[0].(sqlx.ExtContext); ok {
			return e
		}
	}
	return repo.db
}

func (repo attendeeRepository) row(att attendee.Attendee) attendeeRow {
	r := attendeeRow{
		ID:               att.ID,
		Name:             att.Name,
		PhonePrimary:     att.PhonePrimary,
		PhoneSecondary:   att.PhoneSecondary,
		EmailPrimary:     att.EmailPrimary,
		EmailSecondary:   att.EmailSecondary,
		FacebookLink:     att.FacebookLink,
		Governorate:      att.Governorate,
		SeatClass:        att.SeatClass,
		Status:           att.Status,
		PaymentType:      att.PaymentType,
		PaymentAmount:    att.PaymentAmount,
		RemainingAmount:  att.RemainingAmount,
		QRCode:           att.QRCode,
		Barcode:          att.Barcode,
		AttendanceStatus: att.AttendanceStatus,
		CheckedInBy:      att.CheckedInBy,
		IsDeleted:        att.IsDeleted,
		CreatedBy:        att.CreatedBy,
		CreatedAt:        sql.NullTime{Time: att.CreatedAt.UTC(), Valid: !att.CreatedAt.IsZero()},
		UpdatedAt:        sql.NullTime{Time: att.UpdatedAt.UTC(), Valid: !att.UpdatedAt.IsZero()},
	}
	if att.CheckedInAt != nil {
		r.CheckedInAt = sql.NullTime{Time: att.CheckedInAt.UTC(), Valid: true}
	}
	return r
}

func (repo attendeeRepository) unrow(r attendeeRow) attendee.Attendee {
	att := attendee.Attendee{
		ID:               r.ID,
		Name:             r.Name,
		PhonePrimary:     r.PhonePrimary,
		PhoneSecondary:   r.PhoneSecondary,
		EmailPrimary:     r.EmailPrimary,
		EmailSecondary:   r.EmailSecondary,
		FacebookLink:     r.FacebookLink,
		Governorate:      r.Governorate,
		SeatClass:        r.SeatClass,
		Status:           r.Status,
		PaymentType:      r.PaymentType,
		PaymentAmount:    r.PaymentAmount,
		RemainingAmount:  r.RemainingAmount,
		QRCode:           r.QRCode,
		Barcode:          r.Barcode,
		AttendanceStatus: r.AttendanceStatus,
		CheckedInBy:      r.CheckedInBy,
		IsDeleted:        r.IsDeleted,
		CreatedBy:        r.CreatedBy,
		CreatedAt:        r.CreatedAt.Time,
		UpdatedAt:        r.UpdatedAt.Time,
	}
	if r.CheckedInAt.Valid {
		t := r.CheckedInAt.Time
		att.CheckedInAt = &t
	}
	return att
}

func (repo attendeeRepository) unrowSlice(rows []attendeeRow) []attendee.Attendee {
	attendees := make([]attendee.Attendee, 0, len(rows))
	for _, r := range rows {
		attendees = append(attendees, repo.unrow(r))
	}
	return attendees
}

// trapNoRowsErr maps psql "no rows" err to attendee.ErrNotFound
func (repo attendeeRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return attendee.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo attendeeRepository) CheckDuplicate(ctx context.Context, name, phone string, exec ...core.DBExecutor) error {
	e := repo.getExec(exec)

	var taken struct {
		Name  bool `db:"name_taken"`
		Phone bool `db:"phone_taken"`
	}
	query := e.Rebind(`
		SELECT
			EXISTS (SELECT 1 FROM attendee WHERE NOT is_deleted AND lower(full_name) = lower(?)) AS name_taken,
			EXISTS (SELECT 1 FROM attendee WHERE NOT is_deleted AND phone_primary = ?) AS phone_taken`)
	if err := sqlx.GetContext(ctx, e, &taken, query, name, phone); err != nil {
		return errors.Wrap(err, "checking attendee duplicates")
	}
	if taken.Name {
		return attendee.ErrNameExists
	}
	if taken.Phone {
		return attendee.ErrPhoneExists
	}
	return nil
}

func (repo attendeeRepository) CreateAttendee(ctx context.Context, att attendee.Attendee, exec ...core.DBExecutor) (attendee.Attendee, error) {
	query := `
		INSERT INTO attendee (
			id, full_name, phone_primary, phone_secondary, email_primary, email_secondary, facebook_link,
			governorate, seat_class, status, payment_type, payment_amount, remaining_amount,
			qr_code, barcode, attendance_status, checked_in_at, checked_in_by,
			is_deleted, created_by, created_at, updated_at
		) VALUES (
			:id, :full_name, :phone_primary, :phone_secondary, :email_primary, :email_secondary, :facebook_link,
			:governorate, :seat_class, :status, :payment_type, :payment_amount, :remaining_amount,
			:qr_code, :barcode, :attendance_status, :checked_in_at, :checked_in_by,
			:is_deleted, :created_by, :created_at, :updated_at
		)`
	if _, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), query, repo.row(att)); err != nil {
		return attendee.Attendee{}, errors.Wrap(err, "inserting attendee")
	}
	return att, nil
}

func (repo attendeeRepository) QueryAttendees(ctx context.Context, filter *attendee.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]attendee.Attendee, error) {
	e := repo.getExec(exec)

	conds := []string{"NOT is_deleted"}
	var args []interface{}

	if filter != nil {
		if filter.Scope == attendee.ScopeTrash {
			conds[0] = "is_deleted"
		}
		if filter.Search != "" {
			conds = append(conds, "(full_name ILIKE ? OR phone_primary ILIKE ? OR email_primary ILIKE ?)")
			val := "%" + filter.Search + "%"
			args = append(args, val, val, val)
		}
		if filter.Governorate != "" {
			conds = append(conds, "governorate = ?")
			args = append(args, filter.Governorate)
		}
		if filter.SeatClass != "" {
			conds = append(conds, "seat_class = ?")
			args = append(args, filter.SeatClass)
		}
		if filter.CheckedIn != nil {
			conds = append(conds, "attendance_status = ?")
			args = append(args, *filter.CheckedIn)
		}
	}

	query := "SELECT * FROM attendee WHERE " + strings.Join(conds, " AND ")
	if len(ordering) > 0 {
		orderList := make([]string, 0, len(ordering))
		for _, ord := range ordering {
			orderList = append(orderList, ord.String())
		}
		query += " ORDER BY " + strings.Join(orderList, ", ")
	} else {
		// newest first by default
		query += " ORDER BY created_at DESC"
	}

	var rows []attendeeRow
	if err := sqlx.SelectContext(ctx, e, &rows, e.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying attendees")
	}
	return repo.unrowSlice(rows), nil
}

func (repo attendeeRepository) GetAttendee(ctx context.Context, id string, exec ...core.DBExecutor) (attendee.Attendee, error) {
	if _, err := uuid.Parse(id); err != nil {
		return attendee.Attendee{}, attendee.ErrNotFound
	}
	e := repo.getExec(exec)

	var r attendeeRow
	query := e.Rebind(`SELECT * FROM attendee WHERE id = ?`)
	if err := sqlx.GetContext(ctx, e, &r, query, id); err != nil {
		return attendee.Attendee{}, repo.trapNoRowsErr(err, "finding attendee by ID")
	}
	return repo.unrow(r), nil
}

func (repo attendeeRepository) FindByCode(ctx context.Context, code string, exec ...core.DBExecutor) (attendee.Attendee, error) {
	e := repo.getExec(exec)

	var r attendeeRow
	query := e.Rebind(`
		SELECT * FROM attendee
		WHERE NOT is_deleted AND (qr_code = ? OR barcode = ? OR id = ?)
		LIMIT 1`)
	if err := sqlx.GetContext(ctx, e, &r, query, code, code, code); err != nil {
		return attendee.Attendee{}, repo.trapNoRowsErr(err, "finding attendee by code")
	}
	return repo.unrow(r), nil
}

func (repo attendeeRepository) FindByCodeFuzzy(ctx context.Context, code string, exec ...core.DBExecutor) (attendee.Attendee, error) {
	e := repo.getExec(exec)

	var r attendeeRow
	query := e.Rebind(`
		SELECT * FROM attendee
		WHERE NOT is_deleted AND (qr_code ILIKE ? OR barcode ILIKE ?)
		ORDER BY created_at, id
		LIMIT 1`)
	val := "%" + code + "%"
	if err := sqlx.GetContext(ctx, e, &r, query, val, val); err != nil {
		return attendee.Attendee{}, repo.trapNoRowsErr(err, "finding attendee by partial code")
	}
	return repo.unrow(r), nil
}

func (repo attendeeRepository) UpdateAttendee(ctx context.Context, att attendee.Attendee, exec ...core.DBExecutor) (attendee.Attendee, error) {
	query := `
		UPDATE attendee SET
			full_name = :full_name,
			phone_primary = :phone_primary,
			phone_secondary = :phone_secondary,
			email_primary = :email_primary,
			email_secondary = :email_secondary,
			facebook_link = :facebook_link,
			governorate = :governorate,
			seat_class = :seat_class,
			status = :status,
			payment_type = :payment_type,
			payment_amount = :payment_amount,
			remaining_amount = :remaining_amount,
			attendance_status = :attendance_status,
			checked_in_at = :checked_in_at,
			checked_in_by = :checked_in_by,
			updated_at = :updated_at
		WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), query, repo.row(att))
	if err != nil {
		return attendee.Attendee{}, errors.Wrap(err, "updating attendee")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return attendee.Attendee{}, attendee.ErrNotFound
	}
	return att, nil
}

func (repo attendeeRepository) SetAttendeeDeleted(ctx context.Context, id string, deleted bool, exec ...core.DBExecutor) error {
	if _, err := uuid.Parse(id); err != nil {
		return attendee.ErrNotFound
	}
	e := repo.getExec(exec)

	res, err := e.ExecContext(ctx, e.Rebind(`UPDATE attendee SET is_deleted = ? WHERE id = ?`), deleted, id)
	if err != nil {
		return errors.Wrap(err, "updating attendee deletion")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return attendee.ErrNotFound
	}
	return nil
}

func (repo attendeeRepository) DeleteAttendee(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if _, err := uuid.Parse(id); err != nil {
		return attendee.ErrNotFound
	}
	e := repo.getExec(exec)

	res, err := e.ExecContext(ctx, e.Rebind(`DELETE FROM attendee WHERE id = ?`), id)
	if err != nil {
		return errors.Wrap(err, "deleting attendee")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return attendee.ErrNotFound
	}
	return nil
}
