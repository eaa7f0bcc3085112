package attendee

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/hadirapp/hadir/core"
)

var (
	// errors
	ErrNotFound    = errors.New("attendee not found")
	ErrNameExists  = errors.New("an attendee with this name is already registered")
	ErrPhoneExists = errors.New("an attendee with this phone number is already registered")
)

type (
	Repository interface {
		// CheckDuplicate reports ErrNameExists or ErrPhoneExists when an
		// active attendee already has this name (case-insensitive) or
		// primary phone. Trashed attendees never count.
		CheckDuplicate(ctx context.Context, name, phone string, exec ...core.DBExecutor) error
		CreateAttendee(ctx context.Context, att Attendee, exec ...core.DBExecutor) (Attendee, error)
		// QueryAttendees returns attendees in the filter scope, newest created first
		// unless another ordering is given.
		QueryAttendees(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Attendee, error)
		// GetAttendee resolves an attendee by ID regardless of deletion state.
		GetAttendee(ctx context.Context, id string, exec ...core.DBExecutor) (Attendee, error)
		// FindByCode matches one active attendee whose qr_code, barcode or id
		// equals code verbatim.
		FindByCode(ctx context.Context, code string, exec ...core.DBExecutor) (Attendee, error)
		// FindByCodeFuzzy matches the first active attendee whose qr_code or
		// barcode contains code (case-insensitive).
		FindByCodeFuzzy(ctx context.Context, code string, exec ...core.DBExecutor) (Attendee, error)
		UpdateAttendee(ctx context.Context, att Attendee, exec ...core.DBExecutor) (Attendee, error)
		SetAttendeeDeleted(ctx context.Context, id string, deleted bool, exec ...core.DBExecutor) error
		DeleteAttendee(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	// LogRepository persists the append-only attendance trail.
	LogRepository interface {
		AppendLog(ctx context.Context, entry Log, exec ...core.DBExecutor) (Log, error)
		QueryLogs(ctx context.Context, attendeeID string, exec ...core.DBExecutor) ([]Log, error)
	}

	Service interface {
		CheckDuplicate(ctx context.Context, name, phone string) error
		Register(ctx context.Context, na NewAttendee, createdBy string) (Attendee, error)
		BulkRegister(ctx context.Context, rows []NewAttendee, createdBy string) (BulkResult, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Attendee, error)
		GetByID(ctx context.Context, id string) (Attendee, error)
		Update(ctx context.Context, id string, ua UpdateAttendee) (Attendee, error)
		SoftDelete(ctx context.Context, id string) error
		Restore(ctx context.Context, id string) error
		Destroy(ctx context.Context, id string) error
		ToggleAttendance(ctx context.Context, id string) (Attendee, error)
		CheckIn(ctx context.Context, code, operatorID string) (CheckinResult, error)
		Logs(ctx context.Context, attendeeID string) ([]Log, error)
		Stats(ctx context.Context) (Stats, error)
	}

	service struct {
		repo    Repository
		logs    LogRepository
		mailSvc core.EmailService
		conf    *core.Config
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, logs LogRepository, mailSvc core.EmailService, conf *core.Config) *service {
	return &service{
		repo:    repo,
		logs:    logs,
		mailSvc: mailSvc,
		conf:    conf,
	}
}

func (svc *service) CheckDuplicate(ctx context.Context, name, phone string) error {
	if err := svc.repo.CheckDuplicate(ctx, name, phone); err != nil {
		var field string
		switch errors.Cause(err) {
		case ErrNameExists:
			field = "full_name"
		case ErrPhoneExists:
			field = "phone_primary"
		default:
			return err
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

func (svc *service) Register(ctx context.Context, na NewAttendee, createdBy string) (Attendee, error) {
	now := time.Now().UTC()
	att := Attendee{
		Name:           na.Name,
		PhonePrimary:   na.PhonePrimary,
		PhoneSecondary: na.PhoneSecondary,
		EmailPrimary:   na.EmailPrimary,
		EmailSecondary: na.EmailSecondary,
		FacebookLink:   na.FacebookLink,
		Governorate:    na.Governorate,
		SeatClass:      na.SeatClass,
		Status:         na.Status,
		PaymentType:    na.PaymentType,
		PaymentAmount:  na.PaymentAmount,
		CreatedBy:      createdBy,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	// the record's id doubles as its QR content; the barcode is its short form
	att.ID = uuid.New().String()
	att.QRCode = att.ID
	att.Barcode = att.ID[:8]

	// an interested attendee has paid nothing yet
	if att.Status != StatusRegistered {
		att.PaymentType = PaymentDeposit
		att.PaymentAmount = 0
	}
	if att.PaymentType == "" {
		att.PaymentType = PaymentDeposit
	}
	att.ComputeRemaining()

	att, err := svc.repo.CreateAttendee(ctx, att)
	if err != nil {
		return Attendee{}, err
	}
	svc.sendConfirmationMail(att)
	return att, nil
}

// BulkResult reports the outcome of a bulk import.
type BulkResult struct {
	Created  int        `json:"created"`
	Skipped  int        `json:"skipped"`
	Imported []Attendee `json:"imported"`
}

// BulkRegister creates the given rows, skipping any row whose name or phone
// collides with an active attendee. Rows are processed independently; a
// failed row aborts the import and reports what was created so far.
func (svc *service) BulkRegister(ctx context.Context, rows []NewAttendee, createdBy string) (BulkResult, error) {
	var res BulkResult
	for _, row := range rows {
		if err := svc.CheckDuplicate(ctx, row.Name, row.PhonePrimary); err != nil {
			if _, ok := errors.Cause(err).(*core.ValidationError); ok {
				res.Skipped++
				continue
			}
			return res, err
		}
		att, err := svc.Register(ctx, row, createdBy)
		if err != nil {
			return res, err
		}
		res.Created++
		res.Imported = append(res.Imported, att)
	}
	return res, nil
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Attendee, error) {
	if filter == nil {
		filter = new(QueryFilter)
	}
	filter.Clean()
	if ordering == nil {
		ordering = []core.DBOrdering{{Field: "created_at"}} // newest first
	}
	return svc.repo.QueryAttendees(ctx, filter, ordering)
}

func (svc *service) GetByID(ctx context.Context, id string) (Attendee, error) {
	return svc.repo.GetAttendee(ctx, id)
}

func (svc *service) Update(ctx context.Context, id string, ua UpdateAttendee) (Attendee, error) {
	att, err := svc.repo.GetAttendee(ctx, id)
	if err != nil {
		return Attendee{}, err
	}

	att.Name = ua.Name
	att.PhonePrimary = ua.PhonePrimary
	if ua.PhoneSecondary != "" {
		att.PhoneSecondary = core.CleanString(ua.PhoneSecondary)
	}
	if ua.EmailPrimary != "" {
		att.EmailPrimary = core.CleanString(ua.EmailPrimary, true /* lower */)
	}
	if ua.EmailSecondary != "" {
		att.EmailSecondary = core.CleanString(ua.EmailSecondary, true /* lower */)
	}
	if ua.FacebookLink != "" {
		att.FacebookLink = core.CleanString(ua.FacebookLink)
	}
	att.Governorate = ua.Governorate
	att.SeatClass = ua.SeatClass
	att.Status = ua.Status
	att.PaymentType = ua.PaymentType
	if ua.PaymentAmount != nil {
		att.PaymentAmount = *ua.PaymentAmount
	}
	if att.Status != StatusRegistered {
		att.PaymentAmount = 0
		att.PaymentType = PaymentDeposit
	}
	att.ComputeRemaining()
	att.UpdatedAt = time.Now().UTC()

	return svc.repo.UpdateAttendee(ctx, att)
}

func (svc *service) SoftDelete(ctx context.Context, id string) error {
	return svc.repo.SetAttendeeDeleted(ctx, id, true)
}

func (svc *service) Restore(ctx context.Context, id string) error {
	return svc.repo.SetAttendeeDeleted(ctx, id, false)
}

func (svc *service) Destroy(ctx context.Context, id string) error {
	return svc.repo.DeleteAttendee(ctx, id)
}

// ToggleAttendance flips the attendance flag from the list view. Unlike the
// scanner path it records "manual" as the recorder and appends no log entry.
func (svc *service) ToggleAttendance(ctx context.Context, id string) (Attendee, error) {
	att, err := svc.repo.GetAttendee(ctx, id)
	if err != nil {
		return Attendee{}, err
	}

	now := time.Now().UTC()
	att.AttendanceStatus = !att.AttendanceStatus
	if att.AttendanceStatus {
		att.CheckedInAt = &now
		att.CheckedInBy = CheckedInByManual
	} else {
		att.CheckedInAt = nil
		att.CheckedInBy = ""
	}
	att.UpdatedAt = now

	return svc.repo.UpdateAttendee(ctx, att)
}

// Logs returns the attendance trail of one attendee, oldest first.
func (svc *service) Logs(ctx context.Context, attendeeID string) ([]Log, error) {
	if _, err := svc.repo.GetAttendee(ctx, attendeeID); err != nil {
		return nil, err
	}
	return svc.logs.QueryLogs(ctx, attendeeID)
}

func (svc *service) sendConfirmationMail(att Attendee) {
	if svc.mailSvc == nil || att.EmailPrimary == "" {
		return
	}
	body := fmt.Sprintf(
		"Hi %s,\n\nYour registration is confirmed.\nSeat class: %s (%d EGP)\nPaid: %d EGP\nRemaining: %d EGP\n\nPlease present your QR code at the door.",
		att.Name, att.SeatClass, SeatPrice(att.SeatClass), att.PaymentAmount, att.RemainingAmount,
	)
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: att.Name, Address: att.EmailPrimary}},
		Subject: "Registration confirmed",
		BodyStr: body,
	})
}
