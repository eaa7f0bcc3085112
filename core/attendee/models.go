package attendee

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/hadirapp/hadir/core"
)

// Governorates served by the event.
const (
	GovMinya = "Minya"
	GovAsyut = "Asyut"
	GovSohag = "Sohag"
	GovQena  = "Qena"
)

// Seat classes and their ticket prices (EGP).
const (
	SeatClassA = "A"
	SeatClassB = "B"
	SeatClassC = "C"
)

// Registration statuses.
const (
	StatusInterested = "interested"
	StatusRegistered = "registered"
)

// Payment types.
const (
	PaymentDeposit = "deposit"
	PaymentFull    = "full"
)

// CheckedInByManual marks attendance toggled by an operator from the list
// view rather than recorded by the scanner.
const CheckedInByManual = "manual"

var (
	Governorates = []string{GovMinya, GovAsyut, GovSohag, GovQena}

	SeatPrices = map[string]int{
		SeatClassA: 2000,
		SeatClassB: 1700,
		SeatClassC: 1500,
	}
)

// SeatPrice returns the ticket price for a seat class; unknown classes price at 0.
func SeatPrice(class string) int {
	return SeatPrices[class]
}

type Attendee struct {
	ID             string `json:"id"`
	Name           string `json:"full_name"`
	PhonePrimary   string `json:"phone_primary"`
	PhoneSecondary string `json:"phone_secondary,omitempty"`
	EmailPrimary   string `json:"email_primary,omitempty"`
	EmailSecondary string `json:"email_secondary,omitempty"`
	FacebookLink   string `json:"facebook_link,omitempty"`

	Governorate string `json:"governorate"`
	SeatClass   string `json:"seat_class"`
	Status      string `json:"status"`

	PaymentType     string `json:"payment_type"`
	PaymentAmount   int    `json:"payment_amount"`
	RemainingAmount int    `json:"remaining_amount"`

	QRCode  string `json:"qr_code,omitempty"`
	Barcode string `json:"barcode,omitempty"`

	AttendanceStatus bool       `json:"attendance_status"`
	CheckedInAt      *time.Time `json:"checked_in_at,omitempty"`
	CheckedInBy      string     `json:"checked_in_by,omitempty"`

	IsDeleted bool      `json:"is_deleted"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// ComputeRemaining re-derives RemainingAmount from the seat class and
// payment fields. An interested attendee is treated as having paid nothing.
// Must be called after every mutation touching SeatClass, Status,
// PaymentType or PaymentAmount.
func (a *Attendee) ComputeRemaining() {
	price := SeatPrice(a.SeatClass)
	switch {
	case a.Status != StatusRegistered:
		a.RemainingAmount = price
	case a.PaymentType == PaymentFull:
		a.RemainingAmount = 0
	default:
		a.RemainingAmount = price - a.PaymentAmount
		if a.RemainingAmount < 0 {
			a.RemainingAmount = 0
		}
	}
}

// NewAttendee contains information needed to register a new Attendee.
type NewAttendee struct {
	Name           string `json:"full_name" validate:"required"`
	PhonePrimary   string `json:"phone_primary" validate:"required"`
	PhoneSecondary string `json:"phone_secondary" validate:"omitempty"`
	EmailPrimary   string `json:"email_primary" validate:"omitempty,email"`
	EmailSecondary string `json:"email_secondary" validate:"omitempty,email"`
	FacebookLink   string `json:"facebook_link" validate:"omitempty,url"`
	Governorate    string `json:"governorate" validate:"required,oneof=Minya Asyut Sohag Qena"`
	SeatClass      string `json:"seat_class" validate:"required,oneof=A B C"`
	Status         string `json:"status" validate:"required,oneof=interested registered"`
	PaymentType    string `json:"payment_type" validate:"omitempty,oneof=deposit full"`
	PaymentAmount  int    `json:"payment_amount" validate:"gte=0"`
}

func (na *NewAttendee) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	na.Name = core.CleanString(na.Name)
	na.PhonePrimary = core.CleanString(na.PhonePrimary)
	na.PhoneSecondary = core.CleanString(na.PhoneSecondary)
	na.EmailPrimary = core.CleanString(na.EmailPrimary, true /* lower */)
	na.EmailSecondary = core.CleanString(na.EmailSecondary, true /* lower */)

	if err := validate.Struct(na); err != nil {
		return err
	}
	return svc.CheckDuplicate(ctx, na.Name, na.PhonePrimary)
}

// UpdateAttendee defines what information may be provided to modify an
// existing Attendee. Empty fields keep their current value; PaymentAmount
// is a pointer since 0 is a meaningful amount.
type UpdateAttendee struct {
	Name           string `json:"full_name"`
	PhonePrimary   string `json:"phone_primary"`
	PhoneSecondary string `json:"phone_secondary"`
	EmailPrimary   string `json:"email_primary" validate:"omitempty,email"`
	EmailSecondary string `json:"email_secondary" validate:"omitempty,email"`
	FacebookLink   string `json:"facebook_link"`
	Governorate    string `json:"governorate" validate:"omitempty,oneof=Minya Asyut Sohag Qena"`
	SeatClass      string `json:"seat_class" validate:"omitempty,oneof=A B C"`
	Status         string `json:"status" validate:"omitempty,oneof=interested registered"`
	PaymentType    string `json:"payment_type" validate:"omitempty,oneof=deposit full"`
	PaymentAmount  *int   `json:"payment_amount" validate:"omitempty"`
}

func (ua *UpdateAttendee) Validate(validate *validator.Validate, orig Attendee) error {
	if name := core.CleanString(ua.Name); name != "" {
		ua.Name = name
	} else {
		ua.Name = orig.Name
	}
	if phone := core.CleanString(ua.PhonePrimary); phone != "" {
		ua.PhonePrimary = phone
	} else {
		ua.PhonePrimary = orig.PhonePrimary
	}
	if ua.Governorate == "" {
		ua.Governorate = orig.Governorate
	}
	if ua.SeatClass == "" {
		ua.SeatClass = orig.SeatClass
	}
	if ua.Status == "" {
		ua.Status = orig.Status
	}
	if ua.PaymentType == "" {
		ua.PaymentType = orig.PaymentType
	}
	if ua.PaymentAmount != nil && *ua.PaymentAmount < 0 {
		return core.NewValidationError(nil, core.FieldError{Field: "payment_amount", Error: "must be 0 or more"})
	}
	return validate.Struct(ua)
}

// Scopes for listing attendees.
const (
	ScopeActive = "active"
	ScopeTrash  = "trash"
)

type QueryFilter struct {
	Scope       string `query:"-"`
	Search      string `query:"search"`
	Governorate string `query:"governorate"`
	SeatClass   string `query:"seat_class"`
	CheckedIn   *bool  `query:"checked_in"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	if qf.Scope == "" {
		qf.Scope = ScopeActive
	}
}
