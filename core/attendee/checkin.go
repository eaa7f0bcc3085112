package attendee

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/hadirapp/hadir/core"
)

// Check-in outcomes.
const (
	CheckinSuccess        = "success"
	CheckinAlreadyChecked = "already_checked_in"
)

// Log actions.
const ActionCheckIn = "check_in"

// Log is an append-only attendance record; one entry per successful
// scanner check-in. Never updated or deleted.
type Log struct {
	ID         string    `json:"id"`
	AttendeeID string    `json:"attendee_id"`
	RecordedBy string    `json:"recorded_by"`
	Action     string    `json:"action"`
	CreatedAt  time.Time `json:"created_at"` // UTC
}

type CheckinResult struct {
	Status   string   `json:"status"`
	Attendee Attendee `json:"attendee"`
}

// CheckIn resolves a scanned or typed code to exactly one active attendee
// and marks them present.
//
// Matching is two-tier: an exact match on qr_code, barcode or id first,
// then a case-insensitive substring match on qr_code/barcode to tolerate
// scanner misreads. The fuzzy tier takes the first match in store order;
// overlapping codes can mismatch and this is a known limitation.
//
// An attendee already marked present is reported as CheckinAlreadyChecked
// with their current record; nothing is mutated and no log entry is added.
func (svc *service) CheckIn(ctx context.Context, code, operatorID string) (CheckinResult, error) {
	code = core.CleanString(code)
	if code == "" {
		return CheckinResult{}, ErrNotFound
	}

	att, err := svc.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Cause(err) != ErrNotFound {
			return CheckinResult{}, errors.Wrap(err, "finding attendee by code")
		}
		att, err = svc.repo.FindByCodeFuzzy(ctx, code)
		if err != nil {
			if errors.Cause(err) == ErrNotFound {
				return CheckinResult{}, ErrNotFound
			}
			return CheckinResult{}, errors.Wrap(err, "finding attendee by partial code")
		}
	}

	if att.AttendanceStatus {
		return CheckinResult{Status: CheckinAlreadyChecked, Attendee: att}, nil
	}

	now := time.Now().UTC()
	att.AttendanceStatus = true
	att.CheckedInAt = &now
	att.CheckedInBy = operatorID
	att.UpdatedAt = now

	att, err = svc.repo.UpdateAttendee(ctx, att)
	if err != nil {
		return CheckinResult{}, errors.Wrap(err, "saving attendance")
	}

	if _, err := svc.logs.AppendLog(ctx, Log{
		AttendeeID: att.ID,
		RecordedBy: operatorID,
		Action:     ActionCheckIn,
		CreatedAt:  now,
	}); err != nil {
		return CheckinResult{}, errors.Wrap(err, "appending attendance log")
	}

	return CheckinResult{Status: CheckinSuccess, Attendee: att}, nil
}
