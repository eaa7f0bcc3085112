package attendee

import (
	"context"

	"github.com/hadirapp/hadir/core"
)

// Stats are the dashboard aggregates over active attendees.
type Stats struct {
	Total       int `json:"total"`
	Registered  int `json:"registered"`
	Interested  int `json:"interested"`
	CheckedIn   int `json:"checked_in"`
	Collected   int `json:"collected_amount"`
	Outstanding int `json:"outstanding_amount"`

	ByGovernorate map[string]int `json:"by_governorate"`
	BySeatClass   map[string]int `json:"by_seat_class"`
}

func (svc *service) Stats(ctx context.Context) (Stats, error) {
	attendees, err := svc.repo.QueryAttendees(ctx, &QueryFilter{Scope: ScopeActive}, []core.DBOrdering{{Field: "created_at"}})
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{
		ByGovernorate: make(map[string]int, len(Governorates)),
		BySeatClass:   make(map[string]int, len(SeatPrices)),
	}
	for _, att := range attendees {
		stats.Total++
		if att.Status == StatusRegistered {
			stats.Registered++
		} else {
			stats.Interested++
		}
		if att.AttendanceStatus {
			stats.CheckedIn++
		}
		stats.Collected += att.PaymentAmount
		stats.Outstanding += att.RemainingAmount
		stats.ByGovernorate[att.Governorate]++
		stats.BySeatClass[att.SeatClass]++
	}
	return stats, nil
}
