package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/hadirapp/hadir/core/attendee"
	"github.com/hadirapp/hadir/core/scanqueue"
)

// apiResolver submits scans to the check-in endpoint. The operator identity
// comes from the bearer token; connectivity failures and server errors are
// reported as scanqueue.ErrUnavailable so the scan gets queued, anything else
// is a definitive rejection.
type apiResolver struct {
	baseURL string
	token   string
	client  *http.Client
}

var _ scanqueue.Resolver = (*apiResolver)(nil)

func newAPIResolver(baseURL, token string) *apiResolver {
	return &apiResolver{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type checkinResponse struct {
	Status   string            `json:"status"`
	Attendee attendee.Attendee `json:"attendee"`
}

func (r *apiResolver) Resolve(ctx context.Context, code, operatorID string) error {
	_, err := r.checkin(ctx, code)
	return err
}

func (r *apiResolver) checkin(ctx context.Context, code string) (checkinResponse, error) {
	body, err := json.Marshal(map[string]string{"code": code})
	if err != nil {
		return checkinResponse{}, errors.Wrap(err, "encoding check-in request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/api/checkin", bytes.NewReader(body))
	if err != nil {
		return checkinResponse{}, errors.Wrap(err, "building check-in request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.token)

	res, err := r.client.Do(req)
	if err != nil {
		return checkinResponse{}, errors.Wrap(scanqueue.ErrUnavailable, err.Error())
	}
	defer func() { _ = res.Body.Close() }()

	switch {
	case res.StatusCode == http.StatusOK:
		var data checkinResponse
		if err := json.NewDecoder(res.Body).Decode(&data); err != nil {
			return checkinResponse{}, errors.Wrap(err, "decoding check-in response")
		}
		return data, nil
	case res.StatusCode >= http.StatusInternalServerError:
		return checkinResponse{}, errors.Wrapf(scanqueue.ErrUnavailable, "server returned %d", res.StatusCode)
	case res.StatusCode == http.StatusNotFound:
		return checkinResponse{}, attendee.ErrNotFound
	default:
		return checkinResponse{}, fmt.Errorf("check-in rejected (status %d)", res.StatusCode)
	}
}
