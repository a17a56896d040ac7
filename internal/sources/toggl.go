package sources

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hpungsan/stalker/internal/poll"
)

const togglBaseURL = "https://api.track.toggl.com/api/v9"

// Toggl reports whether a time entry is running.
type Toggl struct {
	client  *http.Client
	apiKey  string
	baseURL string
}

// NewToggl returns the time-tracking source.
func NewToggl(client *http.Client, apiKey string) *Toggl {
	return &Toggl{client: client, apiKey: apiKey, baseURL: togglBaseURL}
}

func (t *Toggl) Name() string    { return "toggl" }
func (t *Toggl) Kind() poll.Kind { return poll.KindTracking }

// Fetch reads the current time entry. The API answers null when none runs.
func (t *Toggl) Fetch(ctx context.Context) (poll.Fact, error) {
	req, err := http.NewRequest(http.MethodGet, t.baseURL+"/me/time_entries/current", nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(t.apiKey, "api_token")

	var entry json.RawMessage
	if err := doJSON(ctx, t.client, t.Name(), req, &entry); err != nil {
		return nil, err
	}
	return poll.TrackingFact{Tracking: len(entry) > 0 && string(entry) != "null"}, nil
}
