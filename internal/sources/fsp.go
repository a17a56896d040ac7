package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hpungsan/stalker/internal/errors"
	"github.com/hpungsan/stalker/internal/poll"
)

const (
	fspLoginURL = "https://app.flightschedulepro.com"
	fspAPIURL   = "https://api.flightschedulepro.com"

	// fspOffset is the zone FSP omits from reservation timestamps.
	fspOffset = "-05:00"
)

// FSP reports whether an upcoming flight reservation window contains now.
type FSP struct {
	client     *http.Client
	operatorID int
	username   string
	password   string
	loginURL   string
	apiURL     string
	now        func() time.Time
}

// NewFSP returns the flight reservation source.
func NewFSP(client *http.Client, operatorID int, username, password string) *FSP {
	return &FSP{
		client:     client,
		operatorID: operatorID,
		username:   username,
		password:   password,
		loginURL:   fspLoginURL,
		apiURL:     fspAPIURL,
		now:        time.Now,
	}
}

func (f *FSP) Name() string    { return "fsp" }
func (f *FSP) Kind() poll.Kind { return poll.KindReservation }

type fspSession struct {
	Token      string `json:"token"`
	OperatorID int    `json:"operatorId"`
}

type fspUpcoming struct {
	Results []struct {
		ID string `json:"id"`
	} `json:"results"`
}

type fspReservation struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Fetch logs in, then checks the first upcoming reservation's window.
func (f *FSP) Fetch(ctx context.Context) (poll.Fact, error) {
	session, err := f.login(ctx)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("pageIndex", "1")
	q.Set("pageSize", "1")
	upcomingURL := fmt.Sprintf("%s/api/V1/operator/%d/dashboard/upcomingreservations?%s", f.apiURL, session.OperatorID, q.Encode())
	req, err := http.NewRequest(http.MethodGet, upcomingURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Basic "+session.Token)

	var upcoming fspUpcoming
	if err := doJSON(ctx, f.client, f.Name(), req, &upcoming); err != nil {
		return nil, err
	}
	if len(upcoming.Results) == 0 {
		return poll.ReservationFact{}, nil
	}

	q = url.Values{}
	q.Set("operatorId", strconv.Itoa(session.OperatorID))
	reservationURL := fmt.Sprintf("%s/api/V2/Reservation/%s?%s", f.apiURL, url.PathEscape(upcoming.Results[0].ID), q.Encode())
	req, err = http.NewRequest(http.MethodGet, reservationURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+session.Token)

	var res fspReservation
	if err := doJSON(ctx, f.client, f.Name(), req, &res); err != nil {
		return nil, err
	}

	start, err := parseFSPTime(res.Start)
	if err != nil {
		return nil, errors.NewUpstream(f.Name(), err)
	}
	end, err := parseFSPTime(res.End)
	if err != nil {
		return nil, errors.NewUpstream(f.Name(), err)
	}

	now := f.now()
	return poll.ReservationFact{InReservation: !now.Before(start) && !now.After(end)}, nil
}

// login posts credentials and reads the session from the FspApp cookie.
// The login endpoint redirects on success, so redirects are not followed.
func (f *FSP) login(ctx context.Context) (*fspSession, error) {
	form := url.Values{}
	form.Set("username", f.username)
	form.Set("password", f.password)
	form.Set("uv_login", "0")
	form.Set("uv_ssl", "0")

	loginURL := fmt.Sprintf("%s/Account/Login/%d", f.loginURL, f.operatorID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, loginURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	noRedirect := *f.client
	noRedirect.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	resp, err := noRedirect.Do(req)
	if err != nil {
		return nil, errors.NewUpstream(f.Name(), err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	for _, c := range resp.Cookies() {
		if c.Name != "FspApp" {
			continue
		}
		raw, err := url.QueryUnescape(c.Value)
		if err != nil {
			return nil, errors.NewUpstream(f.Name(), fmt.Errorf("decode session cookie: %w", err))
		}
		var session fspSession
		if err := json.Unmarshal([]byte(raw), &session); err != nil {
			return nil, errors.NewUpstream(f.Name(), fmt.Errorf("parse session cookie: %w", err))
		}
		if session.OperatorID == 0 {
			session.OperatorID = f.operatorID
		}
		return &session, nil
	}
	return nil, errors.NewUpstream(f.Name(), fmt.Errorf("login failed: no session cookie (status %d)", resp.StatusCode))
}

func parseFSPTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s+fspOffset)
}
