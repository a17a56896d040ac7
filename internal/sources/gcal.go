package sources

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/hpungsan/stalker/internal/db"
	"github.com/hpungsan/stalker/internal/errors"
	"github.com/hpungsan/stalker/internal/poll"
)

// CalendarConfig holds the calendar credentials.
type CalendarConfig struct {
	CalendarID   string
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// Calendar reports the event whose window contains now, if any.
type Calendar struct {
	srv        *calendar.Service
	calendarID string
	now        func() time.Time
}

// CalendarOption configures NewCalendar.
type CalendarOption func(*calendarOptions)

type calendarOptions struct {
	endpoint      string
	tokenEndpoint oauth2.Endpoint
}

// WithCalendarEndpoint points the client at a different API root.
func WithCalendarEndpoint(url string) CalendarOption {
	return func(o *calendarOptions) { o.endpoint = url }
}

// WithTokenURL points token refresh at a different server.
func WithTokenURL(url string) CalendarOption {
	return func(o *calendarOptions) { o.tokenEndpoint = oauth2.Endpoint{TokenURL: url, AuthStyle: oauth2.AuthStyleInParams} }
}

// NewCalendar returns the calendar source. Access tokens are cached in database
// under the refresh token so restarts reuse a live token.
func NewCalendar(ctx context.Context, base *http.Client, database *sql.DB, cfg CalendarConfig, opts ...CalendarOption) (*Calendar, error) {
	o := calendarOptions{tokenEndpoint: google.Endpoint}
	for _, opt := range opts {
		opt(&o)
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     o.tokenEndpoint,
		Scopes:       []string{calendar.CalendarReadonlyScope},
	}

	// Token refresh uses the shared transport.
	refreshCtx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	ts := oauth2.ReuseTokenSource(nil, &dbTokenSource{
		db:           database,
		refreshToken: cfg.RefreshToken,
		refresher:    oauthCfg.TokenSource(refreshCtx, &oauth2.Token{RefreshToken: cfg.RefreshToken}),
	})

	client := &http.Client{
		Transport: &oauth2.Transport{Source: ts, Base: base.Transport},
		Timeout:   base.Timeout,
	}

	svcOpts := []option.ClientOption{option.WithHTTPClient(client)}
	if o.endpoint != "" {
		svcOpts = append(svcOpts, option.WithEndpoint(o.endpoint))
	}
	srv, err := calendar.NewService(ctx, svcOpts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create calendar service: %w", err)
	}
	return &Calendar{srv: srv, calendarID: cfg.CalendarID, now: time.Now}, nil
}

func (c *Calendar) Name() string    { return "calendar" }
func (c *Calendar) Kind() poll.Kind { return poll.KindCalendar }

// Fetch reads the next event. Only a confirmed event in progress counts.
func (c *Calendar) Fetch(ctx context.Context) (poll.Fact, error) {
	now := c.now()
	events, err := c.srv.Events.List(c.calendarID).
		TimeMin(now.Format(time.RFC3339)).
		MaxResults(1).
		OrderBy("startTime").
		SingleEvents(true).
		Context(ctx).
		Do()
	if err != nil {
		return nil, errors.NewUpstream(c.Name(), err)
	}
	if len(events.Items) == 0 {
		return poll.CalendarFact{}, nil
	}
	return eventFact(events.Items[0], now), nil
}

func eventFact(ev *calendar.Event, now time.Time) poll.CalendarFact {
	if ev.Status != "confirmed" || ev.Start == nil || ev.End == nil {
		return poll.CalendarFact{}
	}
	start, err := time.Parse(time.RFC3339, ev.Start.DateTime)
	if err != nil {
		return poll.CalendarFact{}
	}
	end, err := time.Parse(time.RFC3339, ev.End.DateTime)
	if err != nil {
		return poll.CalendarFact{}
	}
	if now.Before(start) || now.After(end) {
		return poll.CalendarFact{}
	}

	name := ev.Summary
	if name == "" {
		name = "(No title)"
	}
	return poll.CalendarFact{EventName: name, IsVideoMeeting: isVideoMeeting(ev)}
}

func isVideoMeeting(ev *calendar.Event) bool {
	if ev.ConferenceData != nil {
		for _, ep := range ev.ConferenceData.EntryPoints {
			if ep.EntryPointType == "video" {
				return true
			}
		}
	}
	return strings.Contains(ev.Location, "zoom.us")
}

// dbTokenSource serves the cached access token until it expires, then
// refreshes and stores the new one.
type dbTokenSource struct {
	mu           sync.Mutex
	db           *sql.DB
	refreshToken string
	refresher    oauth2.TokenSource
}

func (s *dbTokenSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := context.Background()
	row, err := db.GetOAuthToken(ctx, s.db, s.refreshToken)
	if err != nil {
		return nil, err
	}
	if row != nil {
		tok := &oauth2.Token{
			AccessToken:  row.AccessToken,
			TokenType:    row.TokenType,
			RefreshToken: s.refreshToken,
			Expiry:       row.Expiry,
		}
		if tok.Valid() {
			return tok, nil
		}
	}

	tok, err := s.refresher.Token()
	if err != nil {
		return nil, fmt.Errorf("refresh calendar token: %w", err)
	}
	err = db.UpsertOAuthToken(ctx, s.db, db.TokenRow{
		RefreshToken: s.refreshToken,
		AccessToken:  tok.AccessToken,
		TokenType:    tok.TokenType,
		Expiry:       tok.Expiry,
	})
	if err != nil {
		return nil, err
	}
	return tok, nil
}
