package ops

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hpungsan/stalker/internal/activity"
	"github.com/hpungsan/stalker/internal/blackboard"
	"github.com/hpungsan/stalker/internal/db"
	"github.com/hpungsan/stalker/internal/engine"
	"github.com/hpungsan/stalker/internal/errors"
	"github.com/hpungsan/stalker/internal/history"
	"github.com/hpungsan/stalker/internal/resolver"
)

// afternoon is outside quiet hours so an idle board resolves to away.
var afternoon = time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

func newEngine(t *testing.T) (*engine.Engine, *blackboard.Board) {
	t.Helper()
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	board := blackboard.New(database, blackboard.TTLs{Apps: 2 * time.Minute, Domains: 2 * time.Minute, Presence: 12 * time.Hour})
	eng := engine.New(board, history.New(database), resolver.New(resolver.DefaultParams()), nil, engine.Options{
		PresenceUserID: "zoom-user",
		Now:            func() time.Time { return afternoon },
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return eng, board
}

func assertCode(t *testing.T, err error, code errors.ErrorCode) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	if !errors.Is(err, code) {
		t.Fatalf("error = %v, want code %s", err, code)
	}
}

func TestValidateDevice(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"desktop", "desktop", false},
		{" Mobile ", "mobile", false},
		{"watch", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ValidateDevice(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateDevice(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ValidateDevice(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestReportPing(t *testing.T) {
	eng, _ := newEngine(t)
	ctx := context.Background()

	out, err := ReportPing(ctx, eng, ReportPingInput{Device: "desktop"})
	if err != nil {
		t.Fatalf("ReportPing failed: %v", err)
	}
	if out.Activity != activity.OnComputer {
		t.Errorf("Activity = %+v, want %+v", out.Activity, activity.OnComputer)
	}

	_, err = ReportPing(ctx, eng, ReportPingInput{Device: "toaster"})
	assertCode(t, err, errors.ErrInvalidRequest)
}

func TestReportList_NormalizesDomains(t *testing.T) {
	eng, board := newEngine(t)
	ctx := context.Background()

	if _, err := ReportPing(ctx, eng, ReportPingInput{Device: "desktop"}); err != nil {
		t.Fatalf("ReportPing failed: %v", err)
	}
	out, err := ReportList(ctx, eng, ReportListInput{
		Category: "domains",
		Origin:   "Chrome",
		Items:    []string{"WWW.GitHub.com", "github.com", " ", "news.ycombinator.com"},
	})
	if err != nil {
		t.Fatalf("ReportList failed: %v", err)
	}
	if out.Activity != activity.Programming {
		t.Errorf("Activity = %+v, want %+v", out.Activity, activity.Programming)
	}

	items, err := board.ReadList(ctx, blackboard.Domains, afternoon)
	if err != nil {
		t.Fatalf("ReadList failed: %v", err)
	}
	want := []string{"github.com", "news.ycombinator.com"}
	if len(items) != len(want) || items[0] != want[0] || items[1] != want[1] {
		t.Errorf("items = %v, want %v", items, want)
	}
}

func TestReportList_Validation(t *testing.T) {
	eng, _ := newEngine(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		input ReportListInput
	}{
		{"bad category", ReportListInput{Category: "tabs", Origin: "laptop", Items: []string{}}},
		{"missing origin", ReportListInput{Category: "apps", Items: []string{}}},
		{"missing list", ReportListInput{Category: "apps", Origin: "laptop"}},
		{"too many items", ReportListInput{Category: "apps", Origin: "laptop", Items: make([]string, MaxListItems+1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReportList(ctx, eng, tt.input)
			assertCode(t, err, errors.ErrInvalidRequest)
		})
	}

	// An empty list is a valid report
	if _, err := ReportList(ctx, eng, ReportListInput{Category: "apps", Origin: "laptop", Items: []string{}}); err != nil {
		t.Errorf("empty list: %v", err)
	}
}

func TestReportZoomEvent_Presence(t *testing.T) {
	eng, _ := newEngine(t)
	ctx := context.Background()

	ev := ZoomEvent{Event: ZoomPresenceUpdated}
	ev.Payload.Object.ID = "ZOOM-USER"
	ev.Payload.Object.PresenceStatus = "Presenting"

	out, err := ReportZoomEvent(ctx, eng, "secret", ev)
	if err != nil {
		t.Fatalf("ReportZoomEvent failed: %v", err)
	}
	if out.Activity == nil || out.Activity.Activity != activity.OnCall {
		t.Fatalf("Activity = %+v, want on a call", out.Activity)
	}

	ev.Payload.Object.PresenceStatus = "Available"
	out, err = ReportZoomEvent(ctx, eng, "secret", ev)
	if err != nil {
		t.Fatalf("ReportZoomEvent failed: %v", err)
	}
	if out.Activity.Activity != activity.Away {
		t.Errorf("Activity = %+v, want away", out.Activity.Activity)
	}
}

func TestReportZoomEvent_URLValidation(t *testing.T) {
	eng, _ := newEngine(t)

	ev := ZoomEvent{Event: ZoomURLValidation}
	ev.Payload.PlainToken = "qgg8vlvZRS6UYooatFL8Aw"

	out, err := ReportZoomEvent(context.Background(), eng, "secret", ev)
	if err != nil {
		t.Fatalf("ReportZoomEvent failed: %v", err)
	}
	if out.Validation == nil {
		t.Fatal("Validation should not be nil")
	}
	if out.Validation.PlainToken != ev.Payload.PlainToken {
		t.Errorf("PlainToken = %q", out.Validation.PlainToken)
	}
	if out.Validation.EncryptedToken != SignZoomToken("secret", ev.Payload.PlainToken) {
		t.Errorf("EncryptedToken = %q", out.Validation.EncryptedToken)
	}
	if len(out.Validation.EncryptedToken) != 64 {
		t.Errorf("EncryptedToken length = %d, want 64 hex chars", len(out.Validation.EncryptedToken))
	}

	_, err = ReportZoomEvent(context.Background(), eng, "", ev)
	assertCode(t, err, errors.ErrInvalidRequest)
}

func TestReportZoomEvent_UnknownIgnored(t *testing.T) {
	eng, _ := newEngine(t)
	out, err := ReportZoomEvent(context.Background(), eng, "secret", ZoomEvent{Event: "meeting.started"})
	if err != nil {
		t.Fatalf("ReportZoomEvent failed: %v", err)
	}
	if out.Activity != nil || out.Validation != nil {
		t.Errorf("expected empty output, got %+v", out)
	}
}

func TestManual(t *testing.T) {
	eng, _ := newEngine(t)
	ctx := context.Background()

	out, err := SetManual(ctx, eng, SetManualInput{Emoji: "🍕", Label: "  eating pizza "})
	if err != nil {
		t.Fatalf("SetManual failed: %v", err)
	}
	if out.Activity.Label != "eating pizza" {
		t.Errorf("Label = %q, want trimmed", out.Activity.Label)
	}

	_, err = SetManual(ctx, eng, SetManualInput{Emoji: "🍕"})
	assertCode(t, err, errors.ErrInvalidRequest)

	out, err = ClearManual(ctx, eng)
	if err != nil {
		t.Fatalf("ClearManual failed: %v", err)
	}
	if out.Activity != activity.Away {
		t.Errorf("Activity = %+v, want away", out.Activity)
	}
}

func TestGetLatest(t *testing.T) {
	eng, _ := newEngine(t)
	ctx := context.Background()

	_, err := GetLatest(ctx, eng)
	assertCode(t, err, errors.ErrNotFound)

	if _, err := eng.Refresh(ctx); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	out, err := GetLatest(ctx, eng)
	if err != nil {
		t.Fatalf("GetLatest failed: %v", err)
	}
	if out.Activity.Emoji != activity.Away.Emoji {
		t.Errorf("Emoji = %q, want %q", out.Activity.Emoji, activity.Away.Emoji)
	}
}

func TestHistory_Pagination(t *testing.T) {
	eng, _ := newEngine(t)
	ctx := context.Background()

	// away -> computer -> pizza -> computer
	eng.Refresh(ctx)
	ReportPing(ctx, eng, ReportPingInput{Device: "desktop"})
	SetManual(ctx, eng, SetManualInput{Emoji: "🍕", Label: "eating"})
	ClearManual(ctx, eng)

	out, err := History(ctx, eng, HistoryInput{Limit: 2})
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(out.Items) != 2 {
		t.Fatalf("len(Items) = %d, want 2", len(out.Items))
	}
	if !out.Pagination.HasMore || out.Pagination.Total != 4 {
		t.Errorf("Pagination = %+v", out.Pagination)
	}
	if out.Items[0].Emoji != activity.OnComputer.Emoji {
		t.Errorf("newest = %q, want computer", out.Items[0].Emoji)
	}

	out, err = History(ctx, eng, HistoryInput{Limit: 1000, Offset: -5})
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if out.Pagination.Limit != MaxHistoryLimit || out.Pagination.Offset != 0 {
		t.Errorf("Pagination = %+v, want clamped", out.Pagination)
	}
	if out.Pagination.HasMore {
		t.Error("HasMore should be false")
	}
}
