// Package notify pushes activity changes to an external presence display.
package notify

import (
	"context"
	"log/slog"

	"github.com/slack-go/slack"

	"github.com/hpungsan/stalker/internal/activity"
	"github.com/hpungsan/stalker/internal/errors"
)

// Sink displays an activity somewhere outside the process.
type Sink interface {
	Push(ctx context.Context, a activity.Activity) error
}

// shortcodes maps resolver emoji to Slack status shortcodes.
var shortcodes = map[string]string{
	"🛩️":  ":small_airplane:",
	"🎵":   ":musical_note:",
	"💼":   ":briefcase:",
	"📚":   ":books:",
	"📞":   ":telephone_receiver:",
	"👩‍💻": ":female-technologist:",
	"🎨":   ":art:",
	"📝":   ":memo:",
	"🎮":   ":video_game:",
	"🎧":   ":headphones:",
	"💤":   ":zzz:",
	"💻":   ":computer:",
	"📱":   ":iphone:",
	"✨":   ":sparkles:",
}

const fallbackShortcode = ":speech_balloon:"

// Shortcode returns the Slack shortcode for emoji. Values already in
// :name: form pass through.
func Shortcode(emoji string) string {
	if sc, ok := shortcodes[emoji]; ok {
		return sc
	}
	if len(emoji) > 2 && emoji[0] == ':' && emoji[len(emoji)-1] == ':' {
		return emoji
	}
	return fallbackShortcode
}

// SlackSink sets the Slack profile status.
type SlackSink struct {
	client *slack.Client
}

// NewSlackSink returns a sink authenticated with a user token.
func NewSlackSink(token string, opts ...slack.Option) *SlackSink {
	return &SlackSink{client: slack.New(token, opts...)}
}

// Push sets the status text and emoji with no expiration.
func (s *SlackSink) Push(ctx context.Context, a activity.Activity) error {
	err := s.client.SetUserCustomStatusContext(ctx, activity.CapitalizeFirst(a.Label), Shortcode(a.Emoji), 0)
	if err != nil {
		return errors.NewUpstream("slack", err)
	}
	return nil
}

// LogSink logs each push. It is used when no display is configured.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Push(_ context.Context, a activity.Activity) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("activity changed", "emoji", a.Emoji, "label", activity.CapitalizeFirst(a.Label))
	return nil
}
