// Package activity defines the inferred status value and its persisted form.
package activity

import "time"

// Activity is the single inferred status: an emoji plus a human label.
type Activity struct {
	Emoji string `json:"emoji"`
	Label string `json:"label"`
}

// Entry is an Activity as recorded in history.
type Entry struct {
	ID    string    `json:"id"`
	Emoji string    `json:"emoji"`
	Label string    `json:"label"`
	Time  time.Time `json:"time"`
}

// Activity returns the value part of the entry.
func (e Entry) Activity() Activity {
	return Activity{Emoji: e.Emoji, Label: e.Label}
}

// Known activities produced by the resolver.
var (
	Flying      = Activity{Emoji: "🛩️", Label: "flying a plane"}
	MakingMusic = Activity{Emoji: "🎵", Label: "making music"}
	Working     = Activity{Emoji: "💼", Label: "working"}
	InClass     = Activity{Emoji: "📚", Label: "in class"}
	OnCall      = Activity{Emoji: "📞", Label: "on a call"}
	Programming = Activity{Emoji: "👩‍💻", Label: "programming"}
	Designing   = Activity{Emoji: "🎨", Label: "designing visuals"}
	Writing     = Activity{Emoji: "📝", Label: "writing something"}
	Gaming      = Activity{Emoji: "🎮", Label: "playing a game"}
	Listening   = Activity{Emoji: "🎧", Label: "listening to music"}
	Sleeping    = Activity{Emoji: "💤", Label: "sleeping"}
	OnComputer  = Activity{Emoji: "💻", Label: "doing something on my computer"}
	OnPhone     = Activity{Emoji: "📱", Label: "doing something on my phone"}
	Away        = Activity{Emoji: "✨", Label: "doing something irl"}
)

// SleepMarker is the emoji identifying an override created for sleep.
const SleepMarker = "💤"

// IsSleep reports whether a carries the sleep marker.
func (a Activity) IsSleep() bool {
	return a.Emoji == SleepMarker
}
