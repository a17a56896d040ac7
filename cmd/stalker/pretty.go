package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/hpungsan/stalker/internal/activity"
	"github.com/hpungsan/stalker/internal/ops"
)

type styles struct {
	title  lipgloss.Style
	label  lipgloss.Style
	detail lipgloss.Style
	header lipgloss.Style
	cell   lipgloss.Style
	empty  lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:  lipgloss.NewStyle().Bold(true),
		label:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		detail: lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		header: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("241")).PaddingRight(2),
		cell:   lipgloss.NewStyle().PaddingRight(2),
		empty:  lipgloss.NewStyle().Faint(true),
	}
}

// renderStatus renders the current activity and music slot.
func renderStatus(out *ops.LatestOutput) string {
	s := newStyles()
	lines := []string{
		s.title.Render("Currently") + " " + out.Activity.Emoji + " " + s.label.Render(activity.CapitalizeFirst(out.Activity.Label)),
		s.detail.Render("since " + formatWhen(out.Activity.Time)),
	}
	if t := out.Lastfm.Track; t != nil {
		verb := "Last played"
		if out.Lastfm.NowPlaying {
			verb = "Now playing"
		}
		track := t.Name
		if t.Artist != "" {
			track += " by " + t.Artist
		}
		lines = append(lines, "", s.title.Render(verb)+" "+track)
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// renderHistory renders entries as aligned columns.
func renderHistory(out *ops.HistoryOutput) string {
	s := newStyles()
	if len(out.Items) == 0 {
		return s.empty.Render("No history yet.")
	}

	times := []string{s.header.Render("TIME")}
	emojis := []string{s.header.Render("")}
	labels := []string{s.header.Render("ACTIVITY")}
	for _, e := range out.Items {
		times = append(times, s.cell.Render(formatWhen(e.Time)))
		emojis = append(emojis, s.cell.Render(e.Emoji))
		labels = append(labels, s.cell.Render(e.Label))
	}

	table := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.JoinVertical(lipgloss.Left, times...),
		lipgloss.JoinVertical(lipgloss.Left, emojis...),
		lipgloss.JoinVertical(lipgloss.Left, labels...),
	)

	p := out.Pagination
	footer := fmt.Sprintf("%d-%d of %d", p.Offset+1, p.Offset+len(out.Items), p.Total)
	if p.HasMore {
		footer += fmt.Sprintf(" (next: --offset %d)", p.Offset+p.Limit)
	}
	return lipgloss.JoinVertical(lipgloss.Left, table, "", s.detail.Render(footer))
}

// formatWhen formats t in local time.
func formatWhen(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04")
}
