// Package poll holds the per-source polling state and the scheduler that refreshes it.
package poll

// Kind identifies one polled source slot.
type Kind string

const (
	KindReservation Kind = "reservation"
	KindTracking    Kind = "tracking"
	KindMusic       Kind = "music"
	KindCalendar    Kind = "calendar"
)

// Kinds lists every slot in a fixed order.
var Kinds = []Kind{KindReservation, KindTracking, KindMusic, KindCalendar}

// Fact is the result of one successful fetch. The set of implementations is closed.
type Fact interface {
	Kind() Kind
	isFact()
}

// ReservationFact reports whether a flight reservation window contains now.
type ReservationFact struct {
	InReservation bool
}

// TrackingFact reports whether a time-tracking entry is running.
type TrackingFact struct {
	Tracking bool
}

// Track describes the most recent scrobble.
type Track struct {
	Name   string   `json:"name"`
	Artist string   `json:"artist"`
	Album  string   `json:"album"`
	Images []string `json:"images,omitempty"`
	URL    string   `json:"url"`
}

// NowPlayingFact reports the music scrobbler state.
type NowPlayingFact struct {
	NowPlaying bool   `json:"now_playing"`
	Track      *Track `json:"track,omitempty"`
}

// CalendarFact describes the current calendar event. EventName is empty when none.
type CalendarFact struct {
	EventName      string
	IsVideoMeeting bool
}

func (ReservationFact) Kind() Kind { return KindReservation }
func (TrackingFact) Kind() Kind    { return KindTracking }
func (NowPlayingFact) Kind() Kind  { return KindMusic }
func (CalendarFact) Kind() Kind    { return KindCalendar }

func (ReservationFact) isFact() {}
func (TrackingFact) isFact()    {}
func (NowPlayingFact) isFact()  {}
func (CalendarFact) isFact()    {}
