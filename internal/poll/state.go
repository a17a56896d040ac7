package poll

import "fmt"

// Snapshot is a copy of every slot's last known good fact.
type Snapshot struct {
	Reservation ReservationFact
	Tracking    TrackingFact
	Music       NowPlayingFact
	Calendar    CalendarFact
}

// State holds the polling slots. It is not safe for concurrent use;
// the engine serializes access.
type State struct {
	snap Snapshot
}

// Apply replaces the slot matching f.
func (s *State) Apply(f Fact) error {
	switch v := f.(type) {
	case ReservationFact:
		s.snap.Reservation = v
	case TrackingFact:
		s.snap.Tracking = v
	case NowPlayingFact:
		s.snap.Music = v
	case CalendarFact:
		s.snap.Calendar = v
	default:
		return fmt.Errorf("unknown fact type %T", f)
	}
	return nil
}

// Snapshot returns a copy of the current slots.
func (s *State) Snapshot() Snapshot {
	snap := s.snap
	if t := snap.Music.Track; t != nil {
		copied := *t
		copied.Images = append([]string(nil), t.Images...)
		snap.Music.Track = &copied
	}
	return snap
}
