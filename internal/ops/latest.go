package ops

import (
	"context"

	"github.com/hpungsan/stalker/internal/activity"
	"github.com/hpungsan/stalker/internal/errors"
	"github.com/hpungsan/stalker/internal/poll"
)

// LatestOutput contains the current activity and the music slot.
type LatestOutput struct {
	Activity activity.Entry      `json:"activity"`
	Lastfm   poll.NowPlayingFact `json:"lastfm"`
}

// GetLatest returns the newest history entry.
// Returns NOT_FOUND before the first resolution.
func GetLatest(ctx context.Context, eng Engine) (*LatestOutput, error) {
	e, err := eng.Latest(ctx)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, errors.NewNotFound("activity")
	}
	return &LatestOutput{Activity: *e, Lastfm: eng.NowPlaying()}, nil
}
