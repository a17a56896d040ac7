package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/hpungsan/stalker/internal/errors"
	"github.com/hpungsan/stalker/internal/poll"
)

const lastfmBaseURL = "https://ws.audioscrobbler.com/2.0/"

// Lastfm reports the scrobbler's now-playing state and latest track.
type Lastfm struct {
	client   *http.Client
	username string
	apiKey   string
	baseURL  string
}

// NewLastfm returns the music source.
func NewLastfm(client *http.Client, username, apiKey string) *Lastfm {
	return &Lastfm{client: client, username: username, apiKey: apiKey, baseURL: lastfmBaseURL}
}

func (l *Lastfm) Name() string    { return "lastfm" }
func (l *Lastfm) Kind() poll.Kind { return poll.KindMusic }

type lastfmText struct {
	Text string `json:"#text"`
}

type lastfmRecentTracks struct {
	RecentTracks struct {
		Track []struct {
			Name   string     `json:"name"`
			URL    string     `json:"url"`
			Artist lastfmText `json:"artist"`
			Album  lastfmText `json:"album"`
			Image  []struct {
				Text string `json:"#text"`
				Size string `json:"size"`
			} `json:"image"`
			Attr *struct {
				NowPlaying string `json:"nowplaying"`
			} `json:"@attr"`
		} `json:"track"`
	} `json:"recenttracks"`
}

// Fetch reads the most recent scrobble. An empty history is an error.
func (l *Lastfm) Fetch(ctx context.Context) (poll.Fact, error) {
	q := url.Values{}
	q.Set("method", "user.getrecenttracks")
	q.Set("user", l.username)
	q.Set("api_key", l.apiKey)
	q.Set("format", "json")
	q.Set("limit", "1")

	req, err := http.NewRequest(http.MethodGet, l.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var body lastfmRecentTracks
	if err := doJSON(ctx, l.client, l.Name(), req, &body); err != nil {
		return nil, err
	}
	if len(body.RecentTracks.Track) == 0 {
		return nil, errors.NewUpstream(l.Name(), fmt.Errorf("no recent tracks"))
	}

	tr := body.RecentTracks.Track[0]
	images := make([]string, 0, len(tr.Image))
	for _, img := range tr.Image {
		images = append(images, img.Text)
	}
	return poll.NowPlayingFact{
		NowPlaying: tr.Attr != nil && tr.Attr.NowPlaying == "true",
		Track: &poll.Track{
			Name:   tr.Name,
			Artist: tr.Artist.Text,
			Album:  tr.Album.Text,
			Images: images,
			URL:    tr.URL,
		},
	}, nil
}
