package catalog

import (
	"errors"
	"fmt"
)

// Payload field keys as stored in the vector index
const (
	PayloadTrackID  = "track_id"
	PayloadTitle    = "meta_track_title"
	PayloadArtist   = "meta_artist_name"
	PayloadDuration = "meta_track_duration"
	PayloadGenre    = "meta_genre_top"
	PayloadListens  = "meta_track_listens"
)

// ErrTrackNotFound signals a recoverable absence: the id is simply not in
// the catalog. Callers map it to a 404, never to a fault.
var ErrTrackNotFound = errors.New("track not found")

// Track is catalog metadata for one stored track. The embedding vector
// lives in the index; Track carries only what the API serves.
type Track struct {
	DBID     uint64 `json:"db_id"`
	TrackID  int64  `json:"track_id"`
	Title    string `json:"track_title"`
	Artist   string `json:"artist_name"`
	Duration int64  `json:"track_duration"`
	Genre    string `json:"track_genre"`
	Listens  int64  `json:"track_listens"`
}

// ScoredTrack is a track plus its similarity to a query vector
type ScoredTrack struct {
	Track
	Similarity float64 `json:"similarity_score"`
}

// PointKind tags the two shapes the vector store returns
type PointKind int

const (
	// PointPlain is a stored record without a similarity score
	PointPlain PointKind = iota
	// PointScored is a search result carrying a similarity score
	PointScored
)

// Point is the tagged record-or-scored variant returned by the store.
// Exactly one conversion exists per variant: Track for plain points,
// ScoredTrack for scored ones.
type Point struct {
	Kind    PointKind
	ID      uint64
	Score   float64 // meaningful only for PointScored
	Payload map[string]any
	Vector  []float32
}

// Track converts a plain point into catalog metadata
func (p *Point) Track() (Track, error) {
	if p.Payload == nil {
		return Track{}, fmt.Errorf("point %d has no payload; fetch with payload enabled", p.ID)
	}

	track := Track{DBID: p.ID}
	var err error
	if track.TrackID, err = payloadInt(p.Payload, PayloadTrackID); err != nil {
		return Track{}, err
	}
	if track.Title, err = payloadString(p.Payload, PayloadTitle); err != nil {
		return Track{}, err
	}
	if track.Artist, err = payloadString(p.Payload, PayloadArtist); err != nil {
		return Track{}, err
	}
	if track.Duration, err = payloadInt(p.Payload, PayloadDuration); err != nil {
		return Track{}, err
	}
	if track.Genre, err = payloadString(p.Payload, PayloadGenre); err != nil {
		return Track{}, err
	}
	if track.Listens, err = payloadInt(p.Payload, PayloadListens); err != nil {
		return Track{}, err
	}
	return track, nil
}

// ScoredTrack converts a scored point into ranked catalog metadata
func (p *Point) ScoredTrack() (ScoredTrack, error) {
	if p.Kind != PointScored {
		return ScoredTrack{}, fmt.Errorf("point %d carries no similarity score", p.ID)
	}
	track, err := p.Track()
	if err != nil {
		return ScoredTrack{}, err
	}
	return ScoredTrack{Track: track, Similarity: p.Score}, nil
}

func payloadString(payload map[string]any, key string) (string, error) {
	v, ok := payload[key]
	if !ok {
		return "", fmt.Errorf("payload is missing %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("payload field %q is not a string", key)
	}
	return s, nil
}

func payloadInt(payload map[string]any, key string) (int64, error) {
	v, ok := payload[key]
	if !ok {
		return 0, fmt.Errorf("payload is missing %q", key)
	}
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case float64:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("payload field %q is not numeric", key)
	}
}
