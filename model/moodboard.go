package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// MaxMoodLength is the maximum accepted length of a mood description,
// in runes. Longer input is clamped, not rejected.
const MaxMoodLength = 500

// Track is one playlist entry. A track is either provider-suggested
// (catalog fields empty) or catalog-resolved (catalog fields present).
// Duplicates are permitted; order within a playlist is meaningful.
type Track struct {
	Name       string  `json:"name"`
	Artist     string  `json:"artist"`
	Album      string  `json:"album"`
	Duration   string  `json:"duration"` // mm:ss
	CatalogURL string  `json:"catalogUrl,omitempty"`
	CatalogID  string  `json:"catalogId,omitempty"`
	PreviewURL *string `json:"previewUrl,omitempty"`
}

// TrackCandidate is a name/artist pair to resolve against the catalog.
type TrackCandidate struct {
	Name   string `json:"name"`
	Artist string `json:"artist"`
}

// SuggestedTrack is a track as suggested by the completion provider.
// Album and duration may be absent.
type SuggestedTrack struct {
	Name     string `json:"name"`
	Artist   string `json:"artist"`
	Album    string `json:"album,omitempty"`
	Duration string `json:"duration,omitempty"`
}

// CompletionResult is the parsed output of one mood analysis.
type CompletionResult struct {
	PoeticCaption   string           `json:"poeticCaption"`
	CatalogQuery    string           `json:"spotifyQuery"`
	ImagePrompt     string           `json:"visualPrompt"`
	SuggestedTracks []SuggestedTrack `json:"suggestedTracks"`
}

// MoodboardResult is the composite artifact the pipeline produces.
// It is always fully formed: a degraded board carries fallback content
// instead of empty fields.
type MoodboardResult struct {
	OriginalMood  string   `json:"originalMood"`
	PoeticCaption string   `json:"poeticCaption"`
	Playlist      []Track  `json:"playlist"` // at most 6, relevance order
	Images        []string `json:"images"`   // at most 4, generation order
}

// TrackList serializes a playlist as a JSON column.
type TrackList []Track

// Value implements driver.Valuer.
func (l TrackList) Value() (driver.Value, error) {
	if l == nil {
		l = TrackList{}
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner.
func (l *TrackList) Scan(value interface{}) error {
	if value == nil {
		*l = TrackList{}
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		if s, sok := value.(string); sok {
			b = []byte(s)
		} else {
			return fmt.Errorf("unsupported type %T for TrackList", value)
		}
	}
	return json.Unmarshal(b, l)
}

// ImageList serializes image references as a JSON column.
type ImageList []string

// Value implements driver.Valuer.
func (l ImageList) Value() (driver.Value, error) {
	if l == nil {
		l = ImageList{}
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner.
func (l *ImageList) Scan(value interface{}) error {
	if value == nil {
		*l = ImageList{}
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		if s, sok := value.(string); sok {
			b = []byte(s)
		} else {
			return fmt.Errorf("unsupported type %T for ImageList", value)
		}
	}
	return json.Unmarshal(b, l)
}

// MoodboardRecord is a persisted, shareable moodboard.
type MoodboardRecord struct {
	ID            string    `json:"id" gorm:"primaryKey;size:64"`
	OriginalMood  string    `json:"originalMood" gorm:"column:original_mood;type:text"`
	PoeticCaption string    `json:"poeticCaption" gorm:"column:poetic_caption;type:text"`
	Playlist      TrackList `json:"playlist" gorm:"column:playlist;type:json"`
	Images        ImageList `json:"images" gorm:"column:images;type:json"`
	ViewCount     int64     `json:"viewCount" gorm:"column:view_count;not null;default:0"`
	CreatedAt     time.Time `json:"createdAt" gorm:"column:created_at"`
}

// TableName sets the table name for GORM.
func (MoodboardRecord) TableName() string {
	return "moodboards"
}

// Result converts a stored record back into a MoodboardResult.
func (r *MoodboardRecord) Result() *MoodboardResult {
	return &MoodboardResult{
		OriginalMood:  r.OriginalMood,
		PoeticCaption: r.PoeticCaption,
		Playlist:      []Track(r.Playlist),
		Images:        []string(r.Images),
	}
}

// NewMoodboardRecord builds an unsaved record from a pipeline result.
func NewMoodboardRecord(id string, result *MoodboardResult) *MoodboardRecord {
	return &MoodboardRecord{
		ID:            id,
		OriginalMood:  result.OriginalMood,
		PoeticCaption: result.PoeticCaption,
		Playlist:      TrackList(result.Playlist),
		Images:        ImageList(result.Images),
		ViewCount:     0,
	}
}
