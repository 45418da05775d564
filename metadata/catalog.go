package metadata

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"moodmusic/model"
)

// ErrInvalidTrack is returned when a track lacks the fields a record needs.
var ErrInvalidTrack = errors.New("invalid track")

// Catalog stores Track records. Every method is a single statement
// against the store, so no transactions are needed and the Catalog
// is safe for concurrent use.
type Catalog struct {
	db  *gorm.DB
	now func() time.Time
}

// CatalogOption configures a Catalog.
type CatalogOption func(*Catalog)

// WithClock replaces time.Now for timestamps.
func WithClock(now func() time.Time) CatalogOption {
	return func(c *Catalog) {
		c.now = now
	}
}

// NewCatalog migrates the tracks table on db and returns a Catalog over it.
func NewCatalog(db *gorm.DB, options ...CatalogOption) (*Catalog, error) {
	if err := db.AutoMigrate(&model.Track{}); err != nil {
		return nil, fmt.Errorf("%w: AutoMigrate: %v", ErrPersistence, err)
	}

	c := &Catalog{db: db, now: time.Now}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// Insert appends track. An empty Timestamp is set to now, an empty Type
// to "generated", and AudioURL is normalized to its store-relative form.
func (c *Catalog) Insert(ctx context.Context, track *model.Track) error {
	if track.AudioURL == "" || track.Emotion == "" {
		return fmt.Errorf("%w: emotion and audio url are required", ErrInvalidTrack)
	}

	track.AudioURL = model.NormalizeAudioURL(track.AudioURL)
	if track.Timestamp == "" {
		track.Timestamp = model.FormatTimestamp(c.now())
	}
	if track.Type == "" {
		track.Type = model.TrackTypeGenerated
	}

	if err := c.db.WithContext(ctx).Create(track).Error; err != nil {
		logger.WithContext(ctx).
			WithField("audio_url", track.AudioURL).
			WithError(err).
			Error("Insert: Create failed")
		return fmt.Errorf("%w: insert: %v", ErrPersistence, err)
	}
	return nil
}

// ListGenerated returns every record whose type is not "liked",
// newest first by timestamp.
func (c *Catalog) ListGenerated(ctx context.Context) ([]model.Track, error) {
	tracks := make([]model.Track, 0)
	err := c.db.WithContext(ctx).
		Where("type <> ?", model.TrackTypeLiked).
		Order("timestamp DESC").
		Order("id DESC").
		Find(&tracks).Error
	if err != nil {
		return nil, fmt.Errorf("%w: list generated: %v", ErrPersistence, err)
	}
	return tracks, nil
}

// ListLiked returns every "liked" record. Callers do not rely on the order.
func (c *Catalog) ListLiked(ctx context.Context) ([]model.Track, error) {
	tracks := make([]model.Track, 0)
	err := c.db.WithContext(ctx).
		Where("type = ?", model.TrackTypeLiked).
		Find(&tracks).Error
	if err != nil {
		return nil, fmt.Errorf("%w: list liked: %v", ErrPersistence, err)
	}
	return tracks, nil
}

// LikedTrack is the caller supplied part of a like.
type LikedTrack struct {
	Title    string
	Emotion  string
	AudioURL string
}

// Like inserts a new "liked" record built from liked.
//
// Likes are not deduplicated: liking the same audio twice stores two records.
func (c *Catalog) Like(ctx context.Context, liked LikedTrack) (*model.Track, error) {
	title := strings.TrimSpace(liked.Title)
	if title == "" {
		title = liked.Emotion + " Track"
	}

	track := &model.Track{
		Title:    title,
		Emotion:  liked.Emotion,
		AudioURL: liked.AudioURL,
		Type:     model.TrackTypeLiked,
	}
	if err := c.Insert(ctx, track); err != nil {
		return nil, err
	}
	return track, nil
}

// DeleteByAudioURL removes at most one record whose audio url matches u.
// u may be absolute (scheme and host are stripped) or store-relative.
// It reports whether a record was removed; not finding one is not an error.
//
// The audio itself is left in the audio store.
func (c *Catalog) DeleteByAudioURL(ctx context.Context, u string) (bool, error) {
	ref := model.NormalizeAudioURL(u)
	if ref == "" {
		return false, nil
	}

	var track model.Track
	err := c.db.WithContext(ctx).
		Where("audio_url = ?", ref).
		Order("id").
		Limit(1).
		Find(&track).Error
	if err != nil {
		return false, fmt.Errorf("%w: find %s: %v", ErrPersistence, ref, err)
	}
	if track.ID == 0 {
		return false, nil
	}

	// Track embeds a DeletedAt: without Unscoped gorm would only mark the row
	res := c.db.WithContext(ctx).Unscoped().Delete(&model.Track{}, track.ID)
	if res.Error != nil {
		return false, fmt.Errorf("%w: delete %s: %v", ErrPersistence, ref, res.Error)
	}
	return res.RowsAffected > 0, nil
}
