package usecases

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/samirrijal/poonyc/internal/core/domain"
	"github.com/samirrijal/poonyc/internal/core/ports"
)

// MaxRating is the top of the rating scale.
const MaxRating = 5.0

// photoURLExpiry is how long presigned photo links stay valid.
const photoURLExpiry = 15 * time.Minute

// RestroomService handles the write side of the record source.
type RestroomService struct {
	repo      ports.RestroomRepository
	publisher ports.EventPublisher
	photos    ports.PhotoStore
}

// NewRestroomService creates a new RestroomService. publisher and photos may be nil.
func NewRestroomService(repo ports.RestroomRepository, publisher ports.EventPublisher, photos ports.PhotoStore) *RestroomService {
	return &RestroomService{repo: repo, publisher: publisher, photos: photos}
}

// Create validates in and stores it. Any validation problem aborts the
// submission with domain.ErrValidation before storage is touched.
func (s *RestroomService) Create(ctx context.Context, in domain.NewRestroom) (*domain.RestroomRecord, error) {
	rating, err := ValidateNewRestroom(in)
	if err != nil {
		return nil, err
	}

	rec := &domain.RestroomRecord{
		Name:               strings.TrimSpace(in.Name),
		Address:            strings.TrimSpace(in.Address),
		Description:        strings.TrimSpace(in.Description),
		Rating:             rating,
		OpenHours:          strings.TrimSpace(in.OpenHours),
		CloseHours:         strings.TrimSpace(in.CloseHours),
		DisabilityFriendly: in.DisabilityFriendly,
		ChangingStation:    in.ChangingStation,
		Saved:              in.Saved,
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("create restroom: %w", err)
	}

	if s.publisher != nil {
		ev := &domain.RestroomCreated{RecordID: rec.ID, Address: rec.Address, Time: rec.CreatedAt}
		if err := s.publisher.PublishRestroomCreated(ctx, ev); err != nil {
			// The record is stored; pins pick it up on the next reload regardless.
			slog.Warn("failed to publish restroom.created", "record_id", rec.ID, "error", err)
		}
	}
	return rec, nil
}

// ValidateNewRestroom checks every required field and returns the parsed
// rating. The error lists all problems at once.
func ValidateNewRestroom(in domain.NewRestroom) (float64, error) {
	var missing []string
	required := []struct {
		name  string
		value string
	}{
		{"name", in.Name},
		{"rating", in.Rating},
		{"open_hours", in.OpenHours},
		{"close_hours", in.CloseHours},
		{"address", in.Address},
		{"description", in.Description},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return 0, fmt.Errorf("missing required fields: %s: %w", strings.Join(missing, ", "), domain.ErrValidation)
	}

	rating, err := strconv.ParseFloat(strings.TrimSpace(in.Rating), 64)
	if err != nil {
		return 0, fmt.Errorf("rating %q is not a number: %w", in.Rating, domain.ErrValidation)
	}
	if rating < 0 || rating > MaxRating {
		return 0, fmt.Errorf("rating must be between 0 and %g, got %g: %w", MaxRating, rating, domain.ErrValidation)
	}
	return rating, nil
}

// List returns every restroom record.
func (s *RestroomService) List(ctx context.Context) ([]domain.RestroomRecord, error) {
	recs, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list restrooms: %w: %w", domain.ErrSourceFailure, err)
	}
	return recs, nil
}

// Get returns one restroom record.
func (s *RestroomService) Get(ctx context.Context, id string) (*domain.RestroomRecord, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("restroom id is required: %w", domain.ErrValidation)
	}
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("restroom %s: %w", id, domain.ErrNotFound)
	}
	return rec, nil
}

// AttachPhoto stores a photo for the restroom and returns its object key.
func (s *RestroomService) AttachPhoto(ctx context.Context, id string, r io.Reader, size int64, contentType string) (string, error) {
	if s.photos == nil {
		return "", fmt.Errorf("photo storage is not configured: %w", domain.ErrTransient)
	}
	if size <= 0 {
		return "", fmt.Errorf("photo is empty: %w", domain.ErrValidation)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("content type %q is not an image: %w", contentType, domain.ErrValidation)
	}
	if _, err := s.Get(ctx, id); err != nil {
		return "", err
	}

	key := path.Join("restrooms", id, uuid.NewString()+extensionFor(contentType))
	if err := s.photos.Put(ctx, key, r, size, contentType); err != nil {
		return "", fmt.Errorf("store photo: %w: %w", domain.ErrTransient, err)
	}
	if err := s.repo.SetPhotoKey(ctx, id, key); err != nil {
		return "", fmt.Errorf("save photo key: %w", err)
	}
	return key, nil
}

// PhotoURL returns a time-limited link to the restroom's photo.
func (s *RestroomService) PhotoURL(ctx context.Context, rec *domain.RestroomRecord) (string, error) {
	if s.photos == nil || rec.PhotoKey == "" {
		return "", fmt.Errorf("restroom %s has no photo: %w", rec.ID, domain.ErrNotFound)
	}
	return s.photos.URL(ctx, rec.PhotoKey, photoURLExpiry)
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ""
	}
}
