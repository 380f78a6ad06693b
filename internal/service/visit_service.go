package service

import (
	"context"
	"math"
	"strings"

	"github.com/rs/zerolog"

	"fieldlog/api/internal/apperr"
	"fieldlog/api/internal/models"
)

type VisitService struct {
	visits VisitStore
	blobs  BlobStore
	log    zerolog.Logger
}

func NewVisitService(visits VisitStore, blobs BlobStore, log zerolog.Logger) *VisitService {
	return &VisitService{
		visits: visits,
		blobs:  blobs,
		log:    log,
	}
}

type CreateVisitInput struct {
	OwnerID      string
	PlaceName    string
	Latitude     float64
	Longitude    float64
	Image        []byte
	OriginalName string
	ContentType  string
}

// CreateVisit validates, uploads the image, then persists the metadata row,
// strictly in that order. A failed upload leaves no row behind; a failed
// insert leaves an orphaned blob, which is the accepted trade-off of
// spanning two backends without a distributed transaction.
func (s *VisitService) CreateVisit(ctx context.Context, input CreateVisitInput) (models.Visit, error) {
	if strings.TrimSpace(input.PlaceName) == "" {
		return models.Visit{}, apperr.Validation("placeName is required")
	}
	// NaN compares false against both range bounds, so it needs its own check.
	if math.IsNaN(input.Latitude) || input.Latitude < -90 || input.Latitude > 90 {
		return models.Visit{}, apperr.Validation("latitude must be between -90 and 90")
	}
	if math.IsNaN(input.Longitude) || input.Longitude < -180 || input.Longitude > 180 {
		return models.Visit{}, apperr.Validation("longitude must be between -180 and 180")
	}
	if len(input.Image) == 0 {
		return models.Visit{}, apperr.Validation("image is required")
	}

	imageURL, err := s.blobs.Put(ctx, input.Image, input.OriginalName, input.ContentType)
	if err != nil {
		return models.Visit{}, err
	}

	visit, err := s.visits.Create(ctx, input.OwnerID, input.PlaceName, models.Location{
		Latitude:  input.Latitude,
		Longitude: input.Longitude,
	}, imageURL)
	if err != nil {
		s.log.Warn().Err(err).Str("image_url", imageURL).Msg("visit insert failed, blob orphaned")
		return models.Visit{}, err
	}

	return visit, nil
}

func (s *VisitService) VisitsByOwner(ctx context.Context, ownerID string) ([]models.Visit, error) {
	return s.visits.ListByOwner(ctx, ownerID)
}

// AllVisits returns every visit with minimal owner identity. Admin-only by
// policy, enforced at the route layer.
func (s *VisitService) AllVisits(ctx context.Context) ([]models.VisitWithOwner, error) {
	return s.visits.ListAllWithOwners(ctx)
}

func (s *VisitService) VisitByID(ctx context.Context, id string) (models.Visit, error) {
	visit, found, err := s.visits.FindByID(ctx, id)
	if err != nil {
		return models.Visit{}, err
	}
	if !found {
		return models.Visit{}, apperr.NotFound("visit not found")
	}
	return visit, nil
}

// DeleteVisit removes a visit on behalf of requester. Only the owner or an
// admin may delete. The metadata row is the primary contract: it goes first,
// and a blob-deletion failure afterwards is logged and absorbed.
func (s *VisitService) DeleteVisit(ctx context.Context, id string, requester models.User) (models.Visit, error) {
	visit, found, err := s.visits.FindByID(ctx, id)
	if err != nil {
		return models.Visit{}, err
	}
	if !found {
		return models.Visit{}, apperr.NotFound("visit not found")
	}

	if requester.Role != models.RoleAdmin && requester.ID != visit.OwnerID {
		return models.Visit{}, apperr.Authorization("not authorized to delete this visit")
	}

	if err := s.visits.DeleteByID(ctx, id); err != nil {
		return models.Visit{}, err
	}

	if err := s.blobs.Delete(ctx, visit.ImageURL); err != nil {
		s.log.Warn().Err(err).Str("visit_id", visit.ID).Msg("image cleanup failed")
	}

	return visit, nil
}
