package service

import (
	"context"

	"github.com/rs/zerolog"

	"fieldlog/api/internal/cache"
	"fieldlog/api/internal/models"
)

// UserService covers the admin account-management surface.
type UserService struct {
	users  UserStore
	visits VisitStore
	blobs  BlobStore
	cache  *cache.UserCache
	log    zerolog.Logger
}

func NewUserService(users UserStore, visits VisitStore, blobs BlobStore, userCache *cache.UserCache, log zerolog.Logger) *UserService {
	return &UserService{
		users:  users,
		visits: visits,
		blobs:  blobs,
		cache:  userCache,
		log:    log,
	}
}

func (s *UserService) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.users.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i] = users[i].Sanitized()
	}
	return users, nil
}

// DeleteUser removes the account. The store's cascade takes the visit rows;
// the backing blobs are cleaned up best-effort afterwards, and the auth-gate
// cache entry is dropped so outstanding tokens stop resolving.
func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	visits, err := s.visits.ListByOwner(ctx, id)
	if err != nil {
		return err
	}

	if err := s.users.DeleteByID(ctx, id); err != nil {
		return err
	}

	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.log.Warn().Err(err).Str("user_id", id).Msg("auth cache invalidation failed")
	}

	for _, visit := range visits {
		if err := s.blobs.Delete(ctx, visit.ImageURL); err != nil {
			s.log.Warn().Err(err).Str("visit_id", visit.ID).Msg("image cleanup failed")
		}
	}

	s.log.Info().Str("user_id", id).Int("visits_removed", len(visits)).Msg("user deleted")
	return nil
}
