package service

import (
	"context"

	"fieldlog/api/internal/models"
)

// UserStore is the credential store contract. Production implementation is
// repository.UserRepository; tests substitute an in-memory fake.
type UserStore interface {
	Create(ctx context.Context, name string, email string, passwordHash []byte, role models.Role) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, bool, error)
	FindByID(ctx context.Context, id string) (models.User, bool, error)
	ListAll(ctx context.Context) ([]models.User, error)
	DeleteByID(ctx context.Context, id string) error
}

type VisitStore interface {
	Create(ctx context.Context, ownerID string, placeName string, loc models.Location, imageURL string) (models.Visit, error)
	FindByID(ctx context.Context, id string) (models.Visit, bool, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Visit, error)
	ListAllWithOwners(ctx context.Context) ([]models.VisitWithOwner, error)
	DeleteByID(ctx context.Context, id string) error
}

// BlobStore stores image payloads and returns durable retrieval URLs.
type BlobStore interface {
	Put(ctx context.Context, data []byte, originalName string, contentType string) (string, error)
	Delete(ctx context.Context, imageURL string) error
}
