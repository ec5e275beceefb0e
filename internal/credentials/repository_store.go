package credentials

import (
	"context"

	"github.com/playarena/arena-gateway/internal/gwerrors"
	"github.com/playarena/arena-gateway/internal/models"
)

// Repository persists credential pairs by ID, the redis adapter is the main implementation.
type Repository interface {
	GetCredentials(ctx context.Context, id string) (*models.CredentialPair, error)
	SetCredentials(ctx context.Context, id string, pair models.CredentialPair) error
	RemoveCredentials(ctx context.Context, id string) error
}

// RepositoryStore is a Store bound to a single ID in a Repository.
type RepositoryStore struct {
	repo Repository
	id   string
}

func NewRepositoryStore(repo Repository, id string) *RepositoryStore {
	return &RepositoryStore{repo: repo, id: id}
}

func (r *RepositoryStore) Get(ctx context.Context) (*models.CredentialPair, error) {
	pair, err := r.repo.GetCredentials(ctx, r.id)
	if err != nil {
		return nil, &gwerrors.StoreError{Operation: "load", Key: r.id, Cause: err}
	}
	return pair, nil
}

func (r *RepositoryStore) Set(ctx context.Context, pair models.CredentialPair) error {
	err := r.repo.SetCredentials(ctx, r.id, pair)
	if err != nil {
		return &gwerrors.StoreError{Operation: "save", Key: r.id, Cause: err}
	}
	return nil
}

func (r *RepositoryStore) Clear(ctx context.Context) error {
	err := r.repo.RemoveCredentials(ctx, r.id)
	if err != nil {
		return &gwerrors.StoreError{Operation: "clear", Key: r.id, Cause: err}
	}
	return nil
}

func (r *RepositoryStore) Key() string {
	return r.id
}
