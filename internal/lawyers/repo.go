package lawyers

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("lawyer not found")

// Repo defines persistence operations for lawyers. List results are ranked
// by rating descending, then cases won descending.
type Repo interface {
	Create(ctx context.Context, l Lawyer) error
	GetByID(ctx context.Context, id string) (Lawyer, error)
	ListVerifiedBySpecialization(ctx context.Context, specialization string, limit int) ([]Lawyer, error)
	ListTopVerified(ctx context.Context, limit int) ([]Lawyer, error)
}
