package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/abhiarc/Dream-interpreter/internal/domain"
)

// CounterStore holds SelectionCounters per session.
type CounterStore interface {
	Increment(ctx context.Context, sessionID uuid.UUID, category domain.Category) error
	Counts(ctx context.Context, sessionID uuid.UUID) (domain.SelectionCounters, error)
	Delete(ctx context.Context, sessionID uuid.UUID) error
}
