package ports

import (
	"context"

	"github.com/abhiarc/Dream-interpreter/internal/domain"
)

// Library provides static reference prose for each school.
type Library interface {
	Entries(ctx context.Context) ([]domain.LibraryEntry, error)
	Entry(ctx context.Context, category domain.Category) (domain.LibraryEntry, error)
}
