package ports

import (
	"context"

	"github.com/abhiarc/Dream-interpreter/internal/prompt"
)

// Interpreter sends one prompt payload to a chat model and returns its reply text.
// Implementations must not retry: the first failure is returned as-is.
type Interpreter interface {
	Interpret(ctx context.Context, p prompt.Payload) (string, error)
}
