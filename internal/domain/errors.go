package domain

import "errors"

var (
	ErrEmptyDream        = errors.New("dream text must not be empty")
	ErrUnknownCategory   = errors.New("unknown interpretation school")
	ErrInvalidTransition = errors.New("session is not in a phase that allows this action")
	ErrSessionNotFound   = errors.New("session not found")
	ErrQuotaExceeded     = errors.New("LLM quota exceeded")
	ErrUpstreamLLM       = errors.New("upstream LLM failure")
	ErrMissingAPIKey     = errors.New("LLM API key is not configured")
)
