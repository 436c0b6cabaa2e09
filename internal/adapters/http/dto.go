package http

import (
	"time"

	"github.com/abhiarc/Dream-interpreter/internal/app"
	"github.com/abhiarc/Dream-interpreter/internal/domain"
)

// SubmitRequest is the JSON body accepted by POST /v1/session/submit.
type SubmitRequest struct {
	Category string `json:"category"`
	Dream    string `json:"dream"`
}

// SessionResponse is the JSON shape of every session endpoint.
type SessionResponse struct {
	SessionID string          `json:"session_id"`
	Phase     domain.Phase    `json:"phase"`
	Category  domain.Category `json:"category,omitempty"`
	Dream     string          `json:"dream,omitempty"`
	StartedAt *time.Time      `json:"started_at,omitempty"`
	ElapsedMS int64           `json:"elapsed_ms"`
	Slow      bool            `json:"slow"`
	Result    *ResultResp     `json:"result,omitempty"`
	Warnings  []string        `json:"warnings"`
	RequestID string          `json:"request_id,omitempty"`
}

type ResultResp struct {
	Text   string `json:"text"`
	Failed bool   `json:"failed"`
}

type CategoriesResponse struct {
	Default    domain.Category   `json:"default"`
	Categories []domain.Category `json:"categories"`
}

type LibraryResponse struct {
	Entries []domain.LibraryEntry `json:"entries"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func toSessionResponse(s app.Snapshot, warnings []string, requestID string) SessionResponse {
	resp := SessionResponse{
		SessionID: s.SessionID.String(),
		Phase:     s.Phase,
		ElapsedMS: s.Elapsed.Milliseconds(),
		Slow:      s.Slow,
		Warnings:  warnings,
		RequestID: requestID,
	}
	if resp.Warnings == nil {
		resp.Warnings = []string{}
	}
	if s.Request != nil {
		resp.Category = s.Request.Category
		resp.Dream = s.Request.DreamText
	}
	if !s.StartedAt.IsZero() {
		started := s.StartedAt
		resp.StartedAt = &started
	}
	if s.Result != nil {
		resp.Result = &ResultResp{Text: s.Result.Text, Failed: s.Result.Failed}
	}
	return resp
}
