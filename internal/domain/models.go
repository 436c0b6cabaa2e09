package domain

import "strings"

// RNG abstracts random number generation for deterministic testing.
type RNG interface {
	// Intn returns a non-negative random int in [0, n).
	Intn(n int) int
}

// Category is an interpretation school applied to a single dream.
type Category string

// General is the implicit school used when the caller selects none.
const General Category = "General"

const (
	AncientEgyptian             Category = "Ancient Egyptian"
	AncientGreekOneiromancy     Category = "Ancient Greek Oneiromancy"
	BiblicalEarlyChristian      Category = "Biblical Early Christian"
	HinduVedic                  Category = "Hindu Vedic"
	NordicNorse                 Category = "Nordic Norse"
	NativeAmericanIndigenous    Category = "Native American Indigenous"
	FreudianPsychoanalytic      Category = "Freudian Psychoanalytic"
	JungianAnalyticalPsychology Category = "Jungian Analytical Psychology"
	Gestalt                     Category = "Gestalt"
	CognitiveNeuroscientific    Category = "Cognitive Neuroscientific"
	ExistentialHumanistic       Category = "Existential Humanistic"
)

var categories = []Category{
	AncientEgyptian,
	AncientGreekOneiromancy,
	BiblicalEarlyChristian,
	HinduVedic,
	NordicNorse,
	NativeAmericanIndigenous,
	FreudianPsychoanalytic,
	JungianAnalyticalPsychology,
	Gestalt,
	CognitiveNeuroscientific,
	ExistentialHumanistic,
}

// Categories returns the named schools in declaration order. General is not included.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// ParseCategory resolves a school name. Empty input selects General.
// Matching ignores surrounding whitespace and letter case.
func ParseCategory(raw string) (Category, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, string(General)) {
		return General, nil
	}
	for _, c := range categories {
		if strings.EqualFold(raw, string(c)) {
			return c, nil
		}
	}
	return "", ErrUnknownCategory
}

// SelectionCounters tracks how often each named school was submitted.
// The counts only bias display ordering.
type SelectionCounters map[Category]int

// NewSelectionCounters returns counters with a zero entry for every named school.
func NewSelectionCounters() SelectionCounters {
	c := make(SelectionCounters, len(categories))
	for _, cat := range categories {
		c[cat] = 0
	}
	return c
}

// InterpretationRequest is one submitted dream. It is immutable once created.
type InterpretationRequest struct {
	Category  Category `json:"category"`
	DreamText string   `json:"dream"`
}

// NewInterpretationRequest trims dreamText and rejects it if nothing remains.
func NewInterpretationRequest(category Category, dreamText string) (InterpretationRequest, error) {
	text := strings.TrimSpace(dreamText)
	if text == "" {
		return InterpretationRequest{}, ErrEmptyDream
	}
	if category == "" {
		category = General
	}
	return InterpretationRequest{Category: category, DreamText: text}, nil
}

// Phase is the lifecycle position of a session.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseGenerating Phase = "generating"
	PhaseDone       Phase = "done"
)

// LibraryEntry is the reference prose for one school.
type LibraryEntry struct {
	Category   Category `json:"category" yaml:"category"`
	Title      string   `json:"title" yaml:"title"`
	Paragraphs []string `json:"paragraphs" yaml:"paragraphs"`
}
