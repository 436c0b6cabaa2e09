package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhiarc/Dream-interpreter/internal/app"
	"github.com/abhiarc/Dream-interpreter/internal/domain"
)

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	interpretSchool = ""
	librarySchool = ""

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func setModelEnv(t *testing.T, handler http.HandlerFunc) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	t.Setenv("OPENAI_BASE_URL", srv.URL)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("SESSION_SECRET", "test-session-secret")
	t.Setenv("LOG_LEVEL", "error")
}

func TestCategoriesCommand(t *testing.T) {
	out, _, err := runCLI(t, "categories")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, len(domain.Categories())+1)
	assert.Equal(t, "General (default)", lines[0])
	assert.Equal(t, string(domain.AncientEgyptian), lines[1])
}

func TestLibraryCommand(t *testing.T) {
	out, _, err := runCLI(t, "library", "--school", "freudian psychoanalytic")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, string(domain.FreudianPsychoanalytic)+": "))
	assert.NotContains(t, out, string(domain.Gestalt)+": ")

	_, _, err = runCLI(t, "library", "--school", "astrology")
	require.ErrorIs(t, err, domain.ErrUnknownCategory)
}

func TestInterpretCommand(t *testing.T) {
	var got struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	setModelEnv(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  A river of stars.  "}}]}`))
	})

	out, _, err := runCLI(t, "interpret", "--school", "Nordic Norse", "a", "wolf", "at", "the", "door")
	require.NoError(t, err)
	assert.Equal(t, "A river of stars.\n", out)

	assert.Equal(t, "gpt-4o", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "Selected school: Nordic Norse\n\nDream:\na wolf at the door", got.Messages[1].Content)
}

func TestInterpretCommandQuotaExceeded(t *testing.T) {
	setModelEnv(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"You exceeded your current quota","type":"insufficient_quota","code":"insufficient_quota"}}`))
	})

	out, _, err := runCLI(t, "interpret", "a tower of glass")
	require.Error(t, err)
	assert.Equal(t, app.QuotaExceededMessage, err.Error())
	assert.Empty(t, out)
}

func TestInterpretCommandMissingKeyWarns(t *testing.T) {
	setModelEnv(t, func(w http.ResponseWriter, _ *http.Request) {
		t.Error("model must not be called without a key")
	})
	t.Setenv("OPENAI_API_KEY", "")

	_, stderr, err := runCLI(t, "interpret", "a tower of glass")
	require.Error(t, err)
	assert.Contains(t, stderr, "warning: OPENAI_API_KEY is not set")
	assert.Contains(t, err.Error(), "Error calling the interpretation service: ")
}

func TestInterpretCommandRejectsEmptyDream(t *testing.T) {
	setModelEnv(t, func(w http.ResponseWriter, _ *http.Request) {})

	_, _, err := runCLI(t, "interpret", "   ")
	require.ErrorIs(t, err, domain.ErrEmptyDream)
}

func TestInterpretCommandSlowNotice(t *testing.T) {
	setModelEnv(t, func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(150 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"Slow tides."}}]}`))
	})
	t.Setenv("SLOW_THRESHOLD", "30ms")

	out, stderr, err := runCLI(t, "interpret", "--school", "Gestalt", "a sleepy tortoise")
	require.NoError(t, err)
	assert.Equal(t, "Slow tides.\n", out)
	assert.Contains(t, stderr, app.SlowNotice)
}
