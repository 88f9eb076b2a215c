package ai

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

type fakeMessage struct {
	ID       string   `json:"id"`
	ThreadID string   `json:"thread_id"`
	RunID    string   `json:"run_id,omitempty"`
	Role     string   `json:"role"`
	Segments []string `json:"-"`
}

// fakeAssistants emulates the subset of the Assistants API used by OpenAIClient.
type fakeAssistants struct {
	mu sync.Mutex

	seq        int
	threads    map[string][]fakeMessage
	runs       map[string][]string // run id -> remaining statuses
	runThread  map[string]string
	assistants map[string]bool

	// knobs
	failCreateThread bool
	failAppend       bool
	failCreateRun    bool
	statuses         []string
	reply            []string

	createdAssistant map[string]any
}

func newFakeAssistants() *fakeAssistants {
	return &fakeAssistants{
		threads:    map[string][]fakeMessage{},
		runs:       map[string][]string{},
		runThread:  map[string]string{},
		assistants: map[string]bool{},
		statuses:   []string{"in_progress", "completed"},
		reply:      []string{"hello"},
	}
}

func (f *fakeAssistants) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s_%d", prefix, f.seq)
}

func (f *fakeAssistants) messages(threadID string) []fakeMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fakeMessage(nil), f.threads[threadID]...)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeAPIError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{"message": msg, "type": "invalid_request_error"},
	})
}

func renderMessage(m fakeMessage) map[string]any {
	content := make([]map[string]any, 0, len(m.Segments))
	for _, s := range m.Segments {
		content = append(content, map[string]any{
			"type": "text",
			"text": map[string]any{"value": s, "annotations": []any{}},
		})
	}
	return map[string]any{
		"id":        m.ID,
		"object":    "thread.message",
		"thread_id": m.ThreadID,
		"role":      m.Role,
		"content":   content,
	}
}

func (f *fakeAssistants) router() http.Handler {
	r := chi.NewRouter()

	r.Post("/threads", func(w http.ResponseWriter, _ *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.failCreateThread {
			writeAPIError(w, http.StatusInternalServerError, "boom")
			return
		}
		id := f.nextID("thread")
		f.threads[id] = nil
		writeJSON(w, http.StatusOK, map[string]any{"id": id, "object": "thread"})
	})

	r.Post("/threads/{thread}/messages", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)

		f.mu.Lock()
		defer f.mu.Unlock()
		threadID := chi.URLParam(r, "thread")
		if _, ok := f.threads[threadID]; !ok || f.failAppend {
			writeAPIError(w, http.StatusNotFound, "no such thread")
			return
		}
		m := fakeMessage{ID: f.nextID("msg"), ThreadID: threadID, Role: req.Role, Segments: []string{req.Content}}
		f.threads[threadID] = append(f.threads[threadID], m)
		writeJSON(w, http.StatusOK, renderMessage(m))
	})

	r.Post("/threads/{thread}/runs", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		threadID := chi.URLParam(r, "thread")
		if f.failCreateRun {
			writeAPIError(w, http.StatusInternalServerError, "run failed to start")
			return
		}
		id := f.nextID("run")
		f.runs[id] = append([]string(nil), f.statuses...)
		f.runThread[id] = threadID
		writeJSON(w, http.StatusOK, map[string]any{"id": id, "object": "thread.run", "thread_id": threadID, "status": "queued"})
	})

	r.Get("/threads/{thread}/runs/{run}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		runID := chi.URLParam(r, "run")
		remaining, ok := f.runs[runID]
		if !ok {
			writeAPIError(w, http.StatusNotFound, "no such run")
			return
		}
		status := remaining[0]
		if len(remaining) > 1 {
			f.runs[runID] = remaining[1:]
		}
		if status == "completed" && len(f.reply) > 0 {
			threadID := f.runThread[runID]
			already := false
			for _, m := range f.threads[threadID] {
				if m.RunID == runID {
					already = true
				}
			}
			if !already {
				f.threads[threadID] = append(f.threads[threadID], fakeMessage{
					ID: f.nextID("msg"), ThreadID: threadID, RunID: runID, Role: "assistant", Segments: f.reply,
				})
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": runID, "object": "thread.run", "status": status})
	})

	r.Get("/threads/{thread}/messages", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		threadID := chi.URLParam(r, "thread")
		runID := r.URL.Query().Get("run_id")
		data := []map[string]any{}
		msgs := f.threads[threadID]
		for i := len(msgs) - 1; i >= 0; i-- {
			if runID != "" && msgs[i].RunID != runID {
				continue
			}
			data = append(data, renderMessage(msgs[i]))
		}
		writeJSON(w, http.StatusOK, map[string]any{"object": "list", "data": data, "has_more": false})
	})

	r.Get("/assistants/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		id := chi.URLParam(r, "id")
		if !f.assistants[id] {
			writeAPIError(w, http.StatusNotFound, "no such assistant")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": id, "object": "assistant", "model": "gpt-4o-mini"})
	})

	r.Post("/assistants", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		defer f.mu.Unlock()
		_ = json.Unmarshal(body, &f.createdAssistant)
		id := f.nextID("asst")
		f.assistants[id] = true
		writeJSON(w, http.StatusOK, map[string]any{"id": id, "object": "assistant", "model": f.createdAssistant["model"]})
	})

	return r
}

func newTestClient(t *testing.T, f *fakeAssistants, assistantID string) *OpenAIClient {
	t.Helper()
	srv := httptest.NewServer(f.router())
	t.Cleanup(srv.Close)

	return NewOpenAIClient(OpenAIConfig{
		APIKey:       "sk-test",
		BaseURL:      srv.URL,
		AssistantID:  assistantID,
		PollInterval: 5 * time.Millisecond,
		RunTimeout:   time.Second,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}
