package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowsend/outreach-server-go/internal/middleware"
	"github.com/flowsend/outreach-server-go/internal/model"
	"github.com/flowsend/outreach-server-go/internal/service"
)

// memContactRepo backs handler tests with an in-memory contact store.
type memContactRepo struct {
	contacts []model.Contact
	nextID   int
}

func (r *memContactRepo) FindByUserID(ctx context.Context, userID string) ([]model.Contact, error) {
	var out []model.Contact
	for _, c := range r.contacts {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *memContactRepo) FindByIDAndUserID(ctx context.Context, id, userID string) (*model.Contact, error) {
	for i := range r.contacts {
		if r.contacts[i].ID == id && r.contacts[i].UserID == userID {
			c := r.contacts[i]
			return &c, nil
		}
	}
	return nil, nil
}

func (r *memContactRepo) FindExistingEmails(ctx context.Context, userID string, emails []string) ([]string, error) {
	want := make(map[string]bool, len(emails))
	for _, e := range emails {
		want[e] = true
	}
	var out []string
	for _, c := range r.contacts {
		if c.UserID == userID && c.Email != nil && want[*c.Email] {
			out = append(out, *c.Email)
		}
	}
	return out, nil
}

func (r *memContactRepo) FindFailedSync(ctx context.Context, limit int) ([]model.Contact, error) {
	return nil, nil
}

func (r *memContactRepo) Create(ctx context.Context, params model.CreateContactParams) (*model.Contact, error) {
	r.nextID++
	c := model.Contact{
		ID:               fmt.Sprintf("c%d", r.nextID),
		UserID:           params.UserID,
		Name:             params.Name,
		Company:          params.Company,
		Email:            params.Email,
		LinkedInURL:      params.LinkedInURL,
		Notes:            params.Notes,
		Source:           params.Source,
		Channel:          params.Channel,
		Status:           model.StatusPending,
		HubSpotContactID: params.HubSpotContactID,
		CreatedAt:        time.Now(),
	}
	r.contacts = append(r.contacts, c)
	return &c, nil
}

func (r *memContactRepo) CreateBatch(ctx context.Context, params []model.CreateContactParams) ([]model.Contact, error) {
	out := make([]model.Contact, 0, len(params))
	for _, p := range params {
		c, err := r.Create(ctx, p)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, nil
}

func (r *memContactRepo) Update(ctx context.Context, id, userID string, params model.UpdateContactParams) (*model.Contact, error) {
	for i := range r.contacts {
		c := &r.contacts[i]
		if c.ID != id || c.UserID != userID {
			continue
		}
		if params.Name != nil {
			c.Name = *params.Name
		}
		if params.Notes != nil {
			c.Notes = params.Notes
		}
		out := *c
		return &out, nil
	}
	return nil, nil
}

func (r *memContactRepo) MarkSent(ctx context.Context, id, userID, message string, sentAt time.Time) (*model.Contact, error) {
	for i := range r.contacts {
		c := &r.contacts[i]
		if c.ID != id || c.UserID != userID {
			continue
		}
		c.Status = model.StatusSent
		c.Message = &message
		c.SentAt = &sentAt
		out := *c
		return &out, nil
	}
	return nil, nil
}

func (r *memContactRepo) MarkSkipped(ctx context.Context, id, userID string) (*model.Contact, error) {
	for i := range r.contacts {
		c := &r.contacts[i]
		if c.ID != id || c.UserID != userID {
			continue
		}
		c.Status = model.StatusSkipped
		out := *c
		return &out, nil
	}
	return nil, nil
}

func (r *memContactRepo) UpdateSyncStatus(ctx context.Context, id, userID string, status model.SyncStatus, noteID *string) error {
	return nil
}

type recordingEnqueuer struct {
	tasks []service.SyncTask
}

func (e *recordingEnqueuer) Enqueue(task service.SyncTask) <-chan struct{} {
	e.tasks = append(e.tasks, task)
	ch := make(chan struct{})
	close(ch)
	return ch
}

var testQueueAccount = &model.Account{ID: "user-1", Email: "user@example.com", RateLimitPerMin: 60}

// withAccount injects the authenticated account the way the auth middleware does.
func withAccount(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), middleware.AccountContextKey, testQueueAccount)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func queueTestServer(repo *memContactRepo, sync service.SyncEnqueuer) *httptest.Server {
	sessions := service.NewSessionManager(repo, sync)
	h := NewQueueHandler(sessions)

	r := chi.NewRouter()
	r.Route("/api/queue", func(r chi.Router) {
		r.Use(withAccount)
		h.RegisterRoutes(r)
	})
	return httptest.NewServer(r)
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var reqBody *bytes.Buffer
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewBuffer(payload)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, url, reqBody)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func TestQueueHandlerCurrent(t *testing.T) {
	t.Run("empty queue has a null current", func(t *testing.T) {
		server := queueTestServer(&memContactRepo{}, &recordingEnqueuer{})
		defer server.Close()

		resp, body := doJSON(t, "GET", server.URL+"/api/queue/current", nil)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Nil(t, body["current"])
		assert.Equal(t, float64(0), body["remaining"])
	})
}

func TestQueueHandlerAddAndSend(t *testing.T) {
	server := queueTestServer(&memContactRepo{}, &recordingEnqueuer{})
	defer server.Close()

	resp, body := doJSON(t, "POST", server.URL+"/api/queue/contacts", map[string]any{
		"name":    "Ada Lovelace",
		"channel": "email",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	contact := body["contact"].(map[string]any)
	assert.Equal(t, "Ada Lovelace", contact["name"])

	resp, body = doJSON(t, "GET", server.URL+"/api/queue/current", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	current := body["current"].(map[string]any)
	assert.Equal(t, contact["id"], current["id"])

	resp, body = doJSON(t, "POST", server.URL+"/api/queue/current/sent", map[string]any{
		"message": "Hi Ada!",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Nil(t, body["current"])
	contacts := body["contacts"].([]any)
	require.Len(t, contacts, 1)
	assert.Equal(t, "sent", contacts[0].(map[string]any)["status"])
}

func TestQueueHandlerMarkSent(t *testing.T) {
	t.Run("without a current contact returns conflict", func(t *testing.T) {
		server := queueTestServer(&memContactRepo{}, &recordingEnqueuer{})
		defer server.Close()

		resp, body := doJSON(t, "POST", server.URL+"/api/queue/current/sent", map[string]any{
			"message": "hello",
		})

		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Equal(t, "NO_CURRENT_CONTACT", body["code"])
	})

	t.Run("requires a message", func(t *testing.T) {
		server := queueTestServer(&memContactRepo{}, &recordingEnqueuer{})
		defer server.Close()

		resp, _ := doJSON(t, "POST", server.URL+"/api/queue/current/sent", map[string]any{})

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("enqueues the CRM sync", func(t *testing.T) {
		sync := &recordingEnqueuer{}
		server := queueTestServer(&memContactRepo{}, sync)
		defer server.Close()

		doJSON(t, "POST", server.URL+"/api/queue/contacts", map[string]any{"name": "Ada"})
		resp, _ := doJSON(t, "POST", server.URL+"/api/queue/current/sent", map[string]any{"message": "ping"})

		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Len(t, sync.tasks, 1)
		assert.Equal(t, "ping", sync.tasks[0].Message)
	})
}

func TestQueueHandlerSkip(t *testing.T) {
	sync := &recordingEnqueuer{}
	server := queueTestServer(&memContactRepo{}, sync)
	defer server.Close()

	doJSON(t, "POST", server.URL+"/api/queue/contacts", map[string]any{"name": "Ada"})
	resp, body := doJSON(t, "POST", server.URL+"/api/queue/current/skip", nil)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	contacts := body["contacts"].([]any)
	assert.Equal(t, "skipped", contacts[0].(map[string]any)["status"])
	assert.Empty(t, sync.tasks)
}

func TestQueueHandlerList(t *testing.T) {
	t.Run("rejects an invalid status filter", func(t *testing.T) {
		server := queueTestServer(&memContactRepo{}, &recordingEnqueuer{})
		defer server.Close()

		resp, _ := doJSON(t, "GET", server.URL+"/api/queue/?status=bogus", nil)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("filters by search text", func(t *testing.T) {
		server := queueTestServer(&memContactRepo{}, &recordingEnqueuer{})
		defer server.Close()

		doJSON(t, "POST", server.URL+"/api/queue/contacts", map[string]any{"name": "Ada Lovelace"})
		doJSON(t, "POST", server.URL+"/api/queue/contacts", map[string]any{"name": "Grace Hopper"})

		resp, body := doJSON(t, "GET", server.URL+"/api/queue/?q=grace", nil)

		require.Equal(t, http.StatusOK, resp.StatusCode)
		contacts := body["contacts"].([]any)
		require.Len(t, contacts, 1)
		assert.Equal(t, "Grace Hopper", contacts[0].(map[string]any)["name"])
	})
}

func TestQueueHandlerImport(t *testing.T) {
	server := queueTestServer(&memContactRepo{}, &recordingEnqueuer{})
	defer server.Close()

	resp, body := doJSON(t, "POST", server.URL+"/api/queue/import", map[string]any{
		"contacts": []map[string]any{
			{"name": "Ada Lovelace", "email": "ada@example.com"},
			{"name": "Unknown"},
			{"name": "Grace Hopper"},
		},
	})

	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := body["result"].(map[string]any)
	assert.Equal(t, float64(2), result["imported"])
}

func TestQueueHandlerSelectAndUpdate(t *testing.T) {
	server := queueTestServer(&memContactRepo{}, &recordingEnqueuer{})
	defer server.Close()

	_, body := doJSON(t, "POST", server.URL+"/api/queue/contacts", map[string]any{"name": "Ada"})
	doJSON(t, "POST", server.URL+"/api/queue/contacts", map[string]any{"name": "Grace"})
	adaID := body["contact"].(map[string]any)["id"].(string)

	t.Run("select moves the current pointer", func(t *testing.T) {
		resp, body := doJSON(t, "POST", server.URL+"/api/queue/contacts/"+adaID+"/select", nil)

		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, adaID, body["current"].(map[string]any)["id"])
	})

	t.Run("select of an unknown contact is 404", func(t *testing.T) {
		resp, _ := doJSON(t, "POST", server.URL+"/api/queue/contacts/nope/select", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("patch edits the contact", func(t *testing.T) {
		resp, body := doJSON(t, "PATCH", server.URL+"/api/queue/contacts/"+adaID, map[string]any{
			"name": "Ada King",
		})

		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "Ada King", body["contact"].(map[string]any)["name"])
	})
}
