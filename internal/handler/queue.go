package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/flowsend/outreach-server-go/internal/errors"
	"github.com/flowsend/outreach-server-go/internal/middleware"
	"github.com/flowsend/outreach-server-go/internal/model"
	"github.com/flowsend/outreach-server-go/internal/service"
)

// QueueHandler exposes the outreach queue over HTTP. Every route operates on
// the authenticated account's own session.
type QueueHandler struct {
	sessions *service.SessionManager
}

func NewQueueHandler(sessions *service.SessionManager) *QueueHandler {
	return &QueueHandler{sessions: sessions}
}

func (h *QueueHandler) RegisterRoutes(r chi.Router) {
	r.Post("/load", h.Load)
	r.Get("/", h.List)
	r.Get("/current", h.Current)
	r.Get("/stats", h.Stats)
	r.Post("/contacts", h.AddContact)
	r.Post("/import", h.Import)
	r.Post("/current/sent", h.MarkSent)
	r.Post("/current/skip", h.Skip)
	r.Post("/contacts/{id}/select", h.Select)
	r.Patch("/contacts/{id}", h.UpdateContact)
}

type queueStateResponse struct {
	Error     any             `json:"error"`
	Contacts  []model.Contact `json:"contacts"`
	Current   *model.Contact  `json:"current"`
	Remaining int             `json:"remaining"`
}

func queueState(q *service.QueueSession) queueStateResponse {
	contacts := q.Contacts()
	if contacts == nil {
		contacts = []model.Contact{}
	}
	return queueStateResponse{
		Contacts:  contacts,
		Current:   q.Current(),
		Remaining: q.RemainingCount(),
	}
}

// Load discards any cached snapshot and reloads the queue from the store.
func (h *QueueHandler) Load(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())

	if err := h.sessions.Reload(r.Context(), account.ID); err != nil {
		respondError(w, err)
		return
	}

	err := h.sessions.With(r.Context(), account.ID, func(q *service.QueueSession) error {
		respondJSON(w, http.StatusOK, queueState(q))
		return nil
	})
	if err != nil {
		respondError(w, err)
	}
}

// List returns the queue, optionally filtered by source, status, and a
// free-text search over name and company.
func (h *QueueHandler) List(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())

	var source *model.Source
	if v := r.URL.Query().Get("source"); v != "" {
		s := model.Source(v)
		if !s.Valid() {
			respondError(w, apperrors.InvalidInput("source", v))
			return
		}
		source = &s
	}

	var status *model.Status
	if v := r.URL.Query().Get("status"); v != "" {
		s := model.Status(v)
		if !s.Valid() {
			respondError(w, apperrors.InvalidInput("status", v))
			return
		}
		status = &s
	}

	search := r.URL.Query().Get("q")

	err := h.sessions.With(r.Context(), account.ID, func(q *service.QueueSession) error {
		resp := queueState(q)
		resp.Contacts = q.Filter(source, status, search)
		respondJSON(w, http.StatusOK, resp)
		return nil
	})
	if err != nil {
		respondError(w, err)
	}
}

// Current returns the contact up for action, or null.
func (h *QueueHandler) Current(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())

	err := h.sessions.With(r.Context(), account.ID, func(q *service.QueueSession) error {
		respondJSON(w, http.StatusOK, map[string]any{
			"error":     nil,
			"current":   q.Current(),
			"remaining": q.RemainingCount(),
		})
		return nil
	})
	if err != nil {
		respondError(w, err)
	}
}

func (h *QueueHandler) Stats(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())

	err := h.sessions.With(r.Context(), account.ID, func(q *service.QueueSession) error {
		respondJSON(w, http.StatusOK, map[string]any{
			"error": nil,
			"stats": q.Stats(),
		})
		return nil
	})
	if err != nil {
		respondError(w, err)
	}
}

type addContactRequest struct {
	Name        string         `json:"name"`
	Company     *string        `json:"company"`
	Email       *string        `json:"email"`
	LinkedInURL *string        `json:"linkedinUrl"`
	Notes       *string        `json:"notes"`
	Source      *model.Source  `json:"source"`
	Channel     *model.Channel `json:"channel"`
}

func (req *addContactRequest) toParams() model.CreateContactParams {
	params := model.CreateContactParams{
		Name:        req.Name,
		Company:     req.Company,
		Email:       req.Email,
		LinkedInURL: req.LinkedInURL,
		Notes:       req.Notes,
		Source:      req.Source,
	}
	if req.Channel != nil {
		params.Channel = *req.Channel
	}
	return params
}

func (h *QueueHandler) AddContact(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())

	var req addContactRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	err := h.sessions.With(r.Context(), account.ID, func(q *service.QueueSession) error {
		contact, err := q.Add(r.Context(), req.toParams())
		if err != nil {
			return err
		}
		respondJSON(w, http.StatusCreated, map[string]any{
			"error":   nil,
			"contact": contact,
		})
		return nil
	})
	if err != nil {
		respondError(w, err)
	}
}

type importRequest struct {
	Contacts []addContactRequest `json:"contacts"`
}

func (h *QueueHandler) Import(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())

	var req importRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	params := make([]model.CreateContactParams, 0, len(req.Contacts))
	for i := range req.Contacts {
		params = append(params, req.Contacts[i].toParams())
	}

	err := h.sessions.With(r.Context(), account.ID, func(q *service.QueueSession) error {
		result, err := q.Import(r.Context(), params)
		if err != nil {
			return err
		}
		respondJSON(w, http.StatusOK, map[string]any{
			"error":  nil,
			"result": result,
		})
		return nil
	})
	if err != nil {
		respondError(w, err)
	}
}

type markSentRequest struct {
	Message string `json:"message"`
}

// MarkSent records the current contact as sent and advances the queue. The
// CRM sync runs in the background and never delays the response.
func (h *QueueHandler) MarkSent(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())

	var req markSentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.Message == "" {
		respondError(w, apperrors.MissingRequired("Message"))
		return
	}

	err := h.sessions.With(r.Context(), account.ID, func(q *service.QueueSession) error {
		if err := q.MarkSent(r.Context(), req.Message); err != nil {
			return err
		}
		respondJSON(w, http.StatusOK, queueState(q))
		return nil
	})
	if err != nil {
		respondError(w, err)
	}
}

func (h *QueueHandler) Skip(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())

	err := h.sessions.With(r.Context(), account.ID, func(q *service.QueueSession) error {
		if err := q.Skip(r.Context()); err != nil {
			return err
		}
		respondJSON(w, http.StatusOK, queueState(q))
		return nil
	})
	if err != nil {
		respondError(w, err)
	}
}

func (h *QueueHandler) Select(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())
	contactID := chi.URLParam(r, "id")

	err := h.sessions.With(r.Context(), account.ID, func(q *service.QueueSession) error {
		if err := q.Select(contactID); err != nil {
			return err
		}
		respondJSON(w, http.StatusOK, queueState(q))
		return nil
	})
	if err != nil {
		respondError(w, err)
	}
}

type updateContactRequest struct {
	Name        *string        `json:"name"`
	Company     *string        `json:"company"`
	Email       *string        `json:"email"`
	LinkedInURL *string        `json:"linkedinUrl"`
	Notes       *string        `json:"notes"`
	Source      *model.Source  `json:"source"`
	Channel     *model.Channel `json:"channel"`
	Message     *string        `json:"message"`
}

func (h *QueueHandler) UpdateContact(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())
	contactID := chi.URLParam(r, "id")

	var req updateContactRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	if req.Source != nil && !req.Source.Valid() {
		respondError(w, apperrors.InvalidInput("source", string(*req.Source)))
		return
	}
	if req.Channel != nil && !req.Channel.Valid() {
		respondError(w, apperrors.InvalidInput("channel", string(*req.Channel)))
		return
	}

	err := h.sessions.With(r.Context(), account.ID, func(q *service.QueueSession) error {
		contact, err := q.Update(r.Context(), contactID, model.UpdateContactParams{
			Name:        req.Name,
			Company:     req.Company,
			Email:       req.Email,
			LinkedInURL: req.LinkedInURL,
			Notes:       req.Notes,
			Source:      req.Source,
			Channel:     req.Channel,
			Message:     req.Message,
		})
		if err != nil {
			return err
		}
		respondJSON(w, http.StatusOK, map[string]any{
			"error":   nil,
			"contact": contact,
		})
		return nil
	})
	if err != nil {
		respondError(w, err)
	}
}
