package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/flowsend/outreach-server-go/internal/config"
	apperrors "github.com/flowsend/outreach-server-go/internal/errors"
	"github.com/flowsend/outreach-server-go/internal/hubspot"
	"github.com/flowsend/outreach-server-go/internal/middleware"
	"github.com/flowsend/outreach-server-go/internal/model"
	"github.com/flowsend/outreach-server-go/internal/service"
)

// HubSpotHandler exposes the CRM integration: the OAuth connect flow,
// connection status, and remote contact import.
type HubSpotHandler struct {
	cfg      *config.Config
	oauth    *service.OAuthService
	vault    *service.TokenVault
	gateway  *hubspot.Client
	sessions *service.SessionManager
}

func NewHubSpotHandler(
	cfg *config.Config,
	oauth *service.OAuthService,
	vault *service.TokenVault,
	gateway *hubspot.Client,
	sessions *service.SessionManager,
) *HubSpotHandler {
	return &HubSpotHandler{
		cfg:      cfg,
		oauth:    oauth,
		vault:    vault,
		gateway:  gateway,
		sessions: sessions,
	}
}

func (h *HubSpotHandler) RegisterRoutes(r chi.Router) {
	r.Post("/connect", h.Connect)
	r.Get("/status", h.Status)
	r.Delete("/connection", h.Disconnect)
	r.Get("/contacts", h.RemoteContacts)
	r.Post("/import", h.Import)
}

// Connect starts the OAuth flow and returns the authorization URL.
func (h *HubSpotHandler) Connect(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())

	authURL, err := h.oauth.Connect(r.Context(), account.ID)
	if err != nil {
		if errors.Is(err, service.ErrNotConfigured) {
			respondError(w, apperrors.ValidationError("HubSpot integration is not configured"))
			return
		}
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"error": nil,
		"url":   authURL,
	})
}

// Callback completes the OAuth flow. It is hit by a browser redirect from
// HubSpot, so it carries no bearer token and always redirects back to the
// settings page rather than returning JSON.
func (h *HubSpotHandler) Callback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if remoteErr := query.Get("error"); remoteErr != "" {
		log.Warn().Str("error", remoteErr).Msg("hubspot oauth denied")
		h.redirectWithError(w, r, remoteErr)
		return
	}

	code := query.Get("code")
	state := query.Get("state")
	if code == "" || state == "" {
		h.redirectWithError(w, r, "missing_parameters")
		return
	}

	if _, err := h.oauth.HandleCallback(r.Context(), code, state); err != nil {
		log.Error().Err(err).Msg("hubspot oauth callback failed")
		h.redirectWithError(w, r, callbackErrorCode(err))
		return
	}

	http.Redirect(w, r, h.cfg.AppBaseURL+"/settings?hubspot_success=true", http.StatusFound)
}

func callbackErrorCode(err error) string {
	if appErr, ok := apperrors.AsAppError(err); ok {
		switch appErr.Code {
		case apperrors.ErrCodeOAuthState:
			return "invalid_state"
		case apperrors.ErrCodeOAuthExchange:
			return "exchange_failed"
		}
	}
	return "connection_failed"
}

func (h *HubSpotHandler) redirectWithError(w http.ResponseWriter, r *http.Request, code string) {
	http.Redirect(w, r, h.cfg.AppBaseURL+"/settings?hubspot_error="+url.QueryEscape(code), http.StatusFound)
}

func (h *HubSpotHandler) Status(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())

	info, err := h.oauth.Status(r.Context(), account.ID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"error":      nil,
		"connection": info,
	})
}

func (h *HubSpotHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())

	if err := h.oauth.Disconnect(r.Context(), account.ID); err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"error":   nil,
		"success": true,
	})
}

// RemoteContacts fetches the user's HubSpot contacts for import selection.
func (h *HubSpotHandler) RemoteContacts(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())

	token, err := h.vault.GetValidToken(r.Context(), account.ID)
	if err != nil {
		respondError(w, err)
		return
	}
	if token == "" {
		respondError(w, apperrors.NotConnected())
		return
	}

	contacts, err := h.gateway.FetchAllContacts(r.Context(), token)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"error":    nil,
		"contacts": contacts,
	})
}

type hubspotImportRequest struct {
	Contacts []hubspot.Contact `json:"contacts"`
	Channel  *model.Channel    `json:"channel"`
}

// Import inserts the selected HubSpot contacts into the queue, keeping their
// HubSpot linkage so later outreach can be mirrored back as notes.
func (h *HubSpotHandler) Import(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())

	var req hubspotImportRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	channel := model.ChannelLinkedIn
	if req.Channel != nil {
		if !req.Channel.Valid() {
			respondError(w, apperrors.InvalidInput("channel", string(*req.Channel)))
			return
		}
		channel = *req.Channel
	}

	source := model.SourceCold
	params := make([]model.CreateContactParams, 0, len(req.Contacts))
	for i := range req.Contacts {
		rc := &req.Contacts[i]
		hubspotID := rc.HubSpotID
		params = append(params, model.CreateContactParams{
			Name:             rc.Name,
			Company:          rc.Company,
			Email:            rc.Email,
			LinkedInURL:      rc.LinkedInURL,
			Source:           &source,
			Channel:          channel,
			HubSpotContactID: &hubspotID,
		})
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
