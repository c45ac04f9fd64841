package handler

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/flowsend/outreach-server-go/internal/errors"
	"github.com/flowsend/outreach-server-go/internal/httputil"
)

func respondJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, data)
}

func respondError(w http.ResponseWriter, err error) {
	httputil.WriteError(w, err)
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperrors.ValidationError("Invalid JSON body")
	}
	return nil
}
