package hubspot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/flowsend/outreach-server-go/internal/errors"
	"github.com/flowsend/outreach-server-go/internal/model"
)

// HubSpot-defined association type for note -> contact.
const noteToContactAssociationTypeID = 202

type noteRequest struct {
	Properties struct {
		Timestamp string `json:"hs_timestamp"`
		NoteBody  string `json:"hs_note_body"`
	} `json:"properties"`
	Associations []noteAssociation `json:"associations"`
}

type noteAssociation struct {
	To struct {
		ID string `json:"id"`
	} `json:"to"`
	Types []struct {
		AssociationCategory string `json:"associationCategory"`
		AssociationTypeID   int    `json:"associationTypeId"`
	} `json:"types"`
}

// CreateNote logs an outreach as a note on the given HubSpot contact and
// returns the created note's id.
func (c *Client) CreateNote(ctx context.Context, accessToken, contactID, message string, channel model.Channel) (string, error) {
	noteBody := fmt.Sprintf("%s outreach via FlowSend:\n\n%s", channel.Label(), message)

	var reqBody noteRequest
	reqBody.Properties.Timestamp = strconv.FormatInt(time.Now().UnixMilli(), 10)
	reqBody.Properties.NoteBody = noteBody

	var assoc noteAssociation
	assoc.To.ID = contactID
	assoc.Types = append(assoc.Types, struct {
		AssociationCategory string `json:"associationCategory"`
		AssociationTypeID   int    `json:"associationTypeId"`
	}{
		AssociationCategory: "HUBSPOT_DEFINED",
		AssociationTypeID:   noteToContactAssociationTypeID,
	})
	reqBody.Associations = append(reqBody.Associations, assoc)

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("encode note request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.apiBase+"/crm/v3/objects/notes", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create note request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", apperrors.Gateway("HubSpot notes endpoint unreachable", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read note response: %w", err)
	}

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		log.Error().Int("status", resp.StatusCode).Str("contactId", contactID).Msg("HubSpot note creation failed")
		return "", apperrors.Gateway(remoteErrorMessage(body, fmt.Sprintf("HubSpot API error: %d", resp.StatusCode)), nil)
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		return "", fmt.Errorf("decode note response: %w", err)
	}
	return created.ID, nil
}
