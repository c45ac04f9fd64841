package hubspot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/flowsend/outreach-server-go/internal/config"
	apperrors "github.com/flowsend/outreach-server-go/internal/errors"
)

var contactProperties = []string{
	"firstname",
	"lastname",
	"email",
	"company",
	"hs_linkedin_url",
	"linkedin_url", // some portals use this alias
}

// FetchAllContacts pages through the contacts listing, following the `after`
// cursor until the API reports no next page or the configured cap is hit.
// Any non-2xx page fails the whole fetch; partial pages are discarded.
func (c *Client) FetchAllContacts(ctx context.Context, accessToken string) ([]Contact, error) {
	var all []remoteContact
	after := ""

	for len(all) < c.maxContacts {
		page, err := c.fetchContactsPage(ctx, accessToken, after)
		if err != nil {
			return nil, err
		}

		all = append(all, page.Results...)

		// An empty page ends the fetch even when a next cursor is present.
		if len(page.Results) == 0 {
			break
		}
		if page.Paging == nil || page.Paging.Next == nil || page.Paging.Next.After == "" {
			break
		}
		after = page.Paging.Next.After
	}

	if len(all) > c.maxContacts {
		all = all[:c.maxContacts]
	}

	log.Debug().Int("count", len(all)).Msg("fetched HubSpot contacts")

	contacts := make([]Contact, len(all))
	for i, rc := range all {
		contacts[i] = normalizeContact(rc)
	}
	return contacts, nil
}

func (c *Client) fetchContactsPage(ctx context.Context, accessToken, after string) (*contactsPageResponse, error) {
	params := url.Values{
		"limit":      {strconv.Itoa(config.HubSpotPageSize)},
		"properties": {strings.Join(contactProperties, ",")},
	}
	if after != "" {
		params.Set("after", after)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", c.apiBase+"/crm/v3/objects/contacts?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create contacts request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperrors.Gateway("HubSpot contacts endpoint unreachable", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read contacts response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		log.Error().Int("status", resp.StatusCode).Msg("HubSpot contacts fetch failed")
		return nil, apperrors.Gateway(remoteErrorMessage(body, fmt.Sprintf("HubSpot API error: %d", resp.StatusCode)), nil)
	}

	var page contactsPageResponse
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("decode contacts response: %w", err)
	}
	return &page, nil
}

func normalizeContact(rc remoteContact) Contact {
	firstName := strings.TrimSpace(rc.Properties.FirstName)
	lastName := strings.TrimSpace(rc.Properties.LastName)

	name := strings.TrimSpace(firstName + " " + lastName)
	if name == "" {
		name = "Unknown"
	}

	var linkedinURL *string
	if rc.Properties.HSLinkedInURL != "" {
		linkedinURL = &rc.Properties.HSLinkedInURL
	} else if rc.Properties.LinkedInURL != "" {
		linkedinURL = &rc.Properties.LinkedInURL
	}

	return Contact{
		HubSpotID:   rc.ID,
		Name:        name,
		Email:       trimmedOrNil(rc.Properties.Email),
		Company:     trimmedOrNil(rc.Properties.Company),
		LinkedInURL: linkedinURL,
	}
}

func trimmedOrNil(s string) *string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
