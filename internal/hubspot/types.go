package hubspot

import "time"

// RequiredScopes must match the scopes configured in the HubSpot developer portal.
var RequiredScopes = []string{
	"crm.objects.contacts.read",
	"crm.objects.companies.read",
	"crm.objects.deals.read",
}

// TokenData is the decoded result of a token-endpoint exchange.
// ExpiresAt is absolute (now + expires_in).
type TokenData struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

type oauthErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Message          string `json:"message"`
}

type remoteContact struct {
	ID         string `json:"id"`
	Properties struct {
		FirstName     string `json:"firstname"`
		LastName      string `json:"lastname"`
		Email         string `json:"email"`
		Company       string `json:"company"`
		HSLinkedInURL string `json:"hs_linkedin_url"`
		LinkedInURL   string `json:"linkedin_url"`
	} `json:"properties"`
}

type contactsPageResponse struct {
	Results []remoteContact `json:"results"`
	Paging  *struct {
		Next *struct {
			After string `json:"after"`
		} `json:"next"`
	} `json:"paging"`
}

// Contact is a HubSpot contact normalized for import.
type Contact struct {
	HubSpotID   string  `json:"hubspotId"`
	Name        string  `json:"name"`
	Email       *string `json:"email"`
	Company     *string `json:"company"`
	LinkedInURL *string `json:"linkedinUrl"`
}
