package model

import "time"

type Contact struct {
	ID          string  `db:"id" json:"id"`
	UserID      string  `db:"user_id" json:"-"`
	Name        string  `db:"name" json:"name"`
	Company     *string `db:"company" json:"company"`
	Email       *string `db:"email" json:"email"`
	LinkedInURL *string `db:"linkedin_url" json:"linkedinUrl"`
	Notes       *string `db:"notes" json:"notes"`
	Source      *Source `db:"source" json:"source"`
	Channel     Channel `db:"channel" json:"channel"`

	Status  Status     `db:"status" json:"status"`
	Message *string    `db:"message" json:"message"`
	SentAt  *time.Time `db:"sent_at" json:"sentAt"`

	HubSpotContactID *string     `db:"hubspot_contact_id" json:"hubspotContactId"`
	HubSpotNoteID    *string     `db:"hubspot_note_id" json:"hubspotNoteId"`
	HubSpotSync      *SyncStatus `db:"hubspot_sync_status" json:"hubspotSyncStatus"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Pending reports whether the contact is still awaiting outreach.
func (c *Contact) Pending() bool {
	return c.Status == StatusPending
}

type CreateContactParams struct {
	UserID           string
	Name             string
	Company          *string
	Email            *string
	LinkedInURL      *string
	Notes            *string
	Source           *Source
	Channel          Channel
	HubSpotContactID *string
	HubSpotSync      *SyncStatus
}

// UpdateContactParams is a partial profile edit. Nil fields are left unchanged.
type UpdateContactParams struct {
	Name        *string
	Company     *string
	Email       *string
	LinkedInURL *string
	Notes       *string
	Source      *Source
	Channel     *Channel
	Message     *string
}
