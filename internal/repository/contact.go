package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/flowsend/outreach-server-go/internal/model"
)

// contactColumns is shared by every SELECT so scans stay aligned with the model.
const contactColumns = `
	id, user_id, name, company, email, linkedin_url, notes, source, channel,
	status, message, sent_at, hubspot_contact_id, hubspot_note_id,
	hubspot_sync_status, created_at, updated_at`

type ContactRepository interface {
	FindByUserID(ctx context.Context, userID string) ([]model.Contact, error)
	FindByIDAndUserID(ctx context.Context, id, userID string) (*model.Contact, error)
	FindExistingEmails(ctx context.Context, userID string, emails []string) ([]string, error)
	FindFailedSync(ctx context.Context, limit int) ([]model.Contact, error)
	Create(ctx context.Context, params model.CreateContactParams) (*model.Contact, error)
	CreateBatch(ctx context.Context, params []model.CreateContactParams) ([]model.Contact, error)
	Update(ctx context.Context, id, userID string, params model.UpdateContactParams) (*model.Contact, error)
	MarkSent(ctx context.Context, id, userID, message string, sentAt time.Time) (*model.Contact, error)
	MarkSkipped(ctx context.Context, id, userID string) (*model.Contact, error)
	UpdateSyncStatus(ctx context.Context, id, userID string, status model.SyncStatus, noteID *string) error
}

type contactRepo struct {
	db *sqlx.DB
}

func NewContactRepository(db *sqlx.DB) ContactRepository {
	return &contactRepo{db: db}
}

func (r *contactRepo) FindByUserID(ctx context.Context, userID string) ([]model.Contact, error) {
	var contacts []model.Contact
	err := r.db.SelectContext(ctx, &contacts, `
		SELECT `+contactColumns+` FROM contacts
		WHERE user_id = $1
		ORDER BY created_at ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	return contacts, nil
}

func (r *contactRepo) FindByIDAndUserID(ctx context.Context, id, userID string) (*model.Contact, error) {
	var contact model.Contact
	err := r.db.GetContext(ctx, &contact, `
		SELECT `+contactColumns+` FROM contacts
		WHERE id = $1 AND user_id = $2
	`, id, userID)
	return HandleNotFound(&contact, err)
}

func (r *contactRepo) FindExistingEmails(ctx context.Context, userID string, emails []string) ([]string, error) {
	if len(emails) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`
		SELECT email FROM contacts
		WHERE user_id = ? AND email IN (?)
	`, userID, emails)
	if err != nil {
		return nil, err
	}

	var existing []string
	err = r.db.SelectContext(ctx, &existing, r.db.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	return existing, nil
}

// FindFailedSync returns sent, CRM-linked contacts whose last sync attempt
// failed, oldest first. Used by the retry job.
func (r *contactRepo) FindFailedSync(ctx context.Context, limit int) ([]model.Contact, error) {
	var contacts []model.Contact
	err := r.db.SelectContext(ctx, &contacts, `
		SELECT `+contactColumns+` FROM contacts
		WHERE status = 'sent'
		  AND hubspot_sync_status = 'failed'
		  AND hubspot_contact_id IS NOT NULL
		ORDER BY updated_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	return contacts, nil
}

func (r *contactRepo) Create(ctx context.Context, params model.CreateContactParams) (*model.Contact, error) {
	var contact model.Contact
	err := r.db.GetContext(ctx, &contact, `
		INSERT INTO contacts (user_id, name, company, email, linkedin_url, notes, source, channel, hubspot_contact_id, hubspot_sync_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+contactColumns+`
	`, params.UserID, params.Name, params.Company, params.Email, params.LinkedInURL,
		params.Notes, params.Source, params.Channel, params.HubSpotContactID, params.HubSpotSync)
	if err != nil {
		return nil, err
	}
	return &contact, nil
}

func (r *contactRepo) CreateBatch(ctx context.Context, params []model.CreateContactParams) ([]model.Contact, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	contacts := make([]model.Contact, 0, len(params))
	for _, p := range params {
		var contact model.Contact
		err := tx.GetContext(ctx, &contact, `
			INSERT INTO contacts (user_id, name, company, email, linkedin_url, notes, source, channel, hubspot_contact_id, hubspot_sync_status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING `+contactColumns+`
		`, p.UserID, p.Name, p.Company, p.Email, p.LinkedInURL,
			p.Notes, p.Source, p.Channel, p.HubSpotContactID, p.HubSpotSync)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, contact)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return contacts, nil
}

func (r *contactRepo) Update(ctx context.Context, id, userID string, params model.UpdateContactParams) (*model.Contact, error) {
	var contact model.Contact
	err := r.db.GetContext(ctx, &contact, `
		UPDATE contacts SET
			name = COALESCE($3, name),
			company = COALESCE($4, company),
			email = COALESCE($5, email),
			linkedin_url = COALESCE($6, linkedin_url),
			notes = COALESCE($7, notes),
			source = COALESCE($8, source),
			channel = COALESCE($9, channel),
			message = COALESCE($10, message),
			updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING `+contactColumns+`
	`, id, userID, params.Name, params.Company, params.Email, params.LinkedInURL,
		params.Notes, params.Source, params.Channel, params.Message)
	return HandleNotFound(&contact, err)
}

// MarkSent also resets the sync status to pending when the contact is linked
// to a HubSpot record, so a re-send gets a fresh sync attempt.
func (r *contactRepo) MarkSent(ctx context.Context, id, userID, message string, sentAt time.Time) (*model.Contact, error) {
	var contact model.Contact
	err := r.db.GetContext(ctx, &contact, `
		UPDATE contacts SET
			status = 'sent',
			message = $3,
			sent_at = $4,
			hubspot_sync_status = CASE WHEN hubspot_contact_id IS NOT NULL THEN 'pending' ELSE hubspot_sync_status END,
			updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING `+contactColumns+`
	`, id, userID, message, sentAt)
	return HandleNotFound(&contact, err)
}

func (r *contactRepo) MarkSkipped(ctx context.Context, id, userID string) (*model.Contact, error) {
	var contact model.Contact
	err := r.db.GetContext(ctx, &contact, `
		UPDATE contacts SET
			status = 'skipped',
			updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING `+contactColumns+`
	`, id, userID)
	return HandleNotFound(&contact, err)
}

func (r *contactRepo) UpdateSyncStatus(ctx context.Context, id, userID string, status model.SyncStatus, noteID *string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE contacts SET
			hubspot_sync_status = $3,
			hubspot_note_id = COALESCE($4, hubspot_note_id),
			updated_at = NOW()
		WHERE id = $1 AND user_id = $2
	`, id, userID, status, noteID)
	return err
}
