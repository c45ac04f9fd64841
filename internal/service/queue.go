package service

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/flowsend/outreach-server-go/internal/config"
	apperrors "github.com/flowsend/outreach-server-go/internal/errors"
	"github.com/flowsend/outreach-server-go/internal/model"
	"github.com/flowsend/outreach-server-go/internal/repository"
)

// noCurrent marks an empty selection.
const noCurrent = -1

// SyncEnqueuer hands a completed outreach to the background CRM sync.
type SyncEnqueuer interface {
	Enqueue(task SyncTask) <-chan struct{}
}

// QueueSession is one user's outreach queue: an ordered snapshot of their
// contacts plus the index of the contact currently up for action.
//
// It is a sequential state machine, not safe for concurrent callers; the
// SessionManager serializes access per user.
type QueueSession struct {
	userID   string
	contacts []model.Contact
	current  int

	repo repository.ContactRepository
	sync SyncEnqueuer
	now  func() time.Time
}

func NewQueueSession(userID string, repo repository.ContactRepository, sync SyncEnqueuer) *QueueSession {
	return &QueueSession{
		userID:  userID,
		current: noCurrent,
		repo:    repo,
		sync:    sync,
		now:     time.Now,
	}
}

// Load replaces the snapshot from the store, ordered by creation time, and
// selects the first pending contact (or the head of the queue if none are
// pending). On store failure the previous snapshot is kept.
func (s *QueueSession) Load(ctx context.Context) error {
	contacts, err := s.repo.FindByUserID(ctx, s.userID)
	if err != nil {
		return apperrors.Database(err)
	}

	s.contacts = contacts
	s.current = noCurrent
	for i := range contacts {
		if contacts[i].Pending() {
			s.current = i
			break
		}
	}
	if s.current == noCurrent && len(contacts) > 0 {
		s.current = 0
	}
	return nil
}

// Current returns the contact up for action, or nil.
func (s *QueueSession) Current() *model.Contact {
	if s.current == noCurrent || s.current >= len(s.contacts) {
		return nil
	}
	return &s.contacts[s.current]
}

// Contacts returns the ordered snapshot.
func (s *QueueSession) Contacts() []model.Contact {
	return s.contacts
}

// RemainingCount is the number of contacts still pending.
func (s *QueueSession) RemainingCount() int {
	count := 0
	for i := range s.contacts {
		if s.contacts[i].Pending() {
			count++
		}
	}
	return count
}

// nextPendingIndex scans forward from the index after `from`, wrapping to the
// head but never revisiting `from` itself, and returns the index of the next
// pending contact or noCurrent. A completed contact is never selected.
func nextPendingIndex(contacts []model.Contact, from int) int {
	for i := from + 1; i < len(contacts); i++ {
		if contacts[i].Pending() {
			return i
		}
	}
	for i := 0; i < from && i < len(contacts); i++ {
		if contacts[i].Pending() {
			return i
		}
	}
	return noCurrent
}

// Advance moves the selection to the next pending contact.
func (s *QueueSession) Advance() {
	s.current = nextPendingIndex(s.contacts, s.current)
}

// MarkSent records the current contact as sent with the given message,
// enqueues the CRM sync as a fire-and-forget task, and advances. A sync
// failure never rolls back the sent status or blocks advancement.
func (s *QueueSession) MarkSent(ctx context.Context, message string) error {
	cur := s.Current()
	if cur == nil {
		return apperrors.NoCurrentContact()
	}

	updated, err := s.repo.MarkSent(ctx, cur.ID, s.userID, message, s.now())
	if err != nil {
		return apperrors.Database(err)
	}
	if updated == nil {
		return apperrors.NotFound("Contact")
	}

	s.contacts[s.current] = *updated

	if s.sync != nil {
		s.sync.Enqueue(SyncTask{
			UserID:    s.userID,
			ContactID: updated.ID,
			Message:   message,
			Channel:   updated.Channel,
		})
	}

	log.Info().
		Str("contactId", updated.ID).
		Str("userId", s.userID).
		Msg("contact marked sent")

	s.Advance()
	return nil
}

// Skip marks the current contact skipped and advances. No CRM sync is made.
func (s *QueueSession) Skip(ctx context.Context) error {
	cur := s.Current()
	if cur == nil {
		return apperrors.NoCurrentContact()
	}

	updated, err := s.repo.MarkSkipped(ctx, cur.ID, s.userID)
	if err != nil {
		return apperrors.Database(err)
	}
	if updated == nil {
		return apperrors.NotFound("Contact")
	}

	s.contacts[s.current] = *updated
	s.Advance()
	return nil
}

// Select moves the selection to the contact with the given id.
func (s *QueueSession) Select(id string) error {
	for i := range s.contacts {
		if s.contacts[i].ID == id {
			s.current = i
			return nil
		}
	}
	return apperrors.NotFound("Contact")
}

// Add validates and inserts a single contact, appending it to the snapshot.
// Adding to an empty queue selects the new contact.
func (s *QueueSession) Add(ctx context.Context, params model.CreateContactParams) (*model.Contact, error) {
	if strings.TrimSpace(params.Name) == "" {
		return nil, apperrors.MissingRequired("Name")
	}
	if params.Source != nil && !params.Source.Valid() {
		return nil, apperrors.InvalidInput("source", string(*params.Source))
	}
	if params.Channel == "" {
		params.Channel = model.ChannelLinkedIn
	}
	if !params.Channel.Valid() {
		return nil, apperrors.InvalidInput("channel", string(params.Channel))
	}

	params.UserID = s.userID
	contact, err := s.repo.Create(ctx, params)
	if err != nil {
		return nil, apperrors.Database(err)
	}

	wasEmpty := len(s.contacts) == 0
	s.contacts = append(s.contacts, *contact)
	if wasEmpty {
		s.current = 0
	}
	return contact, nil
}

// ImportResult reports what a bulk import did.
type ImportResult struct {
	Imported      int      `json:"imported"`
	Skipped       int      `json:"skipped"`
	SkippedEmails []string `json:"skippedEmails"`
}

// Import bulk-inserts contacts, deduplicating by email against the store and
// dropping rows without a usable name. If the queue was empty beforehand, the
// first pending imported contact becomes current.
func (s *QueueSession) Import(ctx context.Context, params []model.CreateContactParams) (*ImportResult, error) {
	if len(params) == 0 {
		return nil, apperrors.ValidationError("No contacts provided")
	}
	if len(params) > config.MaxImportBatch {
		return nil, apperrors.ValidationError("Maximum 500 contacts per import")
	}

	emails := make([]string, 0, len(params))
	for _, p := range params {
		if p.Email != nil && *p.Email != "" {
			emails = append(emails, *p.Email)
		}
	}

	existing := make(map[string]bool)
	if len(emails) > 0 {
		found, err := s.repo.FindExistingEmails(ctx, s.userID, emails)
		if err != nil {
			return nil, apperrors.Database(err)
		}
		for _, e := range found {
			existing[e] = true
		}
	}

	result := &ImportResult{}
	toInsert := make([]model.CreateContactParams, 0, len(params))
	for _, p := range params {
		if p.Email != nil && existing[*p.Email] {
			result.Skipped++
			result.SkippedEmails = append(result.SkippedEmails, *p.Email)
			continue
		}
		if strings.TrimSpace(p.Name) == "" || p.Name == "Unknown" {
			continue
		}
		if p.Channel == "" {
			p.Channel = model.ChannelLinkedIn
		}
		p.UserID = s.userID
		toInsert = append(toInsert, p)
	}

	wasEmpty := len(s.contacts) == 0

	if len(toInsert) > 0 {
		inserted, err := s.repo.CreateBatch(ctx, toInsert)
		if err != nil {
			return nil, apperrors.Database(err)
		}
		s.contacts = append(s.contacts, inserted...)
		result.Imported = len(inserted)
	}

	if wasEmpty && len(s.contacts) > 0 {
		s.current = nextPendingIndex(s.contacts, noCurrent)
	}

	if len(result.SkippedEmails) > maxSkippedEmailsShown {
		result.SkippedEmails = result.SkippedEmails[:maxSkippedEmailsShown]
	}

	log.Info().
		Str("userId", s.userID).
		Int("imported", result.Imported).
		Int("skipped", result.Skipped).
		Msg("contacts imported")

	return result, nil
}

// Update applies a partial edit and refreshes the local snapshot entry.
// The selection does not move.
func (s *QueueSession) Update(ctx context.Context, id string, params model.UpdateContactParams) (*model.Contact, error) {
	if params.Name != nil && strings.TrimSpace(*params.Name) == "" {
		return nil, apperrors.MissingRequired("Name")
	}

	updated, err := s.repo.Update(ctx, id, s.userID, params)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if updated == nil {
		return nil, apperrors.NotFound("Contact")
	}

	for i := range s.contacts {
		if s.contacts[i].ID == id {
			s.contacts[i] = *updated
			break
		}
	}
	return updated, nil
}

// Filter is a read-only projection over the snapshot. Search matches name or
// company, case-insensitive. The selection does not move.
func (s *QueueSession) Filter(source *model.Source, status *model.Status, search string) []model.Contact {
	search = strings.ToLower(strings.TrimSpace(search))

	filtered := make([]model.Contact, 0, len(s.contacts))
	for _, c := range s.contacts {
		if source != nil && (c.Source == nil || *c.Source != *source) {
			continue
		}
		if status != nil && c.Status != *status {
			continue
		}
		if search != "" && !matchesSearch(&c, search) {
			continue
		}
		filtered = append(filtered, c)
	}
	return filtered
}

func matchesSearch(c *model.Contact, search string) bool {
	if strings.Contains(strings.ToLower(c.Name), search) {
		return true
	}
	if c.Company != nil && strings.Contains(strings.ToLower(*c.Company), search) {
		return true
	}
	return false
}

// QueueStats are sent counts against now-relative boundaries.
type QueueStats struct {
	SentToday    int `json:"sentToday"`
	SentThisWeek int `json:"sentThisWeek"`
	TotalSent    int `json:"totalSent"`
}

// Stats counts sent contacts since local midnight, over the last 7 days, and
// all time.
func (s *QueueSession) Stats() QueueStats {
	now := s.now()
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekStart := todayStart.AddDate(0, 0, -7)

	var stats QueueStats
	for i := range s.contacts {
		c := &s.contacts[i]
		if c.Status != model.StatusSent || c.SentAt == nil {
			continue
		}
		stats.TotalSent++
		if !c.SentAt.Before(weekStart) {
			stats.SentThisWeek++
		}
		if !c.SentAt.Before(todayStart) {
			stats.SentToday++
		}
	}
	return stats
}

// Skipped-email lists are truncated for display.
const maxSkippedEmailsShown = 10
