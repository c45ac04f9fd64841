package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/flowsend/outreach-server-go/internal/model"
	"github.com/flowsend/outreach-server-go/internal/repository"
)

// SyncTask asks for one sent outreach to be mirrored into HubSpot as a note.
type SyncTask struct {
	UserID    string
	ContactID string
	Message   string
	Channel   model.Channel
}

// TokenSource yields a usable access token, or "" when the user has no
// working connection.
type TokenSource interface {
	GetValidToken(ctx context.Context, userID string) (string, error)
}

// NoteCreator logs an outreach note against a remote CRM contact.
type NoteCreator interface {
	CreateNote(ctx context.Context, accessToken, contactID, message string, channel model.Channel) (string, error)
}

type syncJob struct {
	task   SyncTask
	doneCh chan struct{}
}

// SyncWorker processes sync tasks on a background goroutine. Enqueue never
// blocks the caller, and task outcomes land on the contact's sync status
// field; they are never surfaced to the queue-advance path.
type SyncWorker struct {
	contacts repository.ContactRepository
	tokens   TokenSource
	notes    NoteCreator
	timeout  time.Duration

	tasks chan syncJob
	done  chan struct{}
}

const syncQueueSize = 256

func NewSyncWorker(
	contacts repository.ContactRepository,
	tokens TokenSource,
	notes NoteCreator,
	timeout time.Duration,
) *SyncWorker {
	return &SyncWorker{
		contacts: contacts,
		tokens:   tokens,
		notes:    notes,
		timeout:  timeout,
		tasks:    make(chan syncJob, syncQueueSize),
		done:     make(chan struct{}),
	}
}

func (w *SyncWorker) Start() {
	go w.run()
	log.Info().Msg("sync worker started")
}

func (w *SyncWorker) Stop() {
	close(w.done)
	log.Info().Msg("sync worker stopped")
}

func (w *SyncWorker) run() {
	for {
		select {
		case <-w.done:
			return
		case job := <-w.tasks:
			w.process(job.task)
			close(job.doneCh)
		}
	}
}

// Enqueue hands a task to the worker and returns a channel that closes when
// the task has been processed, so tests can await completion deterministically.
// If the backlog is full the task is recorded as failed instead of blocking.
func (w *SyncWorker) Enqueue(task SyncTask) <-chan struct{} {
	job := syncJob{task: task, doneCh: make(chan struct{})}

	select {
	case w.tasks <- job:
	default:
		log.Warn().Str("contactId", task.ContactID).Msg("sync queue full, recording task as failed")
		w.setStatus(task, model.SyncFailed, nil)
		close(job.doneCh)
	}
	return job.doneCh
}

func (w *SyncWorker) process(task SyncTask) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	contact, err := w.contacts.FindByIDAndUserID(ctx, task.ContactID, task.UserID)
	if err != nil {
		log.Error().Err(err).Str("contactId", task.ContactID).Msg("sync: failed to load contact")
		return
	}
	if contact == nil {
		log.Warn().Str("contactId", task.ContactID).Msg("sync: contact no longer exists")
		return
	}

	// No CRM linkage means nothing to mirror. Quick-added contacts land here.
	if contact.HubSpotContactID == nil {
		w.setStatus(task, model.SyncSkipped, nil)
		return
	}

	token, err := w.tokens.GetValidToken(ctx, task.UserID)
	if err != nil || token == "" {
		if err != nil {
			log.Error().Err(err).Str("userId", task.UserID).Msg("sync: token retrieval failed")
		}
		w.setStatus(task, model.SyncFailed, nil)
		return
	}

	noteID, err := w.notes.CreateNote(ctx, token, *contact.HubSpotContactID, task.Message, task.Channel)
	if err != nil {
		log.Error().Err(err).Str("contactId", task.ContactID).Msg("sync: note creation failed")
		w.setStatus(task, model.SyncFailed, nil)
		return
	}

	w.setStatus(task, model.SyncSynced, &noteID)
	log.Info().
		Str("contactId", task.ContactID).
		Str("noteId", noteID).
		Msg("outreach synced to hubspot")
}

func (w *SyncWorker) setStatus(task SyncTask, status model.SyncStatus, noteID *string) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	if err := w.contacts.UpdateSyncStatus(ctx, task.ContactID, task.UserID, status, noteID); err != nil {
		log.Error().Err(err).
			Str("contactId", task.ContactID).
			Str("status", string(status)).
			Msg("sync: failed to record sync status")
	}
}
