package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/flowsend/outreach-server-go/internal/repository"
	"github.com/flowsend/outreach-server-go/internal/service"
)

const retryBatchSize = 50

// SyncRetryJob periodically re-enqueues sent contacts whose HubSpot note
// creation failed. Each pass picks up a bounded batch; a contact that fails
// again simply stays failed until the next pass.
type SyncRetryJob struct {
	contacts repository.ContactRepository
	sync     service.SyncEnqueuer
	interval time.Duration
	done     chan struct{}
}

func NewSyncRetryJob(contacts repository.ContactRepository, sync service.SyncEnqueuer, interval time.Duration) *SyncRetryJob {
	return &SyncRetryJob{
		contacts: contacts,
		sync:     sync,
		interval: interval,
		done:     make(chan struct{}),
	}
}

func (j *SyncRetryJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("sync retry job started")
}

func (j *SyncRetryJob) Stop() {
	close(j.done)
	log.Info().Msg("sync retry job stopped")
}

func (j *SyncRetryJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.RunOnce(context.Background())
		}
	}
}

// RunOnce re-enqueues one batch of failed syncs.
func (j *SyncRetryJob) RunOnce(ctx context.Context) {
	failed, err := j.contacts.FindFailedSync(ctx, retryBatchSize)
	if err != nil {
		log.Error().Err(err).Msg("sync retry: failed to list failed syncs")
		return
	}
	if len(failed) == 0 {
		return
	}

	for i := range failed {
		c := &failed[i]
		if c.Message == nil {
			continue
		}
		j.sync.Enqueue(service.SyncTask{
			UserID:    c.UserID,
			ContactID: c.ID,
			Message:   *c.Message,
			Channel:   c.Channel,
		})
	}

	log.Info().Int("count", len(failed)).Msg("sync retry: re-enqueued failed syncs")
}
