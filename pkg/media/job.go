package media

import (
	"context"
	"time"

	"github.com/vidora/vidora-backend/pkg/helpers"
)

// CleanupJob asks the media worker to delete an orphaned object, e.g. the
// previous avatar after a user replaced it.
type CleanupJob struct {
	ObjectURL   string    `json:"object_url"`
	Reason      string    `json:"reason"`
	RequestedAt time.Time `json:"requested_at"`
}

// QueuePublisher publishes cleanup jobs onto the media queue.
type QueuePublisher struct {
	Pub *helpers.RabbitPublisher
}

func NewQueuePublisher(pub *helpers.RabbitPublisher) *QueuePublisher {
	return &QueuePublisher{Pub: pub}
}

func (q *QueuePublisher) PublishCleanup(ctx context.Context, objectURL, reason string) error {
	if q == nil || q.Pub == nil {
		return nil
	}
	return q.Pub.PublishJSON(ctx, CleanupJob{
		ObjectURL:   objectURL,
		Reason:      reason,
		RequestedAt: time.Now().UTC(),
	})
}
