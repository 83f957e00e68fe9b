package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vidora/vidora-backend/internal/domain/repository"
)

type SubscriptionRepository struct {
	pool *pgxpool.Pool
}

func NewSubscriptionRepository(pool *pgxpool.Pool) *SubscriptionRepository {
	return &SubscriptionRepository{pool: pool}
}

// Stats computes the channel counters in one round trip. SubscribedToCount is
// the count of subscriptions where the channel user is the subscriber.
func (r *SubscriptionRepository) Stats(ctx context.Context, channelID, viewerID string) (repository.ChannelStats, error) {
	var s repository.ChannelStats
	err := r.pool.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM subscriptions WHERE channel_id = $1),
			(SELECT count(*) FROM subscriptions WHERE subscriber_id = $1),
			EXISTS (
				SELECT 1 FROM subscriptions
				WHERE channel_id = $1 AND subscriber_id::text = $2
			)
	`, channelID, viewerID).Scan(&s.SubscribersCount, &s.SubscribedToCount, &s.IsSubscribed)
	return s, err
}

var _ repository.SubscriptionRepository = (*SubscriptionRepository)(nil)
