package repository

import "context"

// ChannelStats aggregates the subscription counters for a channel user.
type ChannelStats struct {
	SubscribersCount  int64
	SubscribedToCount int64
	IsSubscribed      bool
}

// SubscriptionRepository is a read-only view over the subscriptions
// collection owned by the subscription service.
type SubscriptionRepository interface {
	// Stats returns subscriber/subscribed-to counts for channelID and, when
	// viewerID is non-empty, whether the viewer subscribes to the channel.
	Stats(ctx context.Context, channelID, viewerID string) (ChannelStats, error)
}

// AuditRepository records auth events for later inspection.
type AuditRepository interface {
	Insert(ctx context.Context, e AuditEntry) error
}

// AuditEntry is one auth event row. Empty fields are stored as NULL.
type AuditEntry struct {
	UserID    string
	Email     string
	Action    string
	IP        string
	UserAgent string
	Metadata  map[string]any
}
