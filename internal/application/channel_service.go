package application

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/vidora/vidora-backend/internal/domain/entity"
	repo "github.com/vidora/vidora-backend/internal/domain/repository"
	"github.com/vidora/vidora-backend/pkg/helpers"
)

// ChannelService serves the read models: channel profiles, watch history,
// and channel search. It depends only on the credential store, the read-only
// subscription view, and ambient cache/search infrastructure.
type ChannelService struct {
	Users    repo.UserRepository
	Subs     repo.SubscriptionRepository
	Redis    *redis.Client
	CacheTTL time.Duration
	Logger   *logrus.Logger
	ES       *elasticsearch.Client
	ESIndex  string
}

func NewChannelService(users repo.UserRepository, subs repo.SubscriptionRepository, rdb *redis.Client, cacheTTL time.Duration, logger *logrus.Logger, es *elasticsearch.Client, esIndex string) *ChannelService {
	return &ChannelService{
		Users:    users,
		Subs:     subs,
		Redis:    rdb,
		CacheTTL: cacheTTL,
		Logger:   logger,
		ES:       es,
		ESIndex:  esIndex,
	}
}

// ChannelProfile is the public channel projection.
type ChannelProfile struct {
	FullName          string    `json:"fullname"`
	Username          string    `json:"username"`
	SubscribersCount  int64     `json:"subscribersCount"`
	SubscribedToCount int64     `json:"subscribedToCount"`
	IsSubscribed      bool      `json:"isSubscribed"`
	AvatarURL         string    `json:"avatar"`
	CoverImageURL     string    `json:"coverImage,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
}

// WatchHistoryEntry is one watched video with its owner projected down to
// the public channel fields.
type WatchHistoryEntry struct {
	VideoID         string    `json:"videoId"`
	Title           string    `json:"title"`
	ThumbnailURL    string    `json:"thumbnail"`
	DurationSeconds int       `json:"duration"`
	Owner           OwnerView `json:"owner"`
}

type OwnerView struct {
	FullName  string `json:"fullname"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar"`
}

func channelCacheKey(username string) string {
	return "channel:profile:" + strings.ToLower(username)
}

// GetChannelProfile builds the channel projection for username. viewerID may
// be empty for anonymous requests; only anonymous projections are cached,
// since IsSubscribed is viewer-specific.
func (s *ChannelService) GetChannelProfile(ctx context.Context, username, viewerID string) (*ChannelProfile, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, invalid("username is required")
	}

	if viewerID == "" && s.Redis != nil && s.CacheTTL > 0 {
		var cached ChannelProfile
		if ok, err := helpers.RedisGetJSON(ctx, s.Redis, channelCacheKey(username), &cached); err == nil && ok {
			return &cached, nil
		}
	}

	u, err := s.Users.GetByUsername(ctx, username)
	if err != nil || u == nil {
		return nil, notFound("channel does not exist")
	}
	stats, err := s.Subs.Stats(ctx, u.ID, viewerID)
	if err != nil {
		return nil, internal("failed to load channel stats", err)
	}

	profile := &ChannelProfile{
		FullName:          u.FullName,
		Username:          u.Username,
		SubscribersCount:  stats.SubscribersCount,
		SubscribedToCount: stats.SubscribedToCount,
		IsSubscribed:      stats.IsSubscribed,
		AvatarURL:         u.AvatarURL,
		CoverImageURL:     u.CoverImageURL,
		CreatedAt:         u.CreatedAt,
	}

	if viewerID == "" && s.Redis != nil && s.CacheTTL > 0 {
		if err := helpers.RedisSetJSON(ctx, s.Redis, channelCacheKey(username), profile, s.CacheTTL); err != nil && s.Logger != nil {
			s.Logger.WithError(err).WithField("username", username).Warn("failed to cache channel profile")
		}
	}
	return profile, nil
}

// GetWatchHistory returns the user's history in stored order.
func (s *ChannelService) GetWatchHistory(ctx context.Context, userID string) ([]WatchHistoryEntry, error) {
	rows, err := s.Users.WatchHistory(ctx, userID)
	if err != nil {
		return nil, internal("failed to load watch history", err)
	}
	out := make([]WatchHistoryEntry, 0, len(rows))
	for _, w := range rows {
		out = append(out, watchEntry(w))
	}
	return out, nil
}

func watchEntry(w entity.WatchedVideo) WatchHistoryEntry {
	return WatchHistoryEntry{
		VideoID:         w.Video.ID,
		Title:           w.Video.Title,
		ThumbnailURL:    w.Video.ThumbnailURL,
		DurationSeconds: w.Video.DurationSeconds,
		Owner: OwnerView{
			FullName:  w.Owner.FullName,
			Username:  w.Owner.Username,
			AvatarURL: w.Owner.AvatarURL,
		},
	}
}

// SearchChannels performs a multi_match over username and fullname.
func (s *ChannelService) SearchChannels(ctx context.Context, q string, size int) ([]map[string]any, error) {
	if s.ES == nil || s.ESIndex == "" {
		return []map[string]any{}, nil
	}
	if size <= 0 || size > 50 {
		size = 10
	}
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"username^2", "fullname"},
			},
		},
		"size": size,
	}
	b, _ := json.Marshal(query)

	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := s.ES.Search(
		s.ES.Search.WithContext(c),
		s.ES.Search.WithIndex(s.ESIndex),
		s.ES.Search.WithBody(strings.NewReader(string(b))),
	)
	if err != nil {
		return nil, internal("channel search failed", err)
	}
	defer func() { _ = res.Body.Close() }()

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string         `json:"_id"`
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, internal("channel search failed", err)
	}

	out := make([]map[string]any, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}
