package repository

import (
	"context"

	"github.com/vidora/vidora-backend/internal/domain/entity"
)

// UserRepository defines the credential-store operations for user records.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByUsername(ctx context.Context, username string) (*entity.User, error)
	// GetByUsernameOrEmail matches either field; empty arguments never match.
	GetByUsernameOrEmail(ctx context.Context, username, email string) (*entity.User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)

	// Update persists the mutable profile fields (fullname, email, avatar,
	// cover image) and bumps updated_at. It does not touch the password hash
	// or the refresh token.
	Update(ctx context.Context, u *entity.User) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error

	// SetRefreshToken overwrites the stored refresh token unconditionally.
	// Any previously issued refresh token becomes invalid.
	SetRefreshToken(ctx context.Context, id, token string) error
	// ClearRefreshToken removes the stored refresh token. Clearing an already
	// empty token is not an error.
	ClearRefreshToken(ctx context.Context, id string) error
	// RotateRefreshToken replaces the stored refresh token only if it still
	// equals oldToken (compare-and-swap). Returns false when the stored value
	// did not match, i.e. the presented token is stale or already used.
	RotateRefreshToken(ctx context.Context, id, oldToken, newToken string) (bool, error)

	// WatchHistory returns the user's watch history in stored order, each row
	// joined to its video and the video's owner.
	WatchHistory(ctx context.Context, userID string) ([]entity.WatchedVideo, error)
}
