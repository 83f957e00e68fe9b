package application

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/vidora/vidora-backend/internal/domain/entity"
	repo "github.com/vidora/vidora-backend/internal/domain/repository"
	"github.com/vidora/vidora-backend/pkg/helpers"
)

// Service orchestrates the session protocol: register, login, logout,
// refresh-token rotation, password change, and profile mutations.
type Service struct {
	Users   repo.UserRepository
	JWT     *helpers.JWTManager
	Media   MediaStore
	Cleanup CleanupQueue
	Redis   *redis.Client
	Logger  *logrus.Logger
	ES      *elasticsearch.Client
	ESIndex string
}

func NewService(users repo.UserRepository, jwt *helpers.JWTManager, media MediaStore, cleanup CleanupQueue, rdb *redis.Client, logger *logrus.Logger, es *elasticsearch.Client, esIndex string) *Service {
	return &Service{
		Users:   users,
		JWT:     jwt,
		Media:   media,
		Cleanup: cleanup,
		Redis:   rdb,
		Logger:  logger,
		ES:      es,
		ESIndex: esIndex,
	}
}

type TokenPair struct {
	AccessToken        string
	AccessTokenExpiry  time.Time
	RefreshToken       string
	RefreshTokenExpiry time.Time
}

// UserView is the sanitized user projection: no password hash, no refresh token.
type UserView struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	FullName      string    `json:"fullname"`
	AvatarURL     string    `json:"avatar"`
	CoverImageURL string    `json:"coverImage,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func sanitize(u *entity.User) *UserView {
	return &UserView{
		ID:            u.ID,
		Username:      u.Username,
		Email:         u.Email,
		FullName:      u.FullName,
		AvatarURL:     u.AvatarURL,
		CoverImageURL: u.CoverImageURL,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

// FileUpload points at a request file already spooled to local disk. The
// media store removes the local file after the upload attempt.
type FileUpload struct {
	LocalPath   string
	Filename    string
	ContentType string
}

type RegisterInput struct {
	FullName   string
	Username   string
	Email      string
	Password   string
	Avatar     *FileUpload
	CoverImage *FileUpload
}

// Register creates a new user. The avatar upload happens before the insert,
// so a failed upload never leaves a partial user behind.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*UserView, error) {
	fullname := strings.TrimSpace(in.FullName)
	username := strings.ToLower(strings.TrimSpace(in.Username))
	email := strings.TrimSpace(in.Email)

	if fullname == "" || username == "" || email == "" || strings.TrimSpace(in.Password) == "" {
		return nil, invalid("all fields are required")
	}
	if in.Avatar == nil || in.Avatar.LocalPath == "" {
		return nil, invalid("avatar file is required")
	}

	exists, err := s.Users.ExistsByUsernameOrEmail(ctx, username, email)
	if err != nil {
		return nil, internal("failed to check existing users", err)
	}
	if exists {
		return nil, conflict("user with this email or username already exists")
	}

	hash, err := helpers.HashPassword(in.Password)
	if err != nil {
		return nil, internal("failed to hash password", err)
	}

	avatarURL, err := s.Media.UploadLocalFile(ctx, in.Avatar.LocalPath, s.objectPath("avatars", in.Avatar.Filename), in.Avatar.ContentType)
	if err != nil || avatarURL == "" {
		return nil, uploadFailed("avatar upload failed")
	}

	coverURL := ""
	if in.CoverImage != nil && in.CoverImage.LocalPath != "" {
		coverURL, err = s.Media.UploadLocalFile(ctx, in.CoverImage.LocalPath, s.objectPath("covers", in.CoverImage.Filename), in.CoverImage.ContentType)
		if err != nil {
			// cover image is optional; the account is created without one
			s.warn("cover image upload failed", err, logrus.Fields{"username": username})
			coverURL = ""
		}
	}

	u := &entity.User{
		Username:      username,
		Email:         email,
		FullName:      fullname,
		Password:      hash,
		AvatarURL:     avatarURL,
		CoverImageURL: coverURL,
	}
	if err := s.Users.Create(ctx, u); err != nil {
		return nil, internal("failed to create user", err)
	}

	created, err := s.Users.GetByID(ctx, u.ID)
	if err != nil || created == nil {
		return nil, internal("something went wrong while registering the user", err)
	}

	s.indexChannel(ctx, created)
	return sanitize(created), nil
}

type LoginInput struct {
	Username string
	Email    string
	Password string
}

// Login verifies credentials, issues a fresh token pair, and stores the
// refresh token, invalidating any previously issued one.
func (s *Service) Login(ctx context.Context, in LoginInput) (*UserView, TokenPair, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)
	if username == "" && email == "" {
		return nil, TokenPair{}, invalid("username or email is required")
	}

	u, err := s.Users.GetByUsernameOrEmail(ctx, username, email)
	if err != nil || u == nil {
		return nil, TokenPair{}, notFound("user does not exist")
	}
	if !helpers.CompareHashAndPassword(u.Password, in.Password) {
		return nil, TokenPair{}, unauthorized("invalid credentials")
	}

	pair, err := s.issuePair(u.ID)
	if err != nil {
		return nil, TokenPair{}, err
	}
	if err := s.Users.SetRefreshToken(ctx, u.ID, pair.RefreshToken); err != nil {
		return nil, TokenPair{}, internal("failed to store refresh token", err)
	}
	return sanitize(u), pair, nil
}

// Logout clears the stored refresh token. Logging out twice is not an error.
func (s *Service) Logout(ctx context.Context, userID string) error {
	if err := s.Users.ClearRefreshToken(ctx, userID); err != nil {
		return internal("failed to clear refresh token", err)
	}
	return nil
}

// Refresh exchanges a valid, current refresh token for a new pair. The swap
// is a compare-and-swap at the store, so the consumed token is permanently
// invalid afterwards and a stale or reused token is rejected.
func (s *Service) Refresh(ctx context.Context, presented string) (TokenPair, string, error) {
	if presented == "" {
		return TokenPair{}, "", unauthorized("refresh token is required")
	}
	claims, err := s.JWT.ParseRefreshToken(presented)
	if err != nil {
		return TokenPair{}, "", unauthorized("invalid refresh token")
	}
	u, err := s.Users.GetByID(ctx, claims.UserID)
	if err != nil || u == nil {
		return TokenPair{}, "", notFound("user does not exist")
	}

	pair, err := s.issuePair(u.ID)
	if err != nil {
		return TokenPair{}, "", err
	}
	ok, err := s.Users.RotateRefreshToken(ctx, u.ID, presented, pair.RefreshToken)
	if err != nil {
		return TokenPair{}, "", internal("failed to rotate refresh token", err)
	}
	if !ok {
		return TokenPair{}, "", unauthorized("refresh token is expired or used")
	}
	return pair, u.ID, nil
}

// ChangePassword replaces the stored hash after verifying the old password.
// The refresh token is left untouched.
func (s *Service) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	u, err := s.Users.GetByID(ctx, userID)
	if err != nil || u == nil {
		return notFound("user does not exist")
	}
	if !helpers.CompareHashAndPassword(u.Password, oldPassword) {
		return unauthorized("old password is incorrect")
	}
	hash, err := helpers.HashPassword(newPassword)
	if err != nil {
		return internal("failed to hash password", err)
	}
	if err := s.Users.UpdatePassword(ctx, userID, hash); err != nil {
		return internal("failed to update password", err)
	}
	return nil
}

func (s *Service) GetCurrentUser(ctx context.Context, userID string) (*UserView, error) {
	u, err := s.Users.GetByID(ctx, userID)
	if err != nil || u == nil {
		return nil, notFound("user does not exist")
	}
	return sanitize(u), nil
}

// UpdateAccount changes fullname and/or email; at least one must be present.
func (s *Service) UpdateAccount(ctx context.Context, userID, fullname, email string) (*UserView, error) {
	fullname = strings.TrimSpace(fullname)
	email = strings.TrimSpace(email)
	if fullname == "" && email == "" {
		return nil, invalid("fullname or email is required")
	}
	u, err := s.Users.GetByID(ctx, userID)
	if err != nil || u == nil {
		return nil, notFound("user does not exist")
	}
	if fullname != "" {
		u.FullName = fullname
	}
	if email != "" {
		u.Email = email
	}
	if err := s.Users.Update(ctx, u); err != nil {
		return nil, internal("failed to update account", err)
	}
	s.invalidateChannel(ctx, u.Username)
	s.indexChannel(ctx, u)
	return sanitize(u), nil
}

// UpdateAvatar uploads the new avatar, swaps the URL, and queues the old
// object for deletion.
func (s *Service) UpdateAvatar(ctx context.Context, userID string, up FileUpload) (*UserView, error) {
	return s.updateImage(ctx, userID, up, "avatars", func(u *entity.User, url string) string {
		old := u.AvatarURL
		u.AvatarURL = url
		return old
	})
}

func (s *Service) UpdateCoverImage(ctx context.Context, userID string, up FileUpload) (*UserView, error) {
	return s.updateImage(ctx, userID, up, "covers", func(u *entity.User, url string) string {
		old := u.CoverImageURL
		u.CoverImageURL = url
		return old
	})
}

func (s *Service) updateImage(ctx context.Context, userID string, up FileUpload, folder string, swap func(*entity.User, string) string) (*UserView, error) {
	if up.LocalPath == "" {
		return nil, invalid("file is required")
	}
	u, err := s.Users.GetByID(ctx, userID)
	if err != nil || u == nil {
		return nil, notFound("user does not exist")
	}
	url, err := s.Media.UploadLocalFile(ctx, up.LocalPath, s.objectPath(folder, up.Filename), up.ContentType)
	if err != nil || url == "" {
		return nil, uploadFailed("image upload failed")
	}
	old := swap(u, url)
	if err := s.Users.Update(ctx, u); err != nil {
		return nil, internal("failed to update user", err)
	}
	if old != "" && s.Cleanup != nil {
		if err := s.Cleanup.PublishCleanup(ctx, old, folder); err != nil {
			s.warn("failed to queue media cleanup", err, logrus.Fields{"object_url": old})
		}
	}
	s.invalidateChannel(ctx, u.Username)
	s.indexChannel(ctx, u)
	return sanitize(u), nil
}

// issuePair mints an access+refresh pair. Failures are masked as internal so
// signing-key details never reach a caller.
func (s *Service) issuePair(userID string) (TokenPair, error) {
	access, aexp, err := s.JWT.GenerateAccessToken(userID)
	if err != nil {
		s.warn("generate access token failed", err, logrus.Fields{"user_id": userID})
		return TokenPair{}, internal("something went wrong while generating tokens", err)
	}
	refresh, rexp, err := s.JWT.GenerateRefreshToken(userID)
	if err != nil {
		s.warn("generate refresh token failed", err, logrus.Fields{"user_id": userID})
		return TokenPair{}, internal("something went wrong while generating tokens", err)
	}
	return TokenPair{AccessToken: access, AccessTokenExpiry: aexp, RefreshToken: refresh, RefreshTokenExpiry: rexp}, nil
}

func (s *Service) objectPath(folder, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return filepath.ToSlash(filepath.Join(folder, uuid.NewString()+ext))
}

func (s *Service) invalidateChannel(ctx context.Context, username string) {
	if s.Redis == nil {
		return
	}
	if err := helpers.RedisDel(ctx, s.Redis, channelCacheKey(username)); err != nil {
		s.warn("failed to invalidate channel cache", err, logrus.Fields{"username": username})
	}
}

// indexChannel pushes the public channel fields to Elasticsearch so the
// search endpoint sees profile changes. Indexing failures are logged, never
// surfaced.
func (s *Service) indexChannel(ctx context.Context, u *entity.User) {
	if s.ES == nil || s.ESIndex == "" {
		return
	}
	doc := map[string]any{
		"id":         u.ID,
		"username":   u.Username,
		"fullname":   u.FullName,
		"avatar":     u.AvatarURL,
		"created_at": u.CreatedAt.Format(time.RFC3339Nano),
		"updated_at": u.UpdatedAt.Format(time.RFC3339Nano),
	}
	b, _ := json.Marshal(doc)
	req := esapi.IndexRequest{Index: s.ESIndex, DocumentID: u.ID, Body: strings.NewReader(string(b)), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		s.warn("es index failed", err, logrus.Fields{"user_id": u.ID})
		return
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		s.warn("es index response error", nil, logrus.Fields{"status": res.Status(), "user_id": u.ID})
	}
}

func (s *Service) warn(msg string, err error, fields logrus.Fields) {
	if s.Logger == nil {
		return
	}
	e := s.Logger.WithFields(fields)
	if err != nil {
		e = e.WithError(err)
	}
	e.Warn(msg)
}
