package application_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidora/vidora-backend/internal/application"
	"github.com/vidora/vidora-backend/internal/domain/entity"
	"github.com/vidora/vidora-backend/pkg/helpers"
)

// fakeUserRepo is an in-memory credential store with the same CAS semantics
// as the Postgres implementation.
type fakeUserRepo struct {
	mu      sync.Mutex
	users   map[string]*entity.User // by id
	history map[string][]entity.WatchedVideo
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*entity.User{}, history: map[string][]entity.WatchedVideo{}}
}

var errFakeNotFound = errors.New("not found")

func (r *fakeUserRepo) Create(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u.ID = uuid.NewString()
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, errFakeNotFound
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Username, username) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, errFakeNotFound
}

func (r *fakeUserRepo) GetByUsernameOrEmail(_ context.Context, username, email string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if (username != "" && strings.EqualFold(u.Username, username)) || (email != "" && u.Email == email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, errFakeNotFound
}

func (r *fakeUserRepo) ExistsByUsernameOrEmail(_ context.Context, username, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Username, username) || u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeUserRepo) Update(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.users[u.ID]
	if !ok {
		return errFakeNotFound
	}
	cur.FullName = u.FullName
	cur.Email = u.Email
	cur.AvatarURL = u.AvatarURL
	cur.CoverImageURL = u.CoverImageURL
	cur.UpdatedAt = time.Now()
	return nil
}

func (r *fakeUserRepo) UpdatePassword(_ context.Context, id, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return errFakeNotFound
	}
	u.Password = hash
	return nil
}

func (r *fakeUserRepo) SetRefreshToken(_ context.Context, id, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return errFakeNotFound
	}
	u.RefreshToken = token
	return nil
}

func (r *fakeUserRepo) ClearRefreshToken(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		u.RefreshToken = ""
	}
	return nil
}

func (r *fakeUserRepo) RotateRefreshToken(_ context.Context, id, oldToken, newToken string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok || u.RefreshToken != oldToken {
		return false, nil
	}
	u.RefreshToken = newToken
	return true, nil
}

func (r *fakeUserRepo) WatchHistory(_ context.Context, userID string) ([]entity.WatchedVideo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.history[userID], nil
}

func (r *fakeUserRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

func (r *fakeUserRepo) stored(id string) *entity.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.users[id]
	cp := *u
	return &cp
}

// fakeMedia simulates the media host. Each upload consumes the local path
// like the real store does.
type fakeMedia struct {
	fail    bool
	uploads []string
}

func (m *fakeMedia) UploadLocalFile(_ context.Context, localPath, objectPath, _ string) (string, error) {
	if m.fail {
		return "", errors.New("media host unavailable")
	}
	m.uploads = append(m.uploads, localPath)
	return "https://media.test/" + objectPath, nil
}

type fakeCleanup struct {
	published []string
}

func (q *fakeCleanup) PublishCleanup(_ context.Context, objectURL, _ string) error {
	q.published = append(q.published, objectURL)
	return nil
}

func newTestService(t *testing.T) (*application.Service, *fakeUserRepo, *fakeMedia, *fakeCleanup) {
	t.Helper()
	users := newFakeUserRepo()
	media := &fakeMedia{}
	cleanup := &fakeCleanup{}
	jwt := helpers.NewJWTManager("test-access-secret", "test-refresh-secret", time.Minute, time.Hour)
	svc := application.NewService(users, jwt, media, cleanup, nil, nil, nil, "")
	return svc, users, media, cleanup
}

func validRegisterInput() application.RegisterInput {
	return application.RegisterInput{
		FullName: "Ada Lovelace",
		Username: "Ada",
		Email:    "ada@example.com",
		Password: "correct-horse",
		Avatar:   &application.FileUpload{LocalPath: "/tmp/avatar.png", Filename: "avatar.png", ContentType: "image/png"},
	}
}

func kindOf(t *testing.T, err error) application.Kind {
	t.Helper()
	var ae *application.Error
	require.ErrorAs(t, err, &ae)
	return ae.Kind
}

func register(t *testing.T, svc *application.Service) *application.UserView {
	t.Helper()
	u, err := svc.Register(context.Background(), validRegisterInput())
	require.NoError(t, err)
	return u
}

func login(t *testing.T, svc *application.Service) (*application.UserView, application.TokenPair) {
	t.Helper()
	u, pair, err := svc.Login(context.Background(), application.LoginInput{Username: "ada", Password: "correct-horse"})
	require.NoError(t, err)
	return u, pair
}

func TestRegisterBlankFieldsRejectedIndependently(t *testing.T) {
	blank := []func(*application.RegisterInput){
		func(in *application.RegisterInput) { in.FullName = "  " },
		func(in *application.RegisterInput) { in.Username = "" },
		func(in *application.RegisterInput) { in.Email = "\t" },
		func(in *application.RegisterInput) { in.Password = "   " },
	}
	for _, mutate := range blank {
		svc, users, _, _ := newTestService(t)
		in := validRegisterInput()
		mutate(&in)
		_, err := svc.Register(context.Background(), in)
		assert.Equal(t, application.KindValidation, kindOf(t, err))
		assert.Zero(t, users.count())
	}
}

func TestRegisterDuplicateUsernameOrEmail(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	register(t, svc)

	in := validRegisterInput()
	in.Username = "someoneelse"
	_, err := svc.Register(context.Background(), in) // same email
	assert.Equal(t, application.KindConflict, kindOf(t, err))

	in = validRegisterInput()
	in.Email = "other@example.com"
	in.Username = "ADA" // usernames are case-insensitive
	_, err = svc.Register(context.Background(), in)
	assert.Equal(t, application.KindConflict, kindOf(t, err))
}

func TestRegisterRequiresAvatar(t *testing.T) {
	svc, users, _, _ := newTestService(t)
	in := validRegisterInput()
	in.Avatar = nil
	_, err := svc.Register(context.Background(), in)
	assert.Equal(t, application.KindValidation, kindOf(t, err))
	assert.Zero(t, users.count())
}

func TestRegisterAvatarUploadFailureLeavesNoUser(t *testing.T) {
	svc, users, media, _ := newTestService(t)
	media.fail = true
	_, err := svc.Register(context.Background(), validRegisterInput())
	assert.Equal(t, application.KindUpload, kindOf(t, err))
	assert.Zero(t, users.count())
}

func TestRegisterSucceedsAndSanitizes(t *testing.T) {
	svc, users, _, _ := newTestService(t)
	u := register(t, svc)

	assert.Equal(t, "ada", u.Username, "username stored lowercase")
	assert.NotEmpty(t, u.ID)
	assert.Contains(t, u.AvatarURL, "avatars/")

	stored := users.stored(u.ID)
	assert.NotEqual(t, "correct-horse", stored.Password, "password must be hashed")
	assert.True(t, helpers.CompareHashAndPassword(stored.Password, "correct-horse"))
}

func TestRegisterCoverUploadFailureIsTolerated(t *testing.T) {
	svc, users, _, _ := newTestService(t)
	in := validRegisterInput()
	in.CoverImage = &application.FileUpload{LocalPath: "/tmp/cover.png", Filename: "cover.png"}
	u, err := svc.Register(context.Background(), in)
	require.NoError(t, err)
	assert.Contains(t, u.CoverImageURL, "covers/")
	assert.Equal(t, 1, users.count())
}

func TestLoginUnknownUser(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	_, _, err := svc.Login(context.Background(), application.LoginInput{Username: "nobody", Password: "x"})
	assert.Equal(t, application.KindNotFound, kindOf(t, err))
}

func TestLoginRequiresUsernameOrEmail(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	_, _, err := svc.Login(context.Background(), application.LoginInput{Password: "x"})
	assert.Equal(t, application.KindValidation, kindOf(t, err))
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	register(t, svc)
	_, _, err := svc.Login(context.Background(), application.LoginInput{Username: "ada", Password: "wrong"})
	assert.Equal(t, application.KindAuthentication, kindOf(t, err))
}

func TestLoginStoresIssuedRefreshToken(t *testing.T) {
	svc, users, _, _ := newTestService(t)
	u := register(t, svc)
	_, pair := login(t, svc)

	require.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, pair.RefreshToken, users.stored(u.ID).RefreshToken)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)
}

func TestLoginByEmail(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	register(t, svc)
	_, _, err := svc.Login(context.Background(), application.LoginInput{Email: "ada@example.com", Password: "correct-horse"})
	require.NoError(t, err)
}

func TestSecondLoginInvalidatesFirstRefreshToken(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	register(t, svc)
	_, first := login(t, svc)
	_, second := login(t, svc)
	require.NotEqual(t, first.RefreshToken, second.RefreshToken)

	_, _, err := svc.Refresh(context.Background(), first.RefreshToken)
	assert.Equal(t, application.KindAuthentication, kindOf(t, err))

	_, _, err = svc.Refresh(context.Background(), second.RefreshToken)
	require.NoError(t, err)
}

func TestRefreshRotatesAndRejectsConsumedToken(t *testing.T) {
	svc, users, _, _ := newTestService(t)
	u := register(t, svc)
	_, pair := login(t, svc)

	newPair, userID, err := svc.Refresh(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, userID)
	assert.NotEqual(t, pair.RefreshToken, newPair.RefreshToken)
	assert.Equal(t, newPair.RefreshToken, users.stored(u.ID).RefreshToken)

	// the consumed token is permanently invalid
	_, _, err = svc.Refresh(context.Background(), pair.RefreshToken)
	assert.Equal(t, application.KindAuthentication, kindOf(t, err))
}

func TestRefreshWithoutToken(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	_, _, err := svc.Refresh(context.Background(), "")
	assert.Equal(t, application.KindAuthentication, kindOf(t, err))
}

func TestRefreshWithGarbageToken(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	_, _, err := svc.Refresh(context.Background(), "not-a-jwt")
	assert.Equal(t, application.KindAuthentication, kindOf(t, err))
}

func TestLogoutClearsTokenAndIsIdempotent(t *testing.T) {
	svc, users, _, _ := newTestService(t)
	u := register(t, svc)
	_, pair := login(t, svc)

	require.NoError(t, svc.Logout(context.Background(), u.ID))
	assert.Empty(t, users.stored(u.ID).RefreshToken)

	// pre-logout token no longer refreshes
	_, _, err := svc.Refresh(context.Background(), pair.RefreshToken)
	assert.Equal(t, application.KindAuthentication, kindOf(t, err))

	// second logout is not an error
	require.NoError(t, svc.Logout(context.Background(), u.ID))
}

func TestChangePassword(t *testing.T) {
	svc, users, _, _ := newTestService(t)
	u := register(t, svc)
	before := users.stored(u.ID).Password

	err := svc.ChangePassword(context.Background(), u.ID, "wrong", "brand-new-pass")
	assert.Equal(t, application.KindAuthentication, kindOf(t, err))
	assert.Equal(t, before, users.stored(u.ID).Password, "hash unchanged on failure")

	require.NoError(t, svc.ChangePassword(context.Background(), u.ID, "correct-horse", "brand-new-pass"))
	after := users.stored(u.ID).Password
	assert.NotEqual(t, before, after)
	assert.False(t, helpers.CompareHashAndPassword(after, "correct-horse"))
	assert.True(t, helpers.CompareHashAndPassword(after, "brand-new-pass"))
}

func TestUpdateAccountRequiresAField(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	u := register(t, svc)
	_, err := svc.UpdateAccount(context.Background(), u.ID, " ", "")
	assert.Equal(t, application.KindValidation, kindOf(t, err))
}

func TestUpdateAccountUpdatesPresentFields(t *testing.T) {
	svc, users, _, _ := newTestService(t)
	u := register(t, svc)

	view, err := svc.UpdateAccount(context.Background(), u.ID, "Ada King", "")
	require.NoError(t, err)
	assert.Equal(t, "Ada King", view.FullName)
	assert.Equal(t, "ada@example.com", view.Email, "absent email left untouched")
	assert.Equal(t, "Ada King", users.stored(u.ID).FullName)
}

func TestUpdateAvatarPublishesCleanupForOldObject(t *testing.T) {
	svc, users, _, cleanup := newTestService(t)
	u := register(t, svc)
	oldURL := users.stored(u.ID).AvatarURL

	view, err := svc.UpdateAvatar(context.Background(), u.ID, application.FileUpload{
		LocalPath: "/tmp/new-avatar.png", Filename: "new-avatar.png", ContentType: "image/png",
	})
	require.NoError(t, err)
	assert.NotEqual(t, oldURL, view.AvatarURL)
	require.Len(t, cleanup.published, 1)
	assert.Equal(t, oldURL, cleanup.published[0])
}

func TestUpdateAvatarRequiresFile(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	u := register(t, svc)
	_, err := svc.UpdateAvatar(context.Background(), u.ID, application.FileUpload{})
	assert.Equal(t, application.KindValidation, kindOf(t, err))
}

func TestUpdateAvatarUploadFailure(t *testing.T) {
	svc, users, media, _ := newTestService(t)
	u := register(t, svc)
	before := users.stored(u.ID).AvatarURL

	media.fail = true
	_, err := svc.UpdateAvatar(context.Background(), u.ID, application.FileUpload{
		LocalPath: "/tmp/new-avatar.png", Filename: "new-avatar.png",
	})
	assert.Equal(t, application.KindUpload, kindOf(t, err))
	assert.Equal(t, before, users.stored(u.ID).AvatarURL)
}

func TestGetCurrentUser(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	u := register(t, svc)

	view, err := svc.GetCurrentUser(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.ID, view.ID)

	_, err = svc.GetCurrentUser(context.Background(), uuid.NewString())
	assert.Equal(t, application.KindNotFound, kindOf(t, err))
}
