package handlers

import (
	"context"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	userapp "github.com/vidora/vidora-backend/internal/application"
	repo "github.com/vidora/vidora-backend/internal/domain/repository"
	"github.com/vidora/vidora-backend/internal/interface/middleware"
	"github.com/vidora/vidora-backend/pkg/helpers"
	"github.com/vidora/vidora-backend/pkg/response"
	"github.com/vidora/vidora-backend/pkg/validation"
)

// UserHandler exposes the session protocol over HTTP. Tokens travel both in
// the JSON body and as HTTP-only cookies.
type UserHandler struct {
	Svc     *userapp.Service
	Audit   repo.AuditRepository
	Logger  *logrus.Logger
	Cookies *helpers.Manager
}

func NewUserHandler(svc *userapp.Service, audit repo.AuditRepository, logger *logrus.Logger, cookieDomain string, cookieSecure bool) *UserHandler {
	return &UserHandler{Svc: svc, Audit: audit, Logger: logger, Cookies: helpers.NewCookie(cookieDomain, cookieSecure)}
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,pwd"`
}

type updateAccountRequest struct {
	FullName string `json:"fullname"`
	Email    string `json:"email"`
}

func respondError(c *gin.Context, err error) {
	response.Error[any](c, userapp.StatusOf(err), err.Error(), nil)
}

func clientIP(c *gin.Context) string {
	if ip := c.GetString("real_ip"); ip != "" {
		return ip
	}
	return c.ClientIP()
}

func (h *UserHandler) audit(c *gin.Context, userID, email, action string, metadata map[string]any) {
	if h.Audit == nil {
		return
	}
	err := h.Audit.Insert(c.Request.Context(), repo.AuditEntry{
		UserID:    userID,
		Email:     email,
		Action:    action,
		IP:        clientIP(c),
		UserAgent: c.GetHeader("User-Agent"),
		Metadata:  metadata,
	})
	if err != nil && h.Logger != nil {
		h.Logger.WithError(err).WithField("action", action).Warn("audit insert failed")
	}
}

// saveTemp spools an uploaded file to the OS temp dir. The media store
// removes the file after its upload attempt.
func saveTemp(c *gin.Context, fh *multipart.FileHeader) (*userapp.FileUpload, error) {
	dst := filepath.Join(os.TempDir(), uuid.NewString()+filepath.Ext(fh.Filename))
	if err := c.SaveUploadedFile(fh, dst); err != nil {
		return nil, err
	}
	return &userapp.FileUpload{
		LocalPath:   dst,
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
	}, nil
}

// Register POST /api/users/register (multipart/form-data)
// Fields: fullname, username, email, password; files: avatar (required),
// coverImage (optional, first file).
func (h *UserHandler) Register(c *gin.Context) {
	in := userapp.RegisterInput{
		FullName: c.PostForm("fullname"),
		Username: c.PostForm("username"),
		Email:    c.PostForm("email"),
		Password: c.PostForm("password"),
	}

	form, err := c.MultipartForm()
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid multipart payload", nil)
		return
	}
	if files := form.File["avatar"]; len(files) > 0 {
		up, err := saveTemp(c, files[0])
		if err != nil {
			response.Error[any](c, http.StatusInternalServerError, "failed to read avatar file", nil)
			return
		}
		in.Avatar = up
	}
	if files := form.File["coverImage"]; len(files) > 0 {
		up, err := saveTemp(c, files[0])
		if err != nil {
			response.Error[any](c, http.StatusInternalServerError, "failed to read cover image file", nil)
			return
		}
		in.CoverImage = up
	}

	u, err := h.Svc.Register(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	h.audit(c, u.ID, u.Email, "register", nil)
	response.Success(c, http.StatusCreated, u, "user registered successfully", nil)
}

// Login POST /api/users/login
func (h *UserHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	u, pair, err := h.Svc.Login(c.Request.Context(), userapp.LoginInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	h.audit(c, u.ID, u.Email, "login", nil)
	h.Cookies.SetPair(c, pair.AccessToken, pair.AccessTokenExpiry, pair.RefreshToken, pair.RefreshTokenExpiry)
	response.Success(c, http.StatusOK, gin.H{
		"user":         u,
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	}, "user logged in successfully", nil)
}

// Refresh POST /api/users/refresh-token
// Reads the refresh token from the cookie or the JSON body.
func (h *UserHandler) Refresh(c *gin.Context) {
	token, _ := c.Cookie(helpers.RefreshTokenCookie)
	if token == "" {
		var req refreshRequest
		if err := c.ShouldBindJSON(&req); err == nil {
			token = req.RefreshToken
		}
	}

	pair, userID, err := h.Svc.Refresh(c.Request.Context(), token)
	if err != nil {
		respondError(c, err)
		return
	}
	h.audit(c, userID, "", "refresh", nil)
	h.Cookies.SetPair(c, pair.AccessToken, pair.AccessTokenExpiry, pair.RefreshToken, pair.RefreshTokenExpiry)
	response.Success(c, http.StatusOK, gin.H{
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	}, "access token refreshed", nil)
}

// Logout POST /api/users/logout (auth required). Idempotent.
func (h *UserHandler) Logout(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	if err := h.Svc.Logout(c.Request.Context(), uid); err != nil {
		respondError(c, err)
		return
	}
	h.audit(c, uid, "", "logout", nil)
	h.Cookies.Clear(c)
	response.Success[any](c, http.StatusOK, gin.H{}, "user logged out", nil)
}

// ChangePassword POST /api/users/change-password (auth required)
func (h *UserHandler) ChangePassword(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	if err := h.Svc.ChangePassword(c.Request.Context(), uid, req.OldPassword, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}
	h.audit(c, uid, "", "change_password", nil)
	response.Success[any](c, http.StatusOK, gin.H{}, "password changed successfully", nil)
}

// CurrentUser GET /api/users/current-user (auth required)
func (h *UserHandler) CurrentUser(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	u, err := h.Svc.GetCurrentUser(c.Request.Context(), uid)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, u, "current user", nil)
}

// UpdateAccount PATCH /api/users/update-account (auth required)
func (h *UserHandler) UpdateAccount(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	var req updateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	u, err := h.Svc.UpdateAccount(c.Request.Context(), uid, req.FullName, req.Email)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, u, "account updated successfully", nil)
}

// UpdateAvatar PATCH /api/users/avatar (auth required, multipart, file key "avatar")
func (h *UserHandler) UpdateAvatar(c *gin.Context) {
	h.updateImage(c, "avatar", h.Svc.UpdateAvatar)
}

// UpdateCoverImage PATCH /api/users/cover-image (auth required, multipart, file key "coverImage")
func (h *UserHandler) UpdateCoverImage(c *gin.Context) {
	h.updateImage(c, "coverImage", h.Svc.UpdateCoverImage)
}

func (h *UserHandler) updateImage(c *gin.Context, field string, update func(ctx context.Context, userID string, up userapp.FileUpload) (*userapp.UserView, error)) {
	uid := c.GetString(middleware.CtxUserIDKey)
	fh, err := c.FormFile(field)
	if err != nil || fh == nil {
		response.Error[any](c, http.StatusBadRequest, field+" file is required", nil)
		return
	}
	up, err := saveTemp(c, fh)
	if err != nil {
		response.Error[any](c, http.StatusInternalServerError, "failed to read uploaded file", nil)
		return
	}
	u, err := update(c.Request.Context(), uid, *up)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, u, field+" updated successfully", nil)
}
