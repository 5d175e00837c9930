package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/library-seat-reservation/internal/config"
	"github.com/iliyamo/library-seat-reservation/internal/model"
	"github.com/iliyamo/library-seat-reservation/internal/repository"
	"github.com/iliyamo/library-seat-reservation/internal/utils"
)

// AuthHandler implements registration, login and token rotation.
type AuthHandler struct {
	cfg    config.Config
	users  *repository.UserRepo
	tokens *repository.TokenRepo
}

func NewAuthHandler(cfg config.Config, users *repository.UserRepo, tokens *repository.TokenRepo) *AuthHandler {
	return &AuthHandler{cfg: cfg, users: users, tokens: tokens}
}

type credentialsReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type authResp struct {
	AccessToken  string    `json:"access_token"`
	AccessExp    time.Time `json:"access_expires_at"`
	RefreshToken string    `json:"refresh_token"`
	RefreshExp   time.Time `json:"refresh_expires_at"`
}

func (h *AuthHandler) accessTTL() time.Duration {
	return time.Duration(h.cfg.AccessTTLMin) * time.Minute
}

func (h *AuthHandler) refreshTTL() time.Duration {
	return time.Duration(h.cfg.RefreshTTLDays) * 24 * time.Hour
}

// issueTokens signs a fresh access/refresh pair and stores the refresh hash.
func (h *AuthHandler) issueTokens(c echo.Context, userID uint64, role string) (*authResp, error) {
	access, err := utils.NewAccessToken(h.cfg.JWTSecret, userID, role, h.accessTTL())
	if err != nil {
		return nil, err
	}
	refresh, err := utils.NewRefreshToken(h.refreshTTL())
	if err != nil {
		return nil, err
	}
	if err := h.tokens.StoreRefresh(c.Request().Context(), userID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return nil, err
	}
	return &authResp{
		AccessToken:  access.Token,
		AccessExp:    access.Exp,
		RefreshToken: refresh.Raw,
		RefreshExp:   refresh.Exp,
	}, nil
}

// Register creates a student account and signs the user in.
func (h *AuthHandler) Register(c echo.Context) error {
	var req credentialsReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()

	id, err := h.users.Create(ctx, req.Email, req.Password, model.RoleStudent, h.cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		}
		return fail(c, err)
	}
	resp, err := h.issueTokens(c, id, model.RoleStudent)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, resp)
}

// Login verifies credentials and issues a token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req credentialsReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()

	user, err := h.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return fail(c, err)
	}
	if !utils.VerifyPassword(user.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	resp, err := h.issueTokens(c, user.ID, user.Role)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Refresh rotates a refresh token: the old token is revoked and a new pair
// issued.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()

	hash := utils.HashRefreshRaw(req.RefreshToken)
	userID, err := h.tokens.ValidateRefresh(ctx, hash, time.Now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrTokenInvalid) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
		}
		return fail(c, err)
	}
	user, err := h.users.GetByID(ctx, userID)
	if err != nil {
		return fail(c, err)
	}
	if err := h.tokens.RevokeByHash(ctx, hash); err != nil {
		return fail(c, err)
	}
	resp, err := h.issueTokens(c, user.ID, user.Role)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Logout revokes the presented refresh token.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := h.tokens.RevokeByHash(c.Request().Context(), utils.HashRefreshRaw(req.RefreshToken)); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

// Me returns the authenticated user's profile including the credit score.
func (h *AuthHandler) Me(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	user, err := h.users.GetByID(c.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, user)
}
