package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/product_api/internal/events"
	"github.com/Skotchmaster/product_api/internal/logging"
	"github.com/Skotchmaster/product_api/internal/metrics"
	"github.com/Skotchmaster/product_api/internal/middleware"
	"github.com/Skotchmaster/product_api/internal/models"
	"github.com/Skotchmaster/product_api/internal/service"
	"github.com/Skotchmaster/product_api/internal/validator"
)

const publishTimeout = 5 * time.Second

type AuthService interface {
	Register(ctx context.Context, username, email, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.TokenPair, error)
	RefreshSession(ctx context.Context, userID uuid.UUID, refreshToken string) (*models.TokenPair, error)
}

type AuthHandler struct {
	Service  AuthService
	Producer events.Publisher
	Topic    string
	Metrics  *metrics.Metrics
	Now      func() time.Time
}

func (h *AuthHandler) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_register")

	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 400, "error", err)
		h.observe("register", metrics.OutcomeInvalidInput)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		l.Warn("register_error", "status", 400, "error", err)
		h.observe("register", metrics.OutcomeInvalidInput)
		return echo.NewHTTPError(http.StatusBadRequest, validationMessage(err))
	}

	user, err := h.Service.Register(ctx, req.Username, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			l.Warn("register_failed", "status", 400, "error", err)
			h.observe("register", metrics.OutcomeInvalidInput)
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrDuplicateEmail):
			l.Warn("register_failed", "status", 409, "reason", "user_exists")
			h.observe("register", metrics.OutcomeDuplicateEmail)
			return echo.NewHTTPError(http.StatusConflict, "user already exists")
		default:
			l.Error("register_error", "status", 500, "error", err)
			h.observe("register", metrics.OutcomeError)
			return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
		}
	}

	h.observe("register", metrics.OutcomeSuccess)
	h.publish(ctx, events.TypeUserRegistered, user.ID, user.Email)
	l.Info("register_success", "user_id", user.ID)
	return c.JSON(http.StatusOK, newUserResponse(user))
}

func (h *AuthHandler) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		h.observe("login", metrics.OutcomeInvalidInput)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	pair, err := h.Service.Login(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			l.Warn("login_failed", "status", 401)
			h.observe("login", metrics.OutcomeInvalidCredentials)
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid email or password")
		}
		l.Error("login_error", "status", 500, "error", err)
		h.observe("login", metrics.OutcomeError)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	h.observe("login", metrics.OutcomeSuccess)
	h.publish(ctx, events.TypeUserLoggedIn, pair.UserID, req.Email)
	return c.JSON(http.StatusOK, newTokenResponse(pair))
}

func (h *AuthHandler) RefreshToken(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_refresh")

	var req RefreshTokenRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("refresh_error", "status", 400, "error", err)
		h.observe("refresh", metrics.OutcomeInvalidInput)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		l.Warn("refresh_error", "status", 400, "error", err)
		h.observe("refresh", metrics.OutcomeInvalidInput)
		return echo.NewHTTPError(http.StatusBadRequest, validationMessage(err))
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		l.Warn("refresh_error", "status", 400, "error", err)
		h.observe("refresh", metrics.OutcomeInvalidInput)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid userId")
	}

	pair, err := h.Service.RefreshSession(ctx, userID, req.RefreshToken)
	if err != nil {
		if errors.Is(err, service.ErrInvalidSession) {
			l.Warn("refresh_failed", "status", 401, "user_id", userID)
			h.observe("refresh", metrics.OutcomeInvalidSession)
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
		}
		l.Error("refresh_error", "status", 500, "error", err)
		h.observe("refresh", metrics.OutcomeError)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	h.observe("refresh", metrics.OutcomeSuccess)
	h.publish(ctx, events.TypeSessionRefreshed, userID, "")
	return c.JSON(http.StatusOK, newTokenResponse(pair))
}

// Me answers from the verified access token claims only.
func (h *AuthHandler) Me(c echo.Context) error {
	userID, _ := c.Get(middleware.CtxUserID).(string)
	email, _ := c.Get(middleware.CtxEmail).(string)
	if userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
	}
	return c.JSON(http.StatusOK, MeResponse{UserID: userID, Email: email})
}

func (h *AuthHandler) observe(operation, outcome string) {
	if h.Metrics != nil {
		h.Metrics.ObserveAuth(operation, outcome)
	}
}

func (h *AuthHandler) now() time.Time {
	if h.Now == nil {
		return time.Now().UTC()
	}
	return h.Now()
}

// publish is best effort: a broker failure is logged and never fails the request.
func (h *AuthHandler) publish(ctx context.Context, eventType string, userID uuid.UUID, email string) {
	if h.Producer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	event := events.UserEvent{
		Type:       eventType,
		UserID:     userID,
		Email:      email,
		OccurredAt: h.now(),
	}
	if err := h.Producer.Publish(ctx, h.Topic, userID.String(), event); err != nil {
		logging.FromContext(ctx).Error("kafka_publish_failed", "event_type", eventType, "error", err)
	}
}

func validationMessage(err error) string {
	var ve *validator.ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	return "invalid body"
}
