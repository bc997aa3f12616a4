package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/taskboard/api/transport"
	"github.com/fastygo/taskboard/domain"
	"github.com/fastygo/taskboard/internal/middleware"
	"github.com/fastygo/taskboard/pkg/httpcontext"
	authUC "github.com/fastygo/taskboard/usecase/auth"
)

type AuthHandler struct {
	baseHandler
	uc         *authUC.UseCase
	tokens     *middleware.Tokens
	workspaces Workspaces
	defaultTTL time.Duration
}

func NewAuthHandler(uc *authUC.UseCase, tokens *middleware.Tokens, workspaces Workspaces, adapter *httpcontext.Adapter, logger *zap.Logger, ttl time.Duration) *AuthHandler {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &AuthHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
		tokens:      tokens,
		workspaces:  workspaces,
		defaultTTL:  ttl,
	}
}

type sessionResponse struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Session   *domain.Session `json:"session"`
}

// @Summary Register a user
// @Tags auth
// @Router /api/v1/auth/signup [post]
func (h *AuthHandler) SignUp(ctx *fasthttp.RequestCtx) {
	var req transport.SignUpRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.invalid(ctx, "invalid payload")
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	user, err := h.uc.SignUp(stdCtx, authUC.Credentials{Email: req.Email, Password: req.Password, Confirm: req.Confirm})
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, user)
}

// @Summary Open a session and issue its token
// @Tags auth
// @Router /api/v1/auth/signin [post]
func (h *AuthHandler) SignIn(ctx *fasthttp.RequestCtx) {
	var req transport.SignInRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.invalid(ctx, "invalid payload")
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	session, err := h.uc.SignIn(stdCtx, authUC.Credentials{Email: req.Email, Password: req.Password}, h.defaultTTL)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondToken(ctx, http.StatusCreated, session)
}

// @Summary Extend the current session
// @Tags auth
// @Router /api/v1/auth/refresh [post]
func (h *AuthHandler) Refresh(ctx *fasthttp.RequestCtx) {
	sessionID := h.sessionID(ctx)
	if sessionID == "" {
		return
	}

	var req transport.RefreshRequest
	if body := ctx.PostBody(); len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			h.invalid(ctx, "invalid payload")
			return
		}
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	session, err := h.uc.RefreshSession(stdCtx, sessionID, h.ttlFromRequest(req.TTL))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondToken(ctx, http.StatusOK, session)
}

// @Summary Revoke the current session
// @Tags auth
// @Router /api/v1/auth/signout [post]
func (h *AuthHandler) SignOut(ctx *fasthttp.RequestCtx) {
	sessionID := h.sessionID(ctx)
	if sessionID == "" {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.uc.SignOut(stdCtx, sessionID); err != nil {
		h.respondError(ctx, err)
		return
	}
	if h.workspaces != nil {
		h.workspaces.Close(sessionID)
	}
	h.respondSuccess(ctx, http.StatusOK, map[string]bool{"signed_out": true})
}

// @Summary Current user
// @Tags auth
// @Router /api/v1/auth/me [get]
func (h *AuthHandler) Me(ctx *fasthttp.RequestCtx) {
	sessionID := h.sessionID(ctx)
	if sessionID == "" {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	user, err := h.uc.CurrentUser(stdCtx, sessionID)
	if err != nil {
		if domain.IsDomainError(err, domain.ErrCodeNotFound) {
			err = domain.WrapError(domain.ErrCodeUnauthorized, "session expired", err)
		}
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, user)
}

func (h *AuthHandler) respondToken(ctx *fasthttp.RequestCtx, status int, session *domain.Session) {
	token, expires, err := h.tokens.Issue(session)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, status, sessionResponse{Token: token, ExpiresAt: expires, Session: session})
}

func (h *AuthHandler) ttlFromRequest(ttlSeconds int) time.Duration {
	if ttlSeconds <= 0 {
		return h.defaultTTL
	}
	return time.Duration(ttlSeconds) * time.Second
}
