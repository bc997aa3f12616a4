package middleware

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/taskboard/api/transport"
	"github.com/fastygo/taskboard/domain"
)

const (
	HeaderUserID    = "X-User-ID"
	HeaderSessionID = "X-Session-ID"
)

// Claims bind a token to one session.
type Claims struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies HS256 session tokens.
type Tokens struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret, issuer string, ttl time.Duration) *Tokens {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Tokens{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}
}

// Issue signs a token for session. It never outlives the session.
func (t *Tokens) Issue(session *domain.Session) (string, time.Time, error) {
	if session == nil || session.ID == "" || session.UserID == "" {
		return "", time.Time{}, domain.ErrInvalidPayload
	}
	now := t.now()
	expires := now.Add(t.ttl)
	if !session.ExpiresAt.IsZero() && session.ExpiresAt.Before(expires) {
		expires = session.ExpiresAt
	}

	claims := Claims{
		UserID:    session.UserID,
		SessionID: session.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   session.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

// Parse verifies the signature, expiry and issuer of a token.
func (t *Tokens) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, domain.WrapError(domain.ErrCodeUnauthorized, "invalid token", err)
	}
	if t.issuer != "" && !claims.VerifyIssuer(t.issuer, true) {
		return nil, domain.WrapError(domain.ErrCodeUnauthorized, "invalid token", errors.New("unexpected issuer"))
	}
	if claims.UserID == "" || claims.SessionID == "" {
		return nil, domain.NewError(domain.ErrCodeUnauthorized, "token carries no session")
	}
	return claims, nil
}

// JWTAuth verifies the bearer token and forwards its user and session ids
// as request headers. Client supplied values for those headers are dropped.
func JWTAuth(tokens *Tokens, logger *zap.Logger) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			ctx.Request.Header.Del(HeaderUserID)
			ctx.Request.Header.Del(HeaderSessionID)

			tokenString := extractToken(ctx)
			if tokenString == "" {
				unauthorized(ctx, "missing token")
				return
			}

			claims, err := tokens.Parse(tokenString)
			if err != nil {
				logger.Warn("invalid jwt token", zap.Error(err))
				unauthorized(ctx, "invalid token")
				return
			}

			ctx.Request.Header.Set(HeaderUserID, claims.UserID)
			ctx.Request.Header.Set(HeaderSessionID, claims.SessionID)

			next(ctx)
		}
	}
}

func unauthorized(ctx *fasthttp.RequestCtx, message string) {
	body, _ := json.Marshal(transport.NewError(string(domain.ErrCodeUnauthorized), message, nil))
	ctx.Response.Header.SetContentType("application/json")
	ctx.SetStatusCode(fasthttp.StatusUnauthorized)
	ctx.SetBody(body)
}

func extractToken(ctx *fasthttp.RequestCtx) string {
	header := string(ctx.Request.Header.Peek("Authorization"))
	if header == "" {
		return ""
	}
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return header
}
