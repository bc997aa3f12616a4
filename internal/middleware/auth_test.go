package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/fastygo/taskboard/domain"
)

func protected(t *testing.T, tokens *Tokens, header string) (*fasthttp.RequestCtx, map[string]string) {
	t.Helper()
	seen := map[string]string{}
	h := JWTAuth(tokens, nil)(func(ctx *fasthttp.RequestCtx) {
		seen[HeaderUserID] = string(ctx.Request.Header.Peek(HeaderUserID))
		seen[HeaderSessionID] = string(ctx.Request.Header.Peek(HeaderSessionID))
		ctx.SetStatusCode(fasthttp.StatusOK)
	})

	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.Set(HeaderUserID, "spoofed")
	if header != "" {
		ctx.Request.Header.Set("Authorization", header)
	}
	h(ctx)
	return ctx, seen
}

func TestTokens_IssueAndParse(t *testing.T) {
	tokens := NewTokens("secret", "taskboard", time.Hour)
	session := &domain.Session{ID: "s1", UserID: "u1", ExpiresAt: time.Now().Add(10 * time.Minute)}

	signed, expires, err := tokens.Issue(session)
	require.NoError(t, err)
	assert.WithinDuration(t, session.ExpiresAt, expires, time.Second)

	claims, err := tokens.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "s1", claims.SessionID)
}

func TestTokens_ParseRejects(t *testing.T) {
	tokens := NewTokens("secret", "taskboard", time.Hour)
	session := &domain.Session{ID: "s1", UserID: "u1"}

	other, _, err := NewTokens("other", "taskboard", time.Hour).Issue(session)
	require.NoError(t, err)
	_, err = tokens.Parse(other)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeUnauthorized))

	foreign, _, err := NewTokens("secret", "someone-else", time.Hour).Issue(session)
	require.NoError(t, err)
	_, err = tokens.Parse(foreign)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeUnauthorized))

	expired := NewTokens("secret", "taskboard", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	stale, _, err := expired.Issue(session)
	require.NoError(t, err)
	_, err = tokens.Parse(stale)
	assert.Error(t, err)

	_, _, err = tokens.Issue(&domain.Session{ID: "s1"})
	assert.ErrorIs(t, err, domain.ErrInvalidPayload)
}

func TestJWTAuth(t *testing.T) {
	tokens := NewTokens("secret", "taskboard", time.Hour)
	signed, _, err := tokens.Issue(&domain.Session{ID: "s1", UserID: "u1"})
	require.NoError(t, err)

	ctx, seen := protected(t, tokens, "Bearer "+signed)
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Equal(t, "u1", seen[HeaderUserID])
	assert.Equal(t, "s1", seen[HeaderSessionID])

	ctx, seen = protected(t, tokens, "")
	assert.Equal(t, fasthttp.StatusUnauthorized, ctx.Response.StatusCode())
	assert.Empty(t, seen)
	assert.Contains(t, string(ctx.Response.Body()), `"code":"UNAUTHORIZED"`)

	ctx, _ = protected(t, tokens, "Bearer garbage")
	assert.Equal(t, fasthttp.StatusUnauthorized, ctx.Response.StatusCode())
}
