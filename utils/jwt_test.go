package utils

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/deukmosi-create/task-earning-platform/config"
)

func TestIssueAndValidate(t *testing.T) {
	tokens := NewTokens(config.JWTConfig{Secret: "s3cret", Audience: "app", Issuer: "api", TTL: time.Hour}, nil)
	tok, exp, err := tokens.Issue(42, "freelancer")
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	c, err := tokens.Validate(context.Background(), tok)
	require.NoError(t, err)
	require.Equal(t, uint(42), c.UserID)
	require.Equal(t, "freelancer", c.Role)
	require.Len(t, c.ID, 32)
}

func TestValidateRejects(t *testing.T) {
	cfg := config.JWTConfig{Secret: "s3cret", Audience: "app", TTL: time.Minute}
	tokens := NewTokens(cfg, nil)
	tok, _, err := tokens.Issue(1, "admin")
	require.NoError(t, err)

	other := NewTokens(config.JWTConfig{Secret: "different", Audience: "app"}, nil)
	_, err = other.Validate(context.Background(), tok)
	require.ErrorIs(t, err, ErrTokenInvalid)

	wrongAud := NewTokens(config.JWTConfig{Secret: "s3cret", Audience: "web"}, nil)
	_, err = wrongAud.Validate(context.Background(), tok)
	require.ErrorIs(t, err, ErrTokenInvalid)

	later := NewTokens(cfg, nil)
	later.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = later.Validate(context.Background(), tok)
	require.ErrorIs(t, err, ErrTokenExpired)

	_, err = tokens.Validate(context.Background(), "garbage")
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestIssueWithoutSecret(t *testing.T) {
	_, _, err := NewTokens(config.JWTConfig{}, nil).Issue(1, "freelancer")
	require.Error(t, err)
}

func TestRevokeWithoutRedis(t *testing.T) {
	tokens := NewTokens(config.JWTConfig{Secret: "s3cret"}, nil)
	require.Error(t, tokens.Revoke(context.Background(), &Claims{}))
	require.NoError(t, tokens.Revoke(context.Background(), &Claims{ID: "abc", ExpiresAt: time.Now().Add(time.Hour)}))
}

func TestBearerToken(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	_, ok := BearerToken(r)
	require.False(t, ok)

	r.Header.Set("Authorization", "Bearer abc.def")
	tok, ok := BearerToken(r)
	require.True(t, ok)
	require.Equal(t, "abc.def", tok)
}
