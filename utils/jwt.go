package utils

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	redis "github.com/redis/go-redis/v9"

	"github.com/deukmosi-create/task-earning-platform/config"
)

type contextKey string

const UserIDKey = contextKey("userID")
const RequestIDKey = contextKey("requestID")
const ClaimsKey = contextKey("claims")

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("invalid token")
	ErrTokenRevoked = errors.New("token revoked")
)

// Claims is the verified subset of an access token.
type Claims struct {
	UserID    uint
	Role      string
	ID        string
	ExpiresAt time.Time
}

// Tokens issues and verifies access tokens. Revocation lives in Redis when a
// client is configured; without it logout is best effort.
type Tokens struct {
	secret []byte
	aud    string
	iss    string
	ttl    time.Duration
	redis  *redis.Client
	now    func() time.Time
}

func NewTokens(cfg config.JWTConfig, rc *redis.Client) *Tokens {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Tokens{secret: []byte(cfg.Secret), aud: cfg.Audience, iss: cfg.Issuer, ttl: ttl, redis: rc, now: time.Now}
}

// Issue signs an HS256 access token for the user.
func (t *Tokens) Issue(userID uint, role string) (string, time.Time, error) {
	if len(t.secret) == 0 {
		return "", time.Time{}, errors.New("JWT_SECRET is not set")
	}
	now := t.now()
	exp := now.Add(t.ttl)
	jti, err := generateJTI(16)
	if err != nil {
		return "", time.Time{}, err
	}
	claims := jwt.MapClaims{
		"id":   userID,
		"role": role,
		"exp":  exp.Unix(),
		"iat":  now.Unix(),
		"nbf":  now.Unix(),
		"jti":  jti,
	}
	if t.aud != "" {
		claims["aud"] = t.aud
	}
	if t.iss != "" {
		claims["iss"] = t.iss
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	return signed, exp, err
}

// Validate parses tokenStr, checks registered claims and the revocation list.
func (t *Tokens) Validate(ctx context.Context, tokenStr string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	}
	if t.aud != "" {
		opts = append(opts, jwt.WithAudience(t.aud))
	}
	if t.iss != "" {
		opts = append(opts, jwt.WithIssuer(t.iss))
	}
	token, err := jwt.Parse(tokenStr, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrTokenInvalid
	}

	var c Claims
	rawID, ok := mc["id"].(float64)
	if !ok || rawID <= 0 {
		return nil, ErrTokenInvalid
	}
	c.UserID = uint(rawID)
	c.Role, _ = mc["role"].(string)
	c.ID, _ = mc["jti"].(string)
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}

	if c.ID != "" && t.redis != nil {
		res, err := t.redis.Get(ctx, "jwt:blacklist:"+c.ID).Result()
		// a redis outage does not fail authentication
		if err == nil && res == "1" {
			return nil, ErrTokenRevoked
		}
	}
	return &c, nil
}

// Revoke blacklists the token id until it would have expired anyway.
func (t *Tokens) Revoke(ctx context.Context, c *Claims) error {
	if c == nil || c.ID == "" {
		return errors.New("empty jti")
	}
	if t.redis == nil {
		return nil
	}
	ttl := c.ExpiresAt.Sub(t.now())
	if ttl <= 0 {
		return nil
	}
	return t.redis.Set(ctx, "jwt:blacklist:"+c.ID, "1", ttl).Err()
}

// BearerToken extracts the token from the Authorization header.
func BearerToken(r *http.Request) (string, bool) {
	authz := r.Header.Get("Authorization")
	if !strings.HasPrefix(authz, "Bearer ") {
		return "", false
	}
	tok := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
	return tok, tok != ""
}

func generateJTI(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// GetUserID returns the authenticated user id placed by the auth middleware.
func GetUserID(r *http.Request) (uint, bool) {
	id, ok := r.Context().Value(UserIDKey).(uint)
	return id, ok
}

// GetClaims returns the verified token of the current request.
func GetClaims(r *http.Request) (*Claims, bool) {
	c, ok := r.Context().Value(ClaimsKey).(*Claims)
	return c, ok
}
