// Package identity talks to the external identity service. All
// authentication is delegated: this service never validates signatures
// or stores credentials, it only asks the identity service whether a
// token is good and caches the positive answers.
package identity

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dexhq/support-chat-backend/internal/config"
	"github.com/dexhq/support-chat-backend/internal/core/domain"
	apperrors "github.com/dexhq/support-chat-backend/internal/core/errors"
	"github.com/dexhq/support-chat-backend/internal/core/ports"
)

// RoleUser marks agent-side tokens; anything else verifies against the
// customer endpoint.
const RoleUser = "user"

// Client calls the identity service over HTTP. It implements both the
// IdentityVerifier and UserDirectory ports.
type Client struct {
	baseURL  string
	http     *http.Client
	cache    ports.VerificationCache
	cacheTTL time.Duration
	logger   *slog.Logger
}

var (
	_ ports.IdentityVerifier = (*Client)(nil)
	_ ports.UserDirectory    = (*Client)(nil)
)

// NewClient creates an identity client. The cache may be nil, in which
// case every verification hits the identity service.
func NewClient(cfg config.IdentityConfig, cache ports.VerificationCache, logger *slog.Logger) *Client {
	return &Client{
		baseURL:  cfg.BaseURL,
		http:     &http.Client{Timeout: cfg.Timeout},
		cache:    cache,
		cacheTTL: cfg.CacheTTL,
		logger:   logger.With("component", "identity_client"),
	}
}

// VerifyToken checks the token against the identity service. The role
// selects the verification endpoint: agents verify as users, everyone
// else as customers. Successful verifications are cached until the
// token's own expiry or the configured TTL, whichever is sooner.
func (c *Client) VerifyToken(ctx context.Context, token string, role string) (*domain.Principal, error) {
	if token == "" {
		return nil, apperrors.ErrUnauthorized
	}

	cacheKey := tokenCacheKey(token, role)
	if c.cache != nil {
		if principal, err := c.cache.Get(ctx, cacheKey); err == nil && principal != nil {
			if time.Now().Before(principal.ExpiresAt) || principal.ExpiresAt.IsZero() {
				return principal, nil
			}
		}
	}

	endpoint := c.baseURL + "/customers/verify-token"
	if role == RoleUser {
		endpoint = c.baseURL + "/users/verify-token"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return nil, apperrors.NewDependencyError(err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("identity verification call failed", "error", err)
		return nil, apperrors.NewDependencyError(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, apperrors.ErrUnauthorized
	default:
		c.logger.Error("identity verification returned unexpected status", "status", resp.StatusCode)
		return nil, apperrors.NewDependencyError(fmt.Errorf("identity service returned %d", resp.StatusCode))
	}

	principal := c.principalFromToken(token, role)

	if c.cache != nil {
		ttl := c.cacheTTL
		if !principal.ExpiresAt.IsZero() {
			if remaining := time.Until(principal.ExpiresAt); remaining < ttl {
				ttl = remaining
			}
		}
		if ttl > 0 {
			if err := c.cache.Set(ctx, cacheKey, principal, ttl); err != nil {
				c.logger.Warn("failed to cache verification", "error", err)
			}
		}
	}

	return principal, nil
}

// principalFromToken decodes the registered claims of a token the
// identity service has already verified. No signature check happens
// here; the remote verification is the trust anchor.
func (c *Client) principalFromToken(token string, role string) *domain.Principal {
	principal := &domain.Principal{Role: role}

	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		c.logger.Warn("failed to decode verified token claims", "error", err)
		return principal
	}

	principal.SubjectID = claims.Subject
	if claims.ExpiresAt != nil {
		principal.ExpiresAt = claims.ExpiresAt.Time
	}
	return principal
}

// BatchCustomers resolves customer profiles by ID.
func (c *Client) BatchCustomers(ctx context.Context, ids []uuid.UUID) ([]domain.Profile, error) {
	return c.batchLookup(ctx, c.baseURL+"/customers/batch", ids)
}

// BatchUsers resolves agent profiles by ID.
func (c *Client) BatchUsers(ctx context.Context, ids []uuid.UUID) ([]domain.Profile, error) {
	return c.batchLookup(ctx, c.baseURL+"/users/batch", ids)
}

func (c *Client) batchLookup(ctx context.Context, endpoint string, ids []uuid.UUID) ([]domain.Profile, error) {
	if len(ids) == 0 {
		return []domain.Profile{}, nil
	}

	stringIDs := make([]string, 0, len(ids))
	for _, id := range ids {
		stringIDs = append(stringIDs, id.String())
	}

	body, err := json.Marshal(map[string][]string{"ids": stringIDs})
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.NewDependencyError(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("profile batch lookup failed", "error", err)
		return nil, apperrors.NewDependencyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("profile batch lookup returned unexpected status", "status", resp.StatusCode)
		return nil, apperrors.NewDependencyError(fmt.Errorf("identity service returned %d", resp.StatusCode))
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewDependencyError(err)
	}

	var profiles []domain.Profile
	if err := json.Unmarshal(payload, &profiles); err != nil {
		return nil, apperrors.NewDependencyError(err)
	}
	return profiles, nil
}

// tokenCacheKey hashes the token so raw credentials never appear as
// cache keys.
func tokenCacheKey(token, role string) string {
	sum := sha256.Sum256([]byte(role + ":" + token))
	return "verify:" + hex.EncodeToString(sum[:])
}
