package middleware

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/deskbridge/backend/internal/db"
	"github.com/deskbridge/backend/internal/models"
)

const credentialKey = "helpdesk_credential"

// CredentialSource looks up the stored credential record for a caller.
type CredentialSource interface {
	CredentialByEmail(ctx context.Context, email string) (models.Credential, error)
}

type AuthConfig struct {
	Source CredentialSource
	// RequireZendeskActive enforces the migration-period policy that
	// Zendesk stays on for every tenant. Deployment-time flag, not
	// hardcoded behavior.
	RequireZendeskActive bool
	Logger               zerolog.Logger
}

// Auth resolves the caller's Zendesk-style basic auth header
// (base64 of "email/token:token") to a stored credential. No backend is
// contacted before this succeeds.
func Auth(cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		email, token, ok := parseAuthHeader(c.GetHeader("Authorization"))
		if !ok {
			unauthorized(c)
			return
		}

		cred, err := cfg.Source.CredentialByEmail(c.Request.Context(), email)
		if err != nil {
			if !errors.Is(err, db.ErrCredentialNotFound) {
				cfg.Logger.Error().Err(err).Msg("credential lookup failed")
			}
			unauthorized(c)
			return
		}
		if !db.VerifyToken(cred.TokenHash, token) {
			unauthorized(c)
			return
		}
		cred.Token = token

		if !cred.AnyActive() || (cfg.RequireZendeskActive && !cred.ZendeskActive) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "Backend routing disabled for this account",
			})
			return
		}

		SetCredential(c, cred)
		c.Next()
	}
}

// SetCredential attaches a resolved credential to the request context.
// The auth middleware does this on every accepted request; tests use it
// to install a credential directly.
func SetCredential(c *gin.Context, cred models.Credential) {
	c.Set(credentialKey, cred)
}

// Credential returns the credential the auth middleware resolved.
func Credential(c *gin.Context) (models.Credential, bool) {
	v, ok := c.Get(credentialKey)
	if !ok {
		return models.Credential{}, false
	}
	cred, ok := v.(models.Credential)
	return cred, ok
}

func parseAuthHeader(header string) (email, token string, ok bool) {
	const prefix = "Basic "
	if !strings.HasPrefix(header, prefix) {
		return "", "", false
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(header, prefix))
	if err != nil {
		return "", "", false
	}
	user, pass, found := strings.Cut(string(decoded), ":")
	if !found || !strings.HasSuffix(user, "/token") {
		return "", "", false
	}
	email = strings.TrimSuffix(user, "/token")
	if email == "" || pass == "" {
		return "", "", false
	}
	return email, pass, true
}

func unauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": "Couldn't authenticate you",
	})
}
