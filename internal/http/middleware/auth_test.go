package middleware

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/deskbridge/backend/internal/db"
	"github.com/deskbridge/backend/internal/models"
)

type fakeSource struct {
	creds   map[string]models.Credential
	lookups int
}

func (f *fakeSource) CredentialByEmail(ctx context.Context, email string) (models.Credential, error) {
	f.lookups++
	cred, ok := f.creds[email]
	if !ok {
		return models.Credential{}, db.ErrCredentialNotFound
	}
	return cred, nil
}

func basicAuth(email, token string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(email+"/token:"+token))
}

func authRig(t *testing.T, cfg AuthConfig) (*gin.Engine, *int) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	backendCalls := 0
	r := gin.New()
	r.Use(Auth(cfg))
	r.GET("/probe", func(c *gin.Context) {
		backendCalls++
		cred, _ := Credential(c)
		c.JSON(http.StatusOK, gin.H{"email": cred.Email})
	})
	return r, &backendCalls
}

func newFakeSource(t *testing.T) *fakeSource {
	t.Helper()
	hash, err := db.HashToken("good-token")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return &fakeSource{creds: map[string]models.Credential{
		"tenant@example.com": {
			Email:         "tenant@example.com",
			TokenHash:     hash,
			Subdomain:     "tenant",
			ZendeskActive: true,
			HaloActive:    true,
		},
	}}
}

func doProbe(r *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthAccepted(t *testing.T) {
	source := newFakeSource(t)
	r, calls := authRig(t, AuthConfig{Source: source, Logger: zerolog.Nop()})

	w := doProbe(r, basicAuth("tenant@example.com", "good-token"))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	if *calls != 1 {
		t.Fatalf("expected handler reached once, got %d", *calls)
	}
}

func TestAuthRejections(t *testing.T) {
	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not basic", "Bearer abc"},
		{"not base64", "Basic %%%"},
		{"wrong shape", "Basic " + base64.StdEncoding.EncodeToString([]byte("tenant@example.com:tok"))},
		{"unknown email", basicAuth("nobody@example.com", "good-token")},
		{"token mismatch", basicAuth("tenant@example.com", "bad-token")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			source := newFakeSource(t)
			r, calls := authRig(t, AuthConfig{Source: source, Logger: zerolog.Nop()})
			w := doProbe(r, tc.header)
			if w.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", w.Code)
			}
			if w.Body.String() != `{"error":"Couldn't authenticate you"}` {
				t.Fatalf("unexpected body: %s", w.Body.String())
			}
			if *calls != 0 {
				t.Fatalf("handler must not run before auth succeeds, got %d calls", *calls)
			}
		})
	}
}

func TestAuthPolicyRequiresZendeskActive(t *testing.T) {
	source := newFakeSource(t)
	hash, _ := db.HashToken("good-token")
	source.creds["halo-only@example.com"] = models.Credential{
		Email:      "halo-only@example.com",
		TokenHash:  hash,
		HaloActive: true,
	}
	r, _ := authRig(t, AuthConfig{Source: source, RequireZendeskActive: true, Logger: zerolog.Nop()})

	w := doProbe(r, basicAuth("halo-only@example.com", "good-token"))
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 under zendesk-active policy, got %d", w.Code)
	}
}

func TestAuthRejectsAllBackendsInactive(t *testing.T) {
	source := newFakeSource(t)
	hash, _ := db.HashToken("good-token")
	source.creds["off@example.com"] = models.Credential{
		Email:     "off@example.com",
		TokenHash: hash,
	}
	r, _ := authRig(t, AuthConfig{Source: source, Logger: zerolog.Nop()})

	w := doProbe(r, basicAuth("off@example.com", "good-token"))
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 with no active backend, got %d", w.Code)
	}
}
