package middleware

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/glasshq/glass-server/internal/domain"
	"github.com/glasshq/glass-server/internal/storage"
)

type contextKey string

const identityContextKey contextKey = "identity"

// Identity describes the authenticated caller. API-key callers are
// service identities with admin access; everyone else comes from the
// external identity provider.
type Identity struct {
	Subject string
	Email   string
	Name    string
	Admin   bool
}

// Authenticator validates bearer tokens. A token is first tried as a
// service API key; otherwise it is verified as an OIDC ID token issued
// by the external identity provider.
type Authenticator struct {
	store        storage.Storage
	verifier     *oidc.IDTokenVerifier
	bootstrapKey string
	adminEmails  map[string]bool
}

// NewAuthenticator creates an Authenticator. verifier may be nil when
// OIDC is not configured; only API keys are accepted then.
func NewAuthenticator(store storage.Storage, verifier *oidc.IDTokenVerifier, bootstrapKey string, adminEmails []string) *Authenticator {
	admins := make(map[string]bool, len(adminEmails))
	for _, email := range adminEmails {
		admins[strings.ToLower(strings.TrimSpace(email))] = true
	}
	return &Authenticator{
		store:        store,
		verifier:     verifier,
		bootstrapKey: bootstrapKey,
		adminEmails:  admins,
	}
}

// Authenticate resolves the Authorization header when present and
// attaches the caller identity to the request context. Requests without
// a token proceed anonymously; guarding routes is RequireAuth's job.
func (a *Authenticator) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			next.ServeHTTP(w, r)
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			http.Error(w, `{"code":401,"message":"invalid authorization header format"}`, http.StatusUnauthorized)
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == "" {
			http.Error(w, `{"code":401,"message":"empty bearer token"}`, http.StatusUnauthorized)
			return
		}

		identity, err := a.resolve(r.Context(), token)
		if err != nil {
			if errors.Is(err, domain.ErrUnauthorized) || errors.Is(err, domain.ErrInvalidAPIKey) {
				http.Error(w, `{"code":401,"message":"invalid credentials"}`, http.StatusUnauthorized)
				return
			}
			http.Error(w, `{"code":500,"message":"internal server error"}`, http.StatusInternalServerError)
			return
		}

		ctx := context.WithValue(r.Context(), identityContextKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *Authenticator) resolve(ctx context.Context, token string) (*Identity, error) {
	keyCount, err := a.store.CountAPIKeys(ctx)
	if err != nil {
		return nil, err
	}

	// While no API keys exist, the bootstrap key grants admin access so
	// the first real key can be created.
	if keyCount == 0 && a.bootstrapKey != "" {
		if subtle.ConstantTimeCompare([]byte(token), []byte(a.bootstrapKey)) == 1 {
			return &Identity{Subject: "bootstrap", Name: "Bootstrap Key", Admin: true}, nil
		}
	}

	storedKey, err := a.store.GetAPIKeyByHash(ctx, hashAPIKey(token))
	if err == nil {
		// Update last used timestamp (fire and forget)
		go func() {
			_ = a.store.UpdateAPIKeyLastUsed(context.Background(), storedKey.ID)
		}()
		return &Identity{Subject: "key:" + storedKey.ID, Name: storedKey.Name, Admin: true}, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	if a.verifier == nil {
		return nil, domain.ErrInvalidAPIKey
	}

	idToken, err := a.verifier.Verify(ctx, token)
	if err != nil {
		return nil, domain.ErrUnauthorized
	}

	var claims struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, domain.ErrUnauthorized
	}

	return &Identity{
		Subject: idToken.Subject,
		Email:   claims.Email,
		Name:    claims.Name,
		Admin:   a.adminEmails[strings.ToLower(claims.Email)],
	}, nil
}

// RequireAuth rejects requests that carry no authenticated identity.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetIdentity(r.Context()) == nil {
			http.Error(w, `{"code":401,"message":"authentication required"}`, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects callers without admin access.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := GetIdentity(r.Context())
		if identity == nil {
			http.Error(w, `{"code":401,"message":"authentication required"}`, http.StatusUnauthorized)
			return
		}
		if !identity.Admin {
			http.Error(w, `{"code":403,"message":"admin access required"}`, http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetIdentity retrieves the caller identity from the request context,
// or nil for anonymous requests.
func GetIdentity(ctx context.Context) *Identity {
	identity, _ := ctx.Value(identityContextKey).(*Identity)
	return identity
}

// hashAPIKey creates a SHA-256 hash of the API key.
// We use SHA-256 for fast lookups since API keys are already
// high-entropy random strings.
func hashAPIKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}
