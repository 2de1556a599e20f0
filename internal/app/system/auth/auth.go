package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dalemusser/giftcircle/internal/app/features/apierr"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Session constants                                                          |
*─────────────────────────────────────────────────────────────────────────────*/

const (
	// accountIDKey is written by the sign-in service that shares this cookie.
	accountIDKey        = "account_id"
	activeIdentityIDKey = "active_identity_id"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Current-account helper                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

// SessionAccount is what we read from the session & inject into r.Context().
type SessionAccount struct {
	AccountID primitive.ObjectID
	// ActiveIdentityID is the identity the account chose to act as, if any.
	ActiveIdentityID *primitive.ObjectID
}

type ctxKey string

const currentAccountKey ctxKey = "currentAccount"

// CurrentAccount returns the signed-in account & “found?” flag.
func CurrentAccount(r *http.Request) (*SessionAccount, bool) {
	a, ok := r.Context().Value(currentAccountKey).(*SessionAccount)
	return a, ok
}

// WithTestAccount injects an account into the request context, bypassing
// the cookie. Handler tests use it.
func WithTestAccount(r *http.Request, a *SessionAccount) *http.Request {
	return withAccount(r, a)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Session manager                                                            |
*─────────────────────────────────────────────────────────────────────────────*/

// SessionManager reads and writes the shared session cookie.
type SessionManager struct {
	store *sessions.CookieStore
	name  string
	log   *zap.Logger
}

// NewSessionManager creates a cookie-backed session manager. The `secure`
// flag controls whether cookies are marked Secure and which SameSite mode
// is used.
func NewSessionManager(sessionKey, name, domain string, maxAge time.Duration, secure bool, logger *zap.Logger) (*SessionManager, error) {
	if sessionKey == "" {
		return nil, fmt.Errorf("session key is empty; provide ≥32 random chars")
	}
	if len(sessionKey) < 32 {
		logger.Warn("session key is short; 32+ chars recommended",
			zap.Int("length", len(sessionKey)))
	}
	if name == "" {
		return nil, errors.New("session name is empty")
	}

	store := sessions.NewCookieStore([]byte(sessionKey))
	store.Options = &sessions.Options{
		Domain:   domain,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		Secure:   secure,
		HttpOnly: true,
	}
	// Secure cookies may travel cross-site; local http dev stays on Lax.
	if secure {
		store.Options.SameSite = http.SameSiteNoneMode
	} else {
		store.Options.SameSite = http.SameSiteLaxMode
	}

	logger.Info("session store initialized",
		zap.String("name", name),
		zap.Bool("secure", secure),
		zap.String("domain", domain))

	return &SessionManager{store: store, name: name, log: logger}, nil
}

// LoadSession injects the signed-in account into context when the session
// carries a valid account id.
func (sm *SessionManager) LoadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := sm.store.Get(r, sm.name)
		if err != nil {
			var scErr securecookie.Error
			if errors.As(err, &scErr) && scErr.IsDecode() {
				sm.log.Debug("session cookie invalid, ignoring", zap.Error(err))
			} else {
				sm.log.Warn("session store error", zap.Error(err))
			}
		}
		if sess != nil {
			if acct, ok := accountFromSession(sess); ok {
				r = withAccount(r, acct)
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSignedIn rejects requests without an account in context (set by
// LoadSession) with 401.
func (sm *SessionManager) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentAccount(r); !ok {
			apierr.Unauthorized(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SignIn records accountID in the session. Production sign-in happens in
// another service sharing the cookie; this exists for local seeding and tests.
func (sm *SessionManager) SignIn(w http.ResponseWriter, r *http.Request, accountID primitive.ObjectID) error {
	sess, _ := sm.store.Get(r, sm.name)
	sess.Values[accountIDKey] = accountID.Hex()
	delete(sess.Values, activeIdentityIDKey)
	return sess.Save(r, w)
}

// SetActiveIdentity stores the identity the account acts as for the rest of
// the session. nil restores the default (the account itself).
func (sm *SessionManager) SetActiveIdentity(w http.ResponseWriter, r *http.Request, id *primitive.ObjectID) error {
	sess, _ := sm.store.Get(r, sm.name)
	if id == nil {
		delete(sess.Values, activeIdentityIDKey)
	} else {
		sess.Values[activeIdentityIDKey] = id.Hex()
	}
	return sess.Save(r, w)
}

// helpers

func accountFromSession(s *sessions.Session) (*SessionAccount, bool) {
	acctID, err := primitive.ObjectIDFromHex(getString(s, accountIDKey))
	if err != nil {
		return nil, false
	}
	acct := &SessionAccount{AccountID: acctID}
	if hex := getString(s, activeIdentityIDKey); hex != "" {
		if id, err := primitive.ObjectIDFromHex(hex); err == nil {
			acct.ActiveIdentityID = &id
		}
	}
	return acct, true
}

func withAccount(r *http.Request, a *SessionAccount) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentAccountKey, a))
}

// getString safely extracts a string from a session value.
func getString(s *sessions.Session, key string) string {
	if v, ok := s.Values[key].(string); ok {
		return v
	}
	return ""
}
