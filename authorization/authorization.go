package authorization

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/casbin/casbin"
	"github.com/cristalhq/jwt/v4"
	"github.com/sirupsen/logrus"

	"github.com/devops-ftn-2024/accommodations/domain"
)

// Unauthenticated is the casbin subject of requests that carry no caller.
const Unauthenticated = "Unauthenticated"

// UserHeader carries the caller as JSON when the gateway already authenticated it.
const UserHeader = "user"

type loggedUserKey struct{}

var (
	ErrInvalidToken = errors.New("invalid token format")
	ErrTokenExpired = errors.New("token expired")
)

// tokenClaims mirrors the claims issued by the auth service.
type tokenClaims struct {
	Username  string    `json:"username"`
	UserType  string    `json:"userType"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Authenticator struct {
	verifier jwt.Verifier
	logger   *logrus.Logger
}

func NewAuthenticator(secret []byte, logger *logrus.Logger) (*Authenticator, error) {
	verifier, err := jwt.NewVerifierHS(jwt.HS256, secret)
	if err != nil {
		return nil, err
	}
	return &Authenticator{verifier: verifier, logger: logger}, nil
}

// LoggedUser identifies the caller from a bearer token or, failing that, the
// gateway user header. It returns nil without error when neither is present.
func (a *Authenticator) LoggedUser(r *http.Request) (*domain.LoggedUser, error) {
	if bearer := r.Header.Get("Authorization"); bearer != "" {
		return a.fromBearer(bearer)
	}

	header := r.Header.Get(UserHeader)
	if header == "" {
		return nil, nil
	}

	var user domain.LoggedUser
	if err := json.Unmarshal([]byte(header), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (a *Authenticator) fromBearer(bearer string) (*domain.LoggedUser, error) {
	bearerToken := strings.Split(bearer, "Bearer ")
	if len(bearerToken) != 2 {
		return nil, ErrInvalidToken
	}

	token, err := jwt.Parse([]byte(bearerToken[1]), a.verifier)
	if err != nil {
		return nil, err
	}

	var claims tokenClaims
	if err := jwt.ParseClaims(token.Bytes(), a.verifier, &claims); err != nil {
		return nil, err
	}
	if !claims.ExpiresAt.IsZero() && claims.ExpiresAt.Before(time.Now()) {
		return nil, ErrTokenExpired
	}

	role := claims.UserType
	if role == "" {
		role = claims.Role
	}
	return &domain.LoggedUser{Username: claims.Username, Role: domain.ParseRole(role)}, nil
}

// Middleware stores the caller in the request context; unreadable credentials are rejected.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := a.LoggedUser(r)
		if err != nil {
			a.logger.WithError(err).Warn("Rejected request with unreadable credentials")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		if user != nil {
			r = r.WithContext(WithLoggedUser(r.Context(), *user))
		}
		next.ServeHTTP(w, r)
	})
}

func WithLoggedUser(ctx context.Context, user domain.LoggedUser) context.Context {
	return context.WithValue(ctx, loggedUserKey{}, user)
}

func LoggedUserFromContext(ctx context.Context) (domain.LoggedUser, bool) {
	user, ok := ctx.Value(loggedUserKey{}).(domain.LoggedUser)
	return user, ok
}

func subject(ctx context.Context) string {
	user, ok := LoggedUserFromContext(ctx)
	if !ok || user.Role == "" {
		return Unauthenticated
	}
	return string(user.Role)
}

func NewEnforcer(modelPath, policyPath string) (*casbin.Enforcer, error) {
	return casbin.NewEnforcerSafe(modelPath, policyPath)
}

// CasbinMiddleware authorizes the caller's role for the request path and method.
// It must run after Authenticator.Middleware.
func CasbinMiddleware(e *casbin.Enforcer, logger *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sub := subject(r.Context())
			res, err := e.EnforceSafe(sub, r.URL.Path, r.Method)
			if err != nil {
				logger.WithError(err).Error("Enforce error")
				http.Error(w, "Unauthorized user", http.StatusUnauthorized)
				return
			}

			if !res {
				logger.WithFields(logrus.Fields{
					"subject": sub,
					"path":    r.URL.Path,
					"method":  r.Method,
				}).Info("Forbidden")
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
