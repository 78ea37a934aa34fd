package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
)

type Claims struct {
	Subject string
	IsAdmin bool
}

const claimsContextKey = "auth_claims"

var ErrInvalidCredentials = errors.New("invalid credentials")

// Authenticator gates mutating endpoints. It accepts either the static admin
// token or a session token issued by Login.
type Authenticator struct {
	db         *pgxpool.Pool
	adminToken string
	sessionTTL time.Duration
}

func NewAuthenticator(db *pgxpool.Pool, adminToken string, sessionTTL time.Duration) *Authenticator {
	if sessionTTL <= 0 {
		sessionTTL = 2 * time.Hour
	}
	return &Authenticator{
		db:         db,
		adminToken: adminToken,
		sessionTTL: sessionTTL,
	}
}

func (a *Authenticator) Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := extractToken(c.Request())
		if token == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing API token")
		}

		claims, err := a.Authenticate(c.Request().Context(), token)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid API token")
		}
		c.Set(claimsContextKey, claims)

		return next(c)
	}
}

func (a *Authenticator) Authenticate(ctx context.Context, token string) (Claims, error) {
	if token == a.adminToken {
		return Claims{Subject: "admin", IsAdmin: true}, nil
	}

	var subject string
	var isAdmin bool
	var expiresAt time.Time
	err := a.db.QueryRow(ctx, `
		SELECT subject, is_admin, expires_at
		FROM session_tokens
		WHERE token_hash = $1
	`, hashToken(token)).Scan(&subject, &isAdmin, &expiresAt)
	if err != nil {
		return Claims{}, err
	}
	if time.Now().After(expiresAt) {
		return Claims{}, errors.New("session expired")
	}

	return Claims{Subject: subject, IsAdmin: isAdmin}, nil
}

// Login verifies the username/password pair against the users table and
// issues a fresh session token, displacing any previous session for the
// same subject.
func (a *Authenticator) Login(ctx context.Context, username, password string) (string, Claims, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", Claims{}, ErrInvalidCredentials
	}

	var passwordHash string
	var isAdmin bool
	err := a.db.QueryRow(ctx, `
		SELECT password_hash, is_admin
		FROM users
		WHERE username = $1
	`, username).Scan(&passwordHash, &isAdmin)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", Claims{}, ErrInvalidCredentials
		}
		return "", Claims{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password)) != nil {
		return "", Claims{}, ErrInvalidCredentials
	}

	token, err := generateToken(32)
	if err != nil {
		return "", Claims{}, err
	}

	tx, err := a.db.Begin(ctx)
	if err != nil {
		return "", Claims{}, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		DELETE FROM session_tokens WHERE subject = $1
	`, username); err != nil {
		return "", Claims{}, err
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO session_tokens (token_hash, subject, is_admin, expires_at)
		VALUES ($1, $2, $3, $4)
	`, hashToken(token), username, isAdmin, time.Now().Add(a.sessionTTL)); err != nil {
		return "", Claims{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return "", Claims{}, err
	}

	return token, Claims{Subject: username, IsAdmin: isAdmin}, nil
}

// EnsureAdminUser creates or refreshes the bootstrap admin account. A blank
// password leaves an existing account untouched.
func (a *Authenticator) EnsureAdminUser(ctx context.Context, username, password string) error {
	if strings.TrimSpace(username) == "" || password == "" {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	_, err = a.db.Exec(ctx, `
		INSERT INTO users (username, password_hash, is_admin)
		VALUES ($1, $2, true)
		ON CONFLICT (username)
		DO UPDATE SET password_hash = EXCLUDED.password_hash, is_admin = true
	`, username, string(hash))
	return err
}

func GetClaims(c echo.Context) (Claims, bool) {
	raw := c.Get(claimsContextKey)
	if raw == nil {
		return Claims{}, false
	}
	claims, ok := raw.(Claims)
	return claims, ok
}

func extractToken(r *http.Request) string {
	authz := strings.TrimSpace(r.Header.Get("Authorization"))
	if authz != "" {
		if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return strings.TrimSpace(authz[len("bearer "):])
		}
		return authz
	}
	return strings.TrimSpace(r.Header.Get("X-API-Token"))
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func generateToken(lengthBytes int) (string, error) {
	buf := make([]byte, lengthBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
