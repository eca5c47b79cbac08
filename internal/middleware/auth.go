package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"hiredalways/internal/util"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

// LocalAdmin is the fiber.Locals key holding the authenticated admin subject.
const LocalAdmin = "admin"

const adminSubject = "admin"

// AdminAuth guards the admin API with the shared ADMIN_SECRET. The secret is
// accepted either as the secret_key query parameter or exchanged for a bearer
// token at login.
type AdminAuth struct {
	hash       []byte
	signingKey []byte
	ttl        time.Duration
	now        func() time.Time
}

// NewAdminAuth hashes secret with bcrypt. An empty secret disables admin access.
func NewAdminAuth(secret string, ttl time.Duration) (*AdminAuth, error) {
	a := &AdminAuth{ttl: ttl, now: time.Now}
	if secret == "" {
		return a, nil
	}

	// bcrypt only reads the first 72 bytes, so long secrets are digested first
	hash, err := bcrypt.GenerateFromPassword(digest(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash admin secret: %w", err)
	}
	key := sha256.Sum256([]byte("admin-token:" + secret))
	a.hash = hash
	a.signingKey = key[:]
	return a, nil
}

func digest(secret string) []byte {
	sum := sha256.Sum256([]byte(secret))
	return []byte(hex.EncodeToString(sum[:]))
}

func (a *AdminAuth) Enabled() bool {
	return len(a.hash) > 0
}

// CheckSecret reports whether candidate matches the admin secret.
func (a *AdminAuth) CheckSecret(candidate string) bool {
	if !a.Enabled() || candidate == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(a.hash, digest(candidate)) == nil
}

// IssueToken returns a signed admin session token.
func (a *AdminAuth) IssueToken() (string, time.Time, error) {
	if !a.Enabled() {
		return "", time.Time{}, fmt.Errorf("admin access is disabled")
	}
	now := a.now()
	token, err := util.GenerateToken(adminSubject, a.signingKey, a.ttl, now)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, now.Add(a.ttl), nil
}

func (a *AdminAuth) checkToken(token string) (string, bool) {
	if !a.Enabled() {
		return "", false
	}
	subject, err := util.ValidateToken(token, a.signingKey)
	if err != nil {
		return "", false
	}
	return subject, true
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
		"error": "Unauthorized",
	})
}

// Handler rejects every request that carries neither a valid secret_key nor
// a valid bearer token.
func (a *AdminAuth) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !a.Enabled() {
			return unauthorized(c)
		}

		if secret := c.Query("secret_key"); secret != "" {
			if !a.CheckSecret(secret) {
				return unauthorized(c)
			}
			c.Locals(LocalAdmin, adminSubject)
			return c.Next()
		}

		// Bearer token
		tokenParts := strings.Split(c.Get(fiber.HeaderAuthorization), " ")
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
			return unauthorized(c)
		}
		subject, ok := a.checkToken(tokenParts[1])
		if !ok {
			return unauthorized(c)
		}

		c.Locals(LocalAdmin, subject)
		return c.Next()
	}
}
