// Package auth resolves the caller identity and tier from an optional
// bearer token.
package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/NeousAxis/Wise-Weather-App-sub000/internal/community"
	"github.com/NeousAxis/Wise-Weather-App-sub000/internal/subscription"
)

const localsKey = "identity"

var ErrInvalidToken = errors.New("invalid token")

// Identity is the authenticated caller.
type Identity struct {
	UserID string
	Tier   subscription.Tier
}

// Anonymous is the identity used when no token is presented.
var Anonymous = Identity{UserID: community.AnonymousUser, Tier: subscription.TierFree}

// Verifier validates and issues HS256 tokens.
type Verifier struct {
	secret []byte
}

// NewVerifier returns nil for an empty secret; a nil Verifier treats every
// caller as anonymous.
func NewVerifier(secret string) *Verifier {
	if secret == "" {
		return nil
	}
	return &Verifier{secret: []byte(secret)}
}

// Parse validates tokenString and extracts the identity from its sub and
// tier claims.
func (v *Verifier) Parse(tokenString string) (Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return Identity{}, ErrInvalidToken
	}
	tierClaim, _ := claims["tier"].(string)
	tier, err := subscription.ParseTier(tierClaim)
	if err != nil {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: sub, Tier: tier}, nil
}

// Issue signs a token for id valid for ttl.
func (v *Verifier) Issue(id Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  id.UserID,
		"tier": string(id.Tier),
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	})
	return token.SignedString(v.secret)
}

// Middleware stores the caller identity in the fiber context. A missing
// header yields Anonymous; a bad token is rejected with 401.
func Middleware(v *Verifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if v == nil || header == "" {
			c.Locals(localsKey, Anonymous)
			return c.Next()
		}

		raw, found := strings.CutPrefix(header, "Bearer ")
		if !found {
			return fiber.NewError(fiber.StatusUnauthorized, "expected bearer token")
		}
		id, err := v.Parse(strings.TrimSpace(raw))
		if err != nil {
			log.WithError(err).Debug("auth: rejected token")
			return fiber.NewError(fiber.StatusUnauthorized, ErrInvalidToken.Error())
		}
		c.Locals(localsKey, id)
		return c.Next()
	}
}

// FromContext returns the identity set by Middleware, or Anonymous.
func FromContext(c *fiber.Ctx) Identity {
	if id, ok := c.Locals(localsKey).(Identity); ok {
		return id
	}
	return Anonymous
}
