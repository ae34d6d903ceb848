package middleware

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"milkportal/domain/core"
	"milkportal/domain/submission"
	apperrors "milkportal/internal/errors"
	"milkportal/ports"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
)

const (
	userContextKey = "milkportal.user"

	// DefaultEmail is the identity used when no JWT secret is configured
	DefaultEmail = "local@milkportal.invalid"
	DefaultName  = "Local User"
)

// AuthOptions configures bearer token verification
type AuthOptions struct {
	Secret   string
	Audience string
	// IsAdmin grants the admin role to configured emails regardless of the token
	IsAdmin func(email string) bool
}

// Claims are the identity fields read from the bearer token
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Authenticate resolves the caller into a stored user. Without a secret every
// request runs as the default local identity with the admin role.
func Authenticate(opts AuthOptions, users ports.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := identify(c.GetHeader("Authorization"), opts)
		if err != nil {
			log.Printf("[Authenticate] Rejected request to %s: %v", c.FullPath(), err)
			abort(c, http.StatusUnauthorized, apperrors.Unauthorized(err.Error()))
			return
		}

		user, err := resolveUser(c, users, identity)
		if err != nil {
			log.Printf("[Authenticate] Failed to resolve user %s: %v", identity.Email, err)
			abort(c, http.StatusInternalServerError, apperrors.DatabaseError("failed to load user"))
			return
		}

		c.Set(userContextKey, user)
		c.Next()
	}
}

func abort(c *gin.Context, status int, err *apperrors.AppError) {
	c.AbortWithStatusJSON(status, gin.H{"error": err.Message, "code": err.Code})
}

// CurrentUser returns the user stored by Authenticate
func CurrentUser(c *gin.Context) (*submission.User, bool) {
	v, ok := c.Get(userContextKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*submission.User)
	return user, ok && user != nil
}

func identify(header string, opts AuthOptions) (*submission.User, error) {
	if opts.Secret == "" {
		return &submission.User{Email: DefaultEmail, Name: DefaultName, Role: submission.RoleAdmin}, nil
	}

	raw := strings.TrimSpace(header)
	if len(raw) < 7 || !strings.EqualFold(raw[:7], "bearer ") {
		return nil, errors.New("missing bearer token")
	}
	claims, err := ParseToken(strings.TrimSpace(raw[7:]), opts.Secret, opts.Audience)
	if err != nil {
		return nil, err
	}

	role := submission.RoleMember
	if strings.EqualFold(claims.Role, string(submission.RoleAdmin)) || (opts.IsAdmin != nil && opts.IsAdmin(claims.Email)) {
		role = submission.RoleAdmin
	}
	return &submission.User{Email: claims.Email, Name: claims.Name, Role: role}, nil
}

// ParseToken verifies an HS256 token and returns its claims. audience is
// checked only when non-empty.
func ParseToken(tokenString, secret, audience string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if audience != "" && !claims.VerifyAudience(audience, true) {
		return nil, errors.New("invalid token audience")
	}
	if strings.TrimSpace(claims.Email) == "" {
		return nil, errors.New("token has no email claim")
	}
	return claims, nil
}

// resolveUser loads the stored user, writing through only when the token
// carries a name or role the store does not have yet
func resolveUser(c *gin.Context, users ports.UserRepository, identity *submission.User) (*submission.User, error) {
	ctx := c.Request.Context()
	existing, err := users.GetByEmail(ctx, identity.Email)
	if err != nil && !errors.Is(err, core.ErrUserNotFound) {
		return nil, err
	}
	if existing != nil && existing.Role == identity.Role && (identity.Name == "" || existing.Name == identity.Name) {
		return existing, nil
	}
	return users.Upsert(ctx, identity)
}
