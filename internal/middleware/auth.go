package middleware

import (
	"errors"
	"net/http"
	"strings"

	"go-gin-bus-booking/config"
	apperrors "go-gin-bus-booking/pkg/app_errors"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const identityKey = "identity"

// Identity is the caller described by a verified bearer token.
type Identity struct {
	AccountID string
	Email     string
	Role      string
}

// Claims are the token fields we read. The role may sit at the top level or under
// app_metadata, depending on the identity provider.
type Claims struct {
	Email       string `json:"email"`
	Role        string `json:"role"`
	AppMetadata struct {
		Role string `json:"role"`
	} `json:"app_metadata"`
	jwt.RegisteredClaims
}

// Authenticate attaches the caller identity when a bearer token is present. Requests
// without a token pass through anonymously; a bad token is rejected.
func Authenticate(cfg config.AuthConfig) gin.HandlerFunc {
	secret := []byte(cfg.JWTSecret)

	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}

		tokenStr, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenStr == "" {
			abort(c, http.StatusUnauthorized, apperrors.ErrUnauthorized)
			return
		}

		identity, err := parseToken(tokenStr, secret)
		if err != nil {
			abort(c, http.StatusUnauthorized, apperrors.ErrUnauthorized)
			return
		}

		SetIdentity(c, identity)
		c.Next()
	}
}

// RequireAuth rejects anonymous requests.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := GetIdentity(c); !ok {
			abort(c, http.StatusUnauthorized, apperrors.ErrUnauthorized)
			return
		}
		c.Next()
	}
}

// RequireAdmin only lets through callers holding the admin role.
func RequireAdmin(adminRole string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := GetIdentity(c)
		if !ok {
			abort(c, http.StatusUnauthorized, apperrors.ErrUnauthorized)
			return
		}
		if identity.Role != adminRole {
			abort(c, http.StatusForbidden, apperrors.ErrForbidden)
			return
		}
		c.Next()
	}
}

func GetIdentity(c *gin.Context) (*Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil, false
	}
	identity, ok := v.(*Identity)
	return identity, ok && identity != nil
}

func parseToken(tokenStr string, secret []byte) (*Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}

	role := claims.AppMetadata.Role
	if role == "" {
		role = claims.Role
	}

	return &Identity{
		AccountID: claims.Subject,
		Email:     strings.ToLower(claims.Email),
		Role:      role,
	}, nil
}

func abort(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

// SetIdentity attaches an already verified identity to the request.
func SetIdentity(c *gin.Context, identity *Identity) {
	c.Set(identityKey, identity)
}
