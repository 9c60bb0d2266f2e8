package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	ContextBuyerID = "buyer_id"
	ContextIsAdmin = "is_admin"
)

type claims struct {
	IsAdmin bool `json:"is_admin"`
	jwt.RegisteredClaims
}

// RequireAuth validates the bearer token and injects the authenticated
// identity into the request context. Core operations receive the identity
// explicitly; nothing reads ambient session state.
func RequireAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing bearer token"})
			return
		}

		token, err := jwt.ParseWithClaims(
			strings.TrimPrefix(header, "Bearer "),
			&claims{},
			func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			},
		)
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		tokenClaims, ok := token.Claims.(*claims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}
		buyerID, err := uuid.Parse(tokenClaims.Subject)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token subject"})
			return
		}

		c.Set(ContextBuyerID, buyerID)
		c.Set(ContextIsAdmin, tokenClaims.IsAdmin)
		c.Next()
	}
}

// RequireAdmin gates event administration and check-in devices.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsAdmin(c) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		c.Next()
	}
}

// BuyerID returns the authenticated buyer id from the request context.
func BuyerID(c *gin.Context) (uuid.UUID, bool) {
	value, exists := c.Get(ContextBuyerID)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := value.(uuid.UUID)
	return id, ok
}

func IsAdmin(c *gin.Context) bool {
	value, exists := c.Get(ContextIsAdmin)
	if !exists {
		return false
	}
	isAdmin, ok := value.(bool)
	return ok && isAdmin
}
