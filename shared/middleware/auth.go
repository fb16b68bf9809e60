package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	ctxUserID = "userId"
	ctxEmail  = "email"
	ctxRoles  = "roles"
)

// Claims is the bearer token payload. Tokens are issued elsewhere; this
// service only verifies them.
type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Roles  []int  `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// AuthMiddleware verifies an HS256 bearer token signed with secret.
func AuthMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"message": "Authorization header required",
			})
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"message": "Invalid authorization header format",
			})
			c.Abort()
			return
		}

		tokenString := parts[1]
		claims := &Claims{}

		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
			return secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{
				"message": "Invalid or expired token",
			})
			c.Abort()
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxEmail, claims.Email)
		c.Set(ctxRoles, claims.Roles)
		c.Next()
	}
}

func GetUserID(c *gin.Context) (string, bool) {
	userID, exists := c.Get(ctxUserID)
	if !exists {
		return "", false
	}
	id, ok := userID.(string)
	return id, ok
}

// GetRoles returns the role identifiers carried by the verified token.
func GetRoles(c *gin.Context) []int {
	roles, exists := c.Get(ctxRoles)
	if !exists {
		return nil
	}
	ids, _ := roles.([]int)
	return ids
}

// HasAnyRole reports whether the verified token carries one of roles.
func HasAnyRole(c *gin.Context, roles ...int) bool {
	for _, have := range GetRoles(c) {
		for _, want := range roles {
			if have == want {
				return true
			}
		}
	}
	return false
}
