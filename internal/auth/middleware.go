package auth

import (
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// UserClaims are minted by the account service; this core only validates.
type UserClaims struct {
	UserID         int64   `json:"userId"`
	UserType       string  `json:"userType"`       // "SUPER_ADMIN" / "ORG_USER"
	OrganizationID *int64  `json:"organizationId"` // nil for SUPER_ADMIN
	OrgRole        *string `json:"orgRole"`        // "ADMIN" / "OPERATOR"
	jwt.RegisteredClaims
}

func jwtSecret() []byte {
	if s := os.Getenv("JWT_SECRET"); s != "" {
		return []byte(s)
	}
	return []byte("dev-only-secret")
}

func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Authorization header missing or invalid",
			})
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		token, err := jwt.ParseWithClaims(tokenString, &UserClaims{}, func(t *jwt.Token) (interface{}, error) {
			return jwtSecret(), nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "invalid token",
			})
			c.Abort()
			return
		}

		claims, ok := token.Claims.(*UserClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "invalid token claims",
			})
			c.Abort()
			return
		}

		cu := CurrentUser{
			ID:             claims.UserID,
			UserType:       UserType(claims.UserType),
			OrganizationID: claims.OrganizationID,
		}
		if claims.OrgRole != nil {
			role := OrgRole(*claims.OrgRole)
			cu.OrgRole = &role
		}

		c.Set(ContextUserKey, cu)
		c.Next()
	}
}

// GetCurrentUser pulls the authenticated caller out of the gin context.
func GetCurrentUser(c *gin.Context) (CurrentUser, bool) {
	v, ok := c.Get(ContextUserKey)
	if !ok {
		return CurrentUser{}, false
	}
	cu, ok := v.(CurrentUser)
	return cu, ok
}
