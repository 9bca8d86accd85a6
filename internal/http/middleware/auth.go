package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/fieldcrew-backend/internal/service"
)

// Context ключи для gin.Context.
const (
	ContextAdminKey = "admin"
	ContextGrantKey = "documentGrant"
)

// GrantHeader - заголовок с токеном доступа к документу.
const GrantHeader = "X-Document-Grant"

// AuthMiddleware проверяет JWT access токен администратора.
func AuthMiddleware(tokens *service.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "message": "Authorization required."})
			return
		}

		raw := strings.TrimPrefix(auth, "Bearer ")
		claims, err := tokens.ParseAccess(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "message": "Invalid access token."})
			return
		}

		c.Set(ContextAdminKey, claims)
		c.Next()
	}
}

// DocumentGrant кладёт в контекст токен доступа к документу из заголовка.
// Проверяет токен сервис: без него закрытый документ просто не откроется.
func DocumentGrant() gin.HandlerFunc {
	return func(c *gin.Context) {
		if grant := strings.TrimSpace(c.GetHeader(GrantHeader)); grant != "" {
			c.Set(ContextGrantKey, grant)
		}
		c.Next()
	}
}
