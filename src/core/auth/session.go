package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	// SessionCookie 会话 cookie 名
	SessionCookie = "bird_rescue_session"
	sessionKey    = "session_id"
)

// SessionMiddleware 确保每个请求都有会话ID，缺失或无效时签发新的会话
func SessionMiddleware(at *AuthToken, secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, err := c.Cookie(SessionCookie); err == nil {
			if sessionID, err := at.VerifyToken(token); err == nil {
				c.Set(sessionKey, sessionID)
				c.Next()
				return
			}
		}

		sessionID := NewSessionID()
		token, err := at.GenerateToken(sessionID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(SessionCookie, token, int(SessionTTL.Seconds()), "/", "", secure, true)
		c.Set(sessionKey, sessionID)
		c.Next()
	}
}

// SessionID 取出中间件放入的会话ID
func SessionID(c *gin.Context) string {
	return c.GetString(sessionKey)
}
