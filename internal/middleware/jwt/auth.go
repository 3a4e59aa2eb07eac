package jwt

import (
	"strings"

	"SchoolLink/pkg/back"
	"SchoolLink/pkg/util/myjwt"
	"SchoolLink/pkg/xerr"
	"SchoolLink/pkg/zlog"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Auth 只确认账号身份；学校归属由各服务自行解析，不从 token 读取
func Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || strings.TrimSpace(tokenString) == "" {
			back.Error(c, xerr.Unauthorized, "missing or invalid authorization header")
			c.Abort()
			return
		}

		claims, err := myjwt.ParseToken(strings.TrimSpace(tokenString))
		if err != nil {
			zlog.Debug("jwt rejected", zap.String("path", c.Request.URL.Path), zap.Error(err))
			back.Error(c, xerr.Unauthorized, "invalid token")
			c.Abort()
			return
		}

		c.Set("uuid", claims.Uuid)
		c.Set("username", claims.Username)
		c.Next()
	}
}
