package middleware

import (
	"context"
	"lesson_platform_backend/internal/util"
	"net/http"

	"github.com/gin-gonic/gin"
)

// VerificationChecker 查询用户是否已完成邮箱验证
type VerificationChecker interface {
	IsVerified(ctx context.Context, userID uint) (bool, error)
}

// VerificationGate 未完成邮箱验证时拒绝访问笔记
func VerificationGate(checker VerificationChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := util.GetUserFromContext(c)
		if user == nil {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		ok, err := checker.IsVerified(c.Request.Context(), user.UserID)
		if err != nil {
			util.LogInternalError(c, err)
			c.Abort()
			return
		}
		if !ok {
			util.Error(c, http.StatusForbidden, util.ErrNotVerified.Error())
			c.Abort()
			return
		}
		c.Next()
	}
}
