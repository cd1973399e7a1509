package controller

import (
	"errors"
	"io"
	"lesson_platform_backend/internal/config"
	"lesson_platform_backend/internal/middleware"
	"lesson_platform_backend/internal/service"
	"lesson_platform_backend/internal/util"
	"lesson_platform_backend/pkg/logger"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const invalidCodeMessage = "Invalid or expired verification code"

type VerificationController struct {
	VerificationService *service.VerificationService
	Cfg                 *config.Config
}

func NewVerificationController(verificationService *service.VerificationService, cfg *config.Config) *VerificationController {
	return &VerificationController{VerificationService: verificationService, Cfg: cfg}
}

type SendVerificationEmailRequest struct {
	Email string `json:"email"`
}

type VerifyEmailCodeRequest struct {
	Code string `json:"code"`
}

// SendVerificationEmail godoc
// @Summary 发送邮箱验证码
// @Description 为当前用户生成验证码并发送到指定邮箱，未指定时使用账号邮箱
// @Tags 邮箱验证
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param body body SendVerificationEmailRequest true "邮箱"
// @Success 200 {object} util.FunctionSuccess
// @Failure 400 {object} util.FunctionError
// @Failure 401 {object} util.FunctionError
// @Failure 429 {object} util.FunctionError
// @Failure 500 {object} util.FunctionError
// @Router /functions/v1/send-verification-email [post]
func (c *VerificationController) SendVerificationEmail(ctx *gin.Context) {
	claims, ok := c.authenticate(ctx, http.StatusUnauthorized)
	if !ok {
		return
	}

	// 空请求体等同于未指定邮箱
	var req SendVerificationEmailRequest
	if err := ctx.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		util.FunctionFail(ctx, http.StatusBadRequest, "Invalid request body")
		return
	}
	email := req.Email
	if email == "" {
		email = claims.Email
	}

	err := c.VerificationService.SendCode(ctx.Request.Context(), claims.UserID, email)
	switch {
	case err == nil:
		util.FunctionOK(ctx, "Verification code sent")
	case errors.Is(err, util.ErrInvalidEmail):
		util.FunctionFail(ctx, http.StatusBadRequest, err.Error())
	case errors.Is(err, util.ErrResendTooSoon):
		util.FunctionFail(ctx, http.StatusTooManyRequests, err.Error())
	default:
		logger.Log.Error("Send verification email failed", zap.Uint("user_id", claims.UserID), zap.Error(err))
		util.FunctionFail(ctx, http.StatusInternalServerError, "Failed to send verification email")
	}
}

// VerifyEmailCode godoc
// @Summary 校验邮箱验证码
// @Description 成功后当前用户可访问个人笔记；任何失败都返回同一提示
// @Tags 邮箱验证
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param body body VerifyEmailCodeRequest true "验证码"
// @Success 200 {object} util.FunctionSuccess
// @Failure 500 {object} util.FunctionError
// @Router /functions/v1/verify-email-code [post]
func (c *VerificationController) VerifyEmailCode(ctx *gin.Context) {
	claims, ok := c.authenticate(ctx, http.StatusInternalServerError)
	if !ok {
		return
	}

	var req VerifyEmailCodeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.FunctionFail(ctx, http.StatusInternalServerError, invalidCodeMessage)
		return
	}

	if err := c.VerificationService.VerifyCode(ctx.Request.Context(), claims.UserID, req.Code); err != nil {
		if !errors.Is(err, util.ErrInvalidCode) {
			logger.Log.Error("Verify email code failed", zap.Uint("user_id", claims.UserID), zap.Error(err))
		}
		util.FunctionFail(ctx, http.StatusInternalServerError, invalidCodeMessage)
		return
	}

	util.FunctionOK(ctx, "Email verified successfully")
}

// VerificationStatus godoc
// @Summary 邮箱验证状态
// @Tags 邮箱验证
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=object}
// @Router /api/verification/status [get]
func (c *VerificationController) VerificationStatus(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	verified, err := c.VerificationService.IsVerified(ctx.Request.Context(), claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"verified": verified})
}

// authenticate 函数式接口自行解析 Bearer token，失败时按 {error} 格式返回
func (c *VerificationController) authenticate(ctx *gin.Context, failStatus int) (*util.Claims, bool) {
	token := middleware.BearerToken(ctx)
	if token == "" {
		util.FunctionFail(ctx, failStatus, "Missing or invalid authorization header")
		return nil, false
	}

	claims, err := util.ParseJWT(token, c.Cfg.JWT.Secret)
	if err != nil {
		util.FunctionFail(ctx, failStatus, "Invalid user token")
		return nil, false
	}
	return claims, true
}
