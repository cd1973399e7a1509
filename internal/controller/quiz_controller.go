package controller

import (
	"errors"
	"lesson_platform_backend/internal/service"
	"lesson_platform_backend/internal/util"
	"net/http"

	"github.com/gin-gonic/gin"
)

type QuizController struct {
	QuizService *service.QuizService
}

func NewQuizController(quizService *service.QuizService) *QuizController {
	return &QuizController{QuizService: quizService}
}

// ListQuizzes godoc
// @Summary 测验列表
// @Tags 测验
// @Produce json
// @Security ApiKeyAuth
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Param search query string false "按标题或描述搜索"
// @Param difficulty query string false "难度"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/quizzes [get]
func (c *QuizController) ListQuizzes(ctx *gin.Context) {
	page, limit := util.ParsePage(ctx.Query("page"), ctx.Query("limit"), 20)
	quizzes, total, err := c.QuizService.ListQuizzes(page, limit, ctx.Query("search"), ctx.Query("difficulty"))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Page(ctx, quizzes, total, page, limit)
}

// GetQuizByTitle godoc
// @Summary 按标题获取测验
// @Description 返回测验及按顺序排列的题目，不包含答案
// @Tags 测验
// @Produce json
// @Security ApiKeyAuth
// @Param title path string true "测验标题"
// @Success 200 {object} util.Response{data=service.QuizView}
// @Failure 404 {object} util.Response
// @Router /api/quizzes/by-title/{title} [get]
func (c *QuizController) GetQuizByTitle(ctx *gin.Context) {
	view, err := c.QuizService.GetQuizByTitle(ctx.Request.Context(), ctx.Param("title"))
	if err != nil {
		respondQuizError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// GetQuiz godoc
// @Summary 获取测验
// @Tags 测验
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "测验ID"
// @Success 200 {object} util.Response{data=service.QuizView}
// @Failure 404 {object} util.Response
// @Router /api/quizzes/{id} [get]
func (c *QuizController) GetQuiz(ctx *gin.Context) {
	view, err := c.QuizService.GetQuiz(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		respondQuizError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// StartAttempt godoc
// @Summary 开始答题
// @Description 创建新的 attempt，重做时同样调用此接口
// @Tags 测验
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "测验ID"
// @Success 201 {object} util.Response{data=model.QuizAttempt}
// @Failure 404 {object} util.Response
// @Failure 422 {object} util.Response "测验没有题目"
// @Router /api/quizzes/{id}/attempts [post]
func (c *QuizController) StartAttempt(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	attempt, err := c.QuizService.StartAttempt(ctx.Request.Context(), claims.UserID, ctx.Param("id"))
	if err != nil {
		respondQuizError(ctx, err)
		return
	}
	util.Created(ctx, attempt)
}

// SubmitResponse godoc
// @Summary 提交单题答案
// @Description 服务端判分；同一题重复提交返回已保存的结果
// @Tags 测验
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "AttemptID"
// @Param body body service.SubmitResponseInput true "作答"
// @Success 200 {object} util.Response{data=service.ResponseResult}
// @Failure 400 {object} util.Response
// @Failure 404 {object} util.Response
// @Failure 409 {object} util.Response "已完成"
// @Router /api/attempts/{id}/responses [post]
func (c *QuizController) SubmitResponse(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.SubmitResponseInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.QuizService.SubmitResponse(ctx.Request.Context(), claims.UserID, ctx.Param("id"), req)
	if err != nil {
		respondQuizError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// CompleteAttempt godoc
// @Summary 完成测验
// @Description 计算得分并写入结果，重复调用返回已保存的结果
// @Tags 测验
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "AttemptID"
// @Success 200 {object} util.Response{data=model.QuizAttempt}
// @Failure 404 {object} util.Response
// @Router /api/attempts/{id}/complete [post]
func (c *QuizController) CompleteAttempt(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	attempt, err := c.QuizService.CompleteAttempt(ctx.Request.Context(), claims.UserID, ctx.Param("id"))
	if err != nil {
		respondQuizError(ctx, err)
		return
	}
	util.Success(ctx, attempt)
}

// GetAttempt godoc
// @Summary 获取作答详情
// @Tags 测验
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "AttemptID"
// @Success 200 {object} util.Response{data=service.AttemptDetail}
// @Failure 404 {object} util.Response
// @Router /api/attempts/{id} [get]
func (c *QuizController) GetAttempt(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	detail, err := c.QuizService.GetAttempt(ctx.Request.Context(), claims.UserID, ctx.Param("id"))
	if err != nil {
		respondQuizError(ctx, err)
		return
	}
	util.Success(ctx, detail)
}

// ListMyAttempts godoc
// @Summary 我的作答历史
// @Tags 测验
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "测验ID"
// @Success 200 {object} util.Response{data=[]model.QuizAttempt}
// @Router /api/quizzes/{id}/attempts/mine [get]
func (c *QuizController) ListMyAttempts(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	attempts, err := c.QuizService.ListMyAttempts(ctx.Request.Context(), claims.UserID, ctx.Param("id"))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, attempts)
}

// respondQuizError 将业务错误映射为 HTTP 响应，其余错误记录日志后返回 500
func respondQuizError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrQuizNotFound), errors.Is(err, util.ErrAttemptNotFound):
		util.Error(ctx, http.StatusNotFound, err.Error())
	case errors.Is(err, util.ErrQuizHasNoQuestions):
		util.Error(ctx, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, util.ErrAttemptCompleted), errors.Is(err, util.ErrQuizTitleTaken):
		util.Conflict(ctx, err.Error())
	case errors.Is(err, util.ErrInvalidQuestion), errors.Is(err, util.ErrInvalidAnswer), errors.Is(err, util.ErrInvalidFileType):
		util.BadRequest(ctx, err.Error())
	default:
		util.LogInternalError(ctx, err)
	}
}
