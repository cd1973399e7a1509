package controller

import (
	"fmt"
	"lesson_platform_backend/internal/service"
	"lesson_platform_backend/internal/util"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
)

type QuizAdminController struct {
	AdminService       *service.QuizAdminService
	SpreadsheetService *service.SpreadsheetService
	UploadLimit        *util.UploadLimit
}

func NewQuizAdminController(adminService *service.QuizAdminService, spreadsheetService *service.SpreadsheetService, limit *util.UploadLimit) *QuizAdminController {
	return &QuizAdminController{
		AdminService:       adminService,
		SpreadsheetService: spreadsheetService,
		UploadLimit:        limit,
	}
}

// CreateQuiz godoc
// @Summary 创建测验
// @Tags 测验管理
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.QuizReq true "测验及题目"
// @Success 201 {object} util.Response{data=service.QuizDetail}
// @Failure 400 {object} util.Response
// @Failure 409 {object} util.Response "标题已存在"
// @Router /api/admin/quizzes [post]
func (c *QuizAdminController) CreateQuiz(ctx *gin.Context) {
	var req service.QuizReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	detail, err := c.AdminService.CreateQuiz(req)
	if err != nil {
		respondQuizError(ctx, err)
		return
	}
	util.Created(ctx, detail)
}

// GetQuiz godoc
// @Summary 获取测验（含答案）
// @Tags 测验管理
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "测验ID"
// @Success 200 {object} util.Response{data=service.QuizDetail}
// @Router /api/admin/quizzes/{id} [get]
func (c *QuizAdminController) GetQuiz(ctx *gin.Context) {
	detail, err := c.AdminService.GetQuiz(ctx.Param("id"))
	if err != nil {
		respondQuizError(ctx, err)
		return
	}
	util.Success(ctx, detail)
}

// UpdateQuiz godoc
// @Summary 更新测验
// @Description questions 存在时按 id 同步：带 id 的更新，不带 id 的新增，缺失的删除
// @Tags 测验管理
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "测验ID"
// @Param body body service.QuizReq true "要修改的字段"
// @Success 200 {object} util.Response{data=service.QuizDetail}
// @Router /api/admin/quizzes/{id} [put]
func (c *QuizAdminController) UpdateQuiz(ctx *gin.Context) {
	var req service.QuizReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	detail, err := c.AdminService.UpdateQuiz(ctx.Param("id"), req)
	if err != nil {
		respondQuizError(ctx, err)
		return
	}
	util.Success(ctx, detail)
}

// DeleteQuiz godoc
// @Summary 删除测验
// @Tags 测验管理
// @Security ApiKeyAuth
// @Param id path string true "测验ID"
// @Success 200 {object} util.Response
// @Router /api/admin/quizzes/{id} [delete]
func (c *QuizAdminController) DeleteQuiz(ctx *gin.Context) {
	if err := c.AdminService.DeleteQuiz(ctx.Param("id")); err != nil {
		respondQuizError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// ListAttempts godoc
// @Summary 测验作答记录
// @Tags 测验管理
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "测验ID"
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Param completed query bool false "是否已完成"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/admin/quizzes/{id}/attempts [get]
func (c *QuizAdminController) ListAttempts(ctx *gin.Context) {
	page, limit := util.ParsePage(ctx.Query("page"), ctx.Query("limit"), 20)

	var completed *bool
	if v := ctx.Query("completed"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			util.BadRequest(ctx, "completed must be a boolean")
			return
		}
		completed = &b
	}

	rows, total, err := c.AdminService.ListAttempts(ctx.Param("id"), page, limit, completed)
	if err != nil {
		respondQuizError(ctx, err)
		return
	}
	util.Page(ctx, rows, total, page, limit)
}

// Stats godoc
// @Summary 测验统计
// @Tags 测验管理
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "测验ID"
// @Success 200 {object} util.Response{data=repository.QuizStats}
// @Router /api/admin/quizzes/{id}/stats [get]
func (c *QuizAdminController) Stats(ctx *gin.Context) {
	stats, err := c.AdminService.Stats(ctx.Param("id"))
	if err != nil {
		respondQuizError(ctx, err)
		return
	}
	util.Success(ctx, stats)
}

// ExportAttempts godoc
// @Summary 导出作答记录
// @Tags 测验管理
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security ApiKeyAuth
// @Param id path string true "测验ID"
// @Success 200 {file} file
// @Router /api/admin/quizzes/{id}/export [get]
func (c *QuizAdminController) ExportAttempts(ctx *gin.Context) {
	buf, filename, err := c.SpreadsheetService.ExportAttempts(ctx.Param("id"))
	if err != nil {
		respondQuizError(ctx, err)
		return
	}

	ctx.Header("Content-Disposition", contentDisposition(filename))
	ctx.Data(http.StatusOK, util.MimeXLSX, buf.Bytes())
}

// QuestionTemplate godoc
// @Summary 下载题目导入模板
// @Tags 测验管理
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security ApiKeyAuth
// @Success 200 {file} file
// @Router /api/admin/quizzes/import-template [get]
func (c *QuizAdminController) QuestionTemplate(ctx *gin.Context) {
	buf, err := c.SpreadsheetService.QuestionTemplate()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	ctx.Header("Content-Disposition", contentDisposition("questions-template.xlsx"))
	ctx.Data(http.StatusOK, util.MimeXLSX, buf.Bytes())
}

// ImportQuestions godoc
// @Summary 从 xlsx 导入题目
// @Description 题目追加到测验末尾
// @Tags 测验管理
// @Accept multipart/form-data
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "测验ID"
// @Param file formData file true "xlsx 文件"
// @Success 200 {object} util.Response{data=service.QuizDetail}
// @Router /api/admin/quizzes/{id}/import [post]
func (c *QuizAdminController) ImportQuestions(ctx *gin.Context) {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return
	}
	if fileHeader.Size > c.UploadLimit.Bytes() {
		util.Error(ctx, http.StatusRequestEntityTooLarge, util.ErrFileTooLarge.Error())
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer file.Close()

	detail, err := c.SpreadsheetService.ImportQuestions(ctx.Param("id"), file)
	if err != nil {
		respondQuizError(ctx, err)
		return
	}
	util.Success(ctx, detail)
}

func contentDisposition(filename string) string {
	return fmt.Sprintf("attachment; filename=%q; filename*=UTF-8''%s", filename, url.PathEscape(filename))
}
