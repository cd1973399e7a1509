package controller

import (
	"errors"
	"io"
	"lesson_platform_backend/internal/service"
	"lesson_platform_backend/internal/util"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type PersonalFileController struct {
	FileService *service.PersonalFileService
}

func NewPersonalFileController(fileService *service.PersonalFileService) *PersonalFileController {
	return &PersonalFileController{FileService: fileService}
}

type CreateNoteRequest struct {
	Name    string `json:"name" binding:"required"`
	Content string `json:"content"`
}

// ListNotes godoc
// @Summary 我的笔记
// @Tags 个人笔记
// @Produce json
// @Security ApiKeyAuth
// @Param search query string false "按名称搜索"
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Failure 403 {object} util.Response "需要邮箱验证"
// @Router /api/notes [get]
func (c *PersonalFileController) ListNotes(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	page, limit := util.ParsePage(ctx.Query("page"), ctx.Query("limit"), 20)
	files, total, err := c.FileService.List(claims.UserID, ctx.Query("search"), page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Page(ctx, files, total, page, limit)
}

// CreateNote godoc
// @Summary 新建文本笔记
// @Tags 个人笔记
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body CreateNoteRequest true "笔记"
// @Success 201 {object} util.Response{data=model.PersonalFile}
// @Router /api/notes [post]
func (c *PersonalFileController) CreateNote(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req CreateNoteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	f, err := c.FileService.CreateNote(claims.UserID, req.Name, req.Content)
	if err != nil {
		respondFileError(ctx, err)
		return
	}
	util.Created(ctx, f)
}

// UploadNote godoc
// @Summary 上传文件
// @Tags 个人笔记
// @Accept multipart/form-data
// @Produce json
// @Security ApiKeyAuth
// @Param file formData file true "文件"
// @Success 201 {object} util.Response{data=model.PersonalFile}
// @Failure 400 {object} util.Response "文件类型不支持"
// @Failure 413 {object} util.Response "文件过大"
// @Router /api/notes/upload [post]
func (c *PersonalFileController) UploadNote(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer file.Close()

	f, err := c.FileService.Upload(ctx.Request.Context(), claims.UserID, fileHeader.Filename, fileHeader.Size, file)
	if err != nil {
		respondFileError(ctx, err)
		return
	}
	util.Created(ctx, f)
}

// GetNote godoc
// @Summary 获取笔记
// @Tags 个人笔记
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "笔记ID"
// @Success 200 {object} util.Response{data=model.PersonalFile}
// @Failure 404 {object} util.Response
// @Router /api/notes/{id} [get]
func (c *PersonalFileController) GetNote(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	f, err := c.FileService.Get(claims.UserID, ctx.Param("id"))
	if err != nil {
		respondFileError(ctx, err)
		return
	}
	util.Success(ctx, f)
}

// UpdateNote godoc
// @Summary 修改笔记
// @Description 重命名；文本笔记可以修改内容
// @Tags 个人笔记
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "笔记ID"
// @Param body body service.UpdateNoteReq true "修改内容"
// @Success 200 {object} util.Response{data=model.PersonalFile}
// @Router /api/notes/{id} [put]
func (c *PersonalFileController) UpdateNote(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.UpdateNoteReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	f, err := c.FileService.Update(claims.UserID, ctx.Param("id"), req)
	if err != nil {
		respondFileError(ctx, err)
		return
	}
	util.Success(ctx, f)
}

// DeleteNote godoc
// @Summary 删除笔记
// @Tags 个人笔记
// @Security ApiKeyAuth
// @Param id path string true "笔记ID"
// @Success 200 {object} util.Response
// @Router /api/notes/{id} [delete]
func (c *PersonalFileController) DeleteNote(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	if err := c.FileService.Delete(ctx.Request.Context(), claims.UserID, ctx.Param("id")); err != nil {
		respondFileError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// DownloadNote godoc
// @Summary 下载笔记
// @Tags 个人笔记
// @Produce octet-stream
// @Security ApiKeyAuth
// @Param id path string true "笔记ID"
// @Success 200 {file} file
// @Router /api/notes/{id}/download [get]
func (c *PersonalFileController) DownloadNote(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	f, rc, err := c.FileService.Open(ctx.Request.Context(), claims.UserID, ctx.Param("id"))
	if err != nil {
		respondFileError(ctx, err)
		return
	}
	defer rc.Close()

	ctx.Header("Content-Disposition", contentDisposition(f.Name))
	ctx.Header("Content-Length", strconv.FormatInt(f.Size, 10))
	ctx.Header("Content-Type", f.ContentType)
	ctx.Status(http.StatusOK)
	if _, err := io.Copy(ctx.Writer, rc); err != nil {
		ctx.Error(err)
	}
}

func respondFileError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrFileNotFound):
		util.Error(ctx, http.StatusNotFound, err.Error())
	case errors.Is(err, util.ErrFileTooLarge):
		util.Error(ctx, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, util.ErrInvalidFileType):
		util.BadRequest(ctx, err.Error())
	default:
		util.LogInternalError(ctx, err)
	}
}
