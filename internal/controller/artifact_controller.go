package controller

import (
	"errors"
	"lesson_platform_backend/internal/service"
	"lesson_platform_backend/internal/util"
	"net/http"

	"github.com/gin-gonic/gin"
)

type ArtifactController struct {
	ArtifactService *service.ArtifactService
}

func NewArtifactController(artifactService *service.ArtifactService) *ArtifactController {
	return &ArtifactController{ArtifactService: artifactService}
}

// ListArtifacts godoc
// @Summary 课程组件目录
// @Tags 课程组件
// @Produce json
// @Param category query string false "分类"
// @Param search query string false "搜索标题或简介"
// @Success 200 {object} util.Response{data=[]model.LessonArtifact}
// @Router /api/artifacts [get]
func (c *ArtifactController) ListArtifacts(ctx *gin.Context) {
	items, err := c.ArtifactService.List(ctx.Query("category"), ctx.Query("search"))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, items)
}

// ListCategories godoc
// @Summary 组件分类
// @Tags 课程组件
// @Produce json
// @Success 200 {object} util.Response{data=[]string}
// @Router /api/artifacts/categories [get]
func (c *ArtifactController) ListCategories(ctx *gin.Context) {
	cats, err := c.ArtifactService.Categories()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, cats)
}

// GetArtifact godoc
// @Summary 获取课程组件
// @Tags 课程组件
// @Produce json
// @Param slug path string true "slug"
// @Success 200 {object} util.Response{data=model.LessonArtifact}
// @Failure 404 {object} util.Response
// @Router /api/artifacts/{slug} [get]
func (c *ArtifactController) GetArtifact(ctx *gin.Context) {
	a, err := c.ArtifactService.Get(ctx.Param("slug"), false)
	if err != nil {
		respondArtifactError(ctx, err)
		return
	}
	util.Success(ctx, a)
}

// ListAllArtifacts godoc
// @Summary 全部课程组件（含未发布）
// @Tags 课程组件管理
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.LessonArtifact}
// @Router /api/admin/artifacts [get]
func (c *ArtifactController) ListAllArtifacts(ctx *gin.Context) {
	items, err := c.ArtifactService.ListAll()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, items)
}

// UpsertArtifact godoc
// @Summary 新建或更新课程组件
// @Tags 课程组件管理
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param slug path string true "slug"
// @Param body body service.ArtifactReq true "组件信息"
// @Success 200 {object} util.Response{data=model.LessonArtifact}
// @Router /api/admin/artifacts/{slug} [put]
func (c *ArtifactController) UpsertArtifact(ctx *gin.Context) {
	var req service.ArtifactReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	a, err := c.ArtifactService.Upsert(ctx.Param("slug"), req)
	if err != nil {
		respondArtifactError(ctx, err)
		return
	}
	util.Success(ctx, a)
}

// DeleteArtifact godoc
// @Summary 删除课程组件
// @Tags 课程组件管理
// @Security ApiKeyAuth
// @Param slug path string true "slug"
// @Success 200 {object} util.Response
// @Router /api/admin/artifacts/{slug} [delete]
func (c *ArtifactController) DeleteArtifact(ctx *gin.Context) {
	if err := c.ArtifactService.Delete(ctx.Param("slug")); err != nil {
		respondArtifactError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

func respondArtifactError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrArtifactNotFound):
		util.Error(ctx, http.StatusNotFound, err.Error())
	case errors.Is(err, util.ErrInvalidArtifact):
		util.BadRequest(ctx, err.Error())
	default:
		util.LogInternalError(ctx, err)
	}
}
