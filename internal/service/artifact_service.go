package service

import (
	"errors"
	"fmt"
	"lesson_platform_backend/internal/model"
	"lesson_platform_backend/internal/repository"
	"lesson_platform_backend/internal/util"
	"regexp"
	"strings"

	"gorm.io/gorm"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

type ArtifactReq struct {
	Title     *string   `json:"title"`
	Category  *string   `json:"category"`
	Summary   *string   `json:"summary"`
	Tags      *[]string `json:"tags"`
	Order     *int      `json:"order"`
	Published *bool     `json:"published"`
}

type ArtifactService struct {
	Repo *repository.ArtifactRepository
}

func NewArtifactService(repo *repository.ArtifactRepository) *ArtifactService {
	return &ArtifactService{Repo: repo}
}

func (s *ArtifactService) List(category, search string) ([]model.LessonArtifact, error) {
	return s.Repo.List(strings.TrimSpace(category), strings.TrimSpace(search), false)
}

func (s *ArtifactService) ListAll() ([]model.LessonArtifact, error) {
	return s.Repo.List("", "", true)
}

func (s *ArtifactService) Categories() ([]string, error) {
	return s.Repo.Categories()
}

// Get 未发布的条目对普通用户不可见
func (s *ArtifactService) Get(slug string, includeUnpublished bool) (*model.LessonArtifact, error) {
	a, err := s.Repo.FindBySlug(slug)
	if err != nil {
		return nil, notFound(err, util.ErrArtifactNotFound)
	}
	if !a.Published && !includeUnpublished {
		return nil, util.ErrArtifactNotFound
	}
	return a, nil
}

// Upsert 按 slug 新建或更新
func (s *ArtifactService) Upsert(slug string, req ArtifactReq) (*model.LessonArtifact, error) {
	if !slugPattern.MatchString(slug) {
		return nil, fmt.Errorf("%w: slug %q", util.ErrInvalidArtifact, slug)
	}

	a, err := s.Repo.FindBySlug(slug)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		a = &model.LessonArtifact{Slug: slug}
	}

	if req.Title != nil {
		a.Title = strings.TrimSpace(*req.Title)
	}
	if req.Category != nil {
		a.Category = strings.TrimSpace(*req.Category)
	}
	if req.Summary != nil {
		a.Summary = *req.Summary
	}
	if req.Tags != nil {
		a.Tags = *req.Tags
	}
	if req.Order != nil {
		a.Order = *req.Order
	}
	if req.Published != nil {
		a.Published = *req.Published
	}
	if a.Title == "" {
		return nil, fmt.Errorf("%w: title is required", util.ErrInvalidArtifact)
	}

	if err := s.Repo.Save(a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *ArtifactService) Delete(slug string) error {
	n, err := s.Repo.DeleteBySlug(slug)
	if err != nil {
		return err
	}
	if n == 0 {
		return util.ErrArtifactNotFound
	}
	return nil
}
