package service

import (
	"context"
	"fmt"
	"io"
	"lesson_platform_backend/internal/model"
	"lesson_platform_backend/internal/repository"
	"lesson_platform_backend/internal/util"
	"lesson_platform_backend/pkg/logger"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const noteContentType = "text/plain; charset=utf-8"

type UpdateNoteReq struct {
	Name    *string `json:"name"`
	Content *string `json:"content"`
}

type PersonalFileService struct {
	Repo    *repository.PersonalFileRepository
	Storage *StorageService
	Limit   *util.UploadLimit
}

func NewPersonalFileService(repo *repository.PersonalFileRepository, storage *StorageService, limit *util.UploadLimit) *PersonalFileService {
	return &PersonalFileService{Repo: repo, Storage: storage, Limit: limit}
}

// MaxUpload 当前生效的上传上限
func (s *PersonalFileService) MaxUpload() int64 {
	return s.Limit.Bytes()
}

func (s *PersonalFileService) List(userID uint, search string, page, limit int) ([]model.PersonalFile, int64, error) {
	return s.Repo.ListByUser(userID, strings.TrimSpace(search), page, limit)
}

// CreateNote 新建文本笔记
func (s *PersonalFileService) CreateNote(userID uint, name, content string) (*model.PersonalFile, error) {
	name = util.SafeFileName(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", util.ErrInvalidFileType)
	}
	if int64(len(content)) > s.MaxUpload() {
		return nil, util.ErrFileTooLarge
	}

	f := &model.PersonalFile{
		UserID:      userID,
		Name:        name,
		Content:     content,
		ContentType: noteContentType,
		Size:        int64(len(content)),
	}
	if err := s.Repo.Create(f); err != nil {
		return nil, err
	}
	return f, nil
}

// Upload 上传文件到存储，类型通过文件头嗅探
func (s *PersonalFileService) Upload(ctx context.Context, userID uint, name string, size int64, r io.ReadSeeker) (*model.PersonalFile, error) {
	name = util.SafeFileName(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", util.ErrInvalidFileType)
	}
	limit := s.MaxUpload()
	if size > limit {
		return nil, util.ErrFileTooLarge
	}

	mimeType, err := util.ValidateMimeType(r, util.AllowedNoteMimeTypes)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", util.ErrInvalidFileType, mimeType)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("notes/%d/%s%s", userID, uuid.NewString(), strings.ToLower(filepath.Ext(name)))
	url, err := s.Storage.Upload(ctx, key, io.LimitReader(r, limit), size, mimeType)
	if err != nil {
		logger.Log.Error("Failed to upload note", zap.Uint("user_id", userID), zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("upload: %w", err)
	}

	f := &model.PersonalFile{
		UserID:      userID,
		Name:        name,
		ObjectKey:   key,
		URL:         url,
		ContentType: mimeType,
		Size:        size,
	}
	if err := s.Repo.Create(f); err != nil {
		if delErr := s.Storage.Delete(ctx, key); delErr != nil {
			logger.Log.Warn("Failed to remove orphan object", zap.String("key", key), zap.Error(delErr))
		}
		return nil, err
	}
	return f, nil
}

func (s *PersonalFileService) Get(userID uint, id string) (*model.PersonalFile, error) {
	f, err := s.Repo.FindForUser(id, userID)
	if err != nil {
		return nil, notFound(err, util.ErrFileNotFound)
	}
	return f, nil
}

// Update 重命名；文本笔记可以修改内容
func (s *PersonalFileService) Update(userID uint, id string, req UpdateNoteReq) (*model.PersonalFile, error) {
	f, err := s.Get(userID, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := util.SafeFileName(*req.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name is required", util.ErrInvalidFileType)
		}
		f.Name = name
	}
	if req.Content != nil {
		if f.IsUpload() {
			return nil, fmt.Errorf("%w: uploaded files cannot be edited", util.ErrInvalidFileType)
		}
		if int64(len(*req.Content)) > s.MaxUpload() {
			return nil, util.ErrFileTooLarge
		}
		f.Content = *req.Content
		f.Size = int64(len(f.Content))
	}

	if err := s.Repo.Update(f); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *PersonalFileService) Delete(ctx context.Context, userID uint, id string) error {
	f, err := s.Get(userID, id)
	if err != nil {
		return err
	}
	if err := s.Repo.Delete(f.ID, userID); err != nil {
		return err
	}
	if f.IsUpload() {
		if err := s.Storage.Delete(ctx, f.ObjectKey); err != nil {
			logger.Log.Warn("Failed to delete note object", zap.String("key", f.ObjectKey), zap.Error(err))
		}
	}
	return nil
}

// Open 返回文件内容，调用方负责关闭
func (s *PersonalFileService) Open(ctx context.Context, userID uint, id string) (*model.PersonalFile, io.ReadCloser, error) {
	f, err := s.Get(userID, id)
	if err != nil {
		return nil, nil, err
	}
	if !f.IsUpload() {
		return f, io.NopCloser(strings.NewReader(f.Content)), nil
	}
	rc, err := s.Storage.Open(ctx, f.ObjectKey)
	if err != nil {
		return nil, nil, err
	}
	return f, rc, nil
}
