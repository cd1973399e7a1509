package util

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"sync/atomic"
)

// UploadLimit 上传大小上限（字节），配置热更新时由 Set 修改
type UploadLimit struct {
	n atomic.Int64
}

func NewUploadLimit(n int64) *UploadLimit {
	l := &UploadLimit{}
	l.n.Store(n)
	return l
}

func (l *UploadLimit) Bytes() int64 {
	return l.n.Load()
}

func (l *UploadLimit) Set(n int64) {
	l.n.Store(n)
}

// ValidateMimeType 深度校验文件 MIME 类型
// allowedTypes: 允许的 MIME 前缀或完整类型，如 "image/", "text/", "application/pdf"
func ValidateMimeType(reader io.Reader, allowedTypes []string) (string, error) {
	buffer := make([]byte, 512)
	n, err := reader.Read(buffer)
	if err != nil && err != io.EOF {
		return "", err
	}

	// 检测 MIME 类型
	mimeType := http.DetectContentType(buffer[:n])

	for _, allowed := range allowedTypes {
		if strings.HasPrefix(mimeType, allowed) || mimeType == allowed {
			return mimeType, nil
		}
	}

	return mimeType, errors.New("invalid file type: " + mimeType)
}

// SafeFileName 去掉路径部分，避免目录穿越
func SafeFileName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	return strings.TrimSpace(name)
}
