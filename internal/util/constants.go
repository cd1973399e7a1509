package util

const TimeFormat = "2006-01-02 15:04:05"

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

// 文件上传相关常量
const (
	MimeText  = "text/"
	MimeImage = "image/"
	MimePDF   = "application/pdf"
	MimeJSON  = "application/json"
	MimeXLSX  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var (
	// 个人笔记允许上传的类型
	AllowedNoteMimeTypes = []string{MimeText, MimeImage, MimePDF, MimeJSON}
)

// gin 上下文键
const ContextUserKey = "user"
