package util

import "errors"

var (
	ErrUserNotFound       = errors.New("用户不存在")
	ErrEmailRegistered    = errors.New("该邮箱已被注册")
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrQuizNotFound       = errors.New("quiz not found")
	ErrQuizTitleTaken     = errors.New("quiz title already exists")
	ErrQuizHasNoQuestions = errors.New("quiz has no questions")
	ErrInvalidQuestion    = errors.New("invalid question")
	ErrInvalidAnswer      = errors.New("answer is not one of the question options")
	ErrAttemptNotFound    = errors.New("attempt not found")
	ErrAttemptCompleted   = errors.New("attempt already completed")

	// 验证失败统一返回，不区分错误码、过期、已使用
	ErrInvalidCode   = errors.New("invalid or expired verification code")
	ErrResendTooSoon = errors.New("verification code requested too frequently")
	ErrNotVerified   = errors.New("email verification required")
	ErrInvalidEmail  = errors.New("invalid email address")

	ErrFileNotFound    = errors.New("file not found")
	ErrFileTooLarge    = errors.New("file too large")
	ErrInvalidFileType = errors.New("invalid file type")

	ErrArtifactNotFound = errors.New("artifact not found")
	ErrInvalidArtifact  = errors.New("invalid artifact")
)
