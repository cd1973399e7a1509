package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"lesson_platform_backend/internal/config"
	"lesson_platform_backend/internal/model"
	"lesson_platform_backend/internal/repository"
	"lesson_platform_backend/internal/util"
	"lesson_platform_backend/pkg/logger"
	"lesson_platform_backend/pkg/monitoring"
	"math/big"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	cooldownKeyPrefix = "verify:cooldown:"
	gateKeyPrefix     = "verify:gate:"
)

// VerificationPolicy 可热更新的验证码策略
type VerificationPolicy struct {
	CodeLength     int
	CodeTTL        time.Duration
	ResendCooldown time.Duration
	GateTTL        time.Duration
}

func PolicyFromConfig(cfg config.VerificationConfig) VerificationPolicy {
	return VerificationPolicy{
		CodeLength:     cfg.CodeLength,
		CodeTTL:        cfg.CodeTTL(),
		ResendCooldown: cfg.ResendCooldown(),
		GateTTL:        cfg.GateTTL(),
	}
}

type VerificationService struct {
	Repo   *repository.VerificationCodeRepository
	Redis  *redis.Client
	Mailer Mailer
	Now    func() time.Time

	mu     sync.RWMutex
	policy VerificationPolicy
}

func NewVerificationService(repo *repository.VerificationCodeRepository, rdb *redis.Client, mailer Mailer, policy VerificationPolicy) *VerificationService {
	return &VerificationService{
		Repo:   repo,
		Redis:  rdb,
		Mailer: mailer,
		Now:    time.Now,
		policy: policy,
	}
}

func (s *VerificationService) Policy() VerificationPolicy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.policy
}

// SetPolicy 配置文件变更时调用
func (s *VerificationService) SetPolicy(p VerificationPolicy) {
	s.mu.Lock()
	s.policy = p
	s.mu.Unlock()
}

// SendCode 生成验证码并发送邮件，同一用户在冷却期内只能发送一次
func (s *VerificationService) SendCode(ctx context.Context, userID uint, email string) error {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return util.ErrInvalidEmail
	}

	policy := s.Policy()
	cooldownKey := fmt.Sprintf("%s%d", cooldownKeyPrefix, userID)
	if policy.ResendCooldown > 0 {
		ok, err := s.Redis.SetNX(ctx, cooldownKey, 1, policy.ResendCooldown).Result()
		if err != nil {
			return fmt.Errorf("resend cooldown: %w", err)
		}
		if !ok {
			return util.ErrResendTooSoon
		}
	}

	code, err := GenerateCode(policy.CodeLength)
	if err != nil {
		s.releaseCooldown(ctx, cooldownKey)
		return err
	}

	now := s.Now().UTC()
	record := &model.EmailVerificationCode{
		UserID:    userID,
		Email:     addr.Address,
		Code:      code,
		ExpiresAt: now.Add(policy.CodeTTL),
	}
	if err := s.Repo.Create(record); err != nil {
		s.releaseCooldown(ctx, cooldownKey)
		logger.Log.Error("Failed to store verification code", zap.Uint("user_id", userID), zap.Error(err))
		return fmt.Errorf("store code: %w", err)
	}

	body := fmt.Sprintf(
		"<p>您的验证码是 <strong>%s</strong>，%d 分钟内有效。</p><p>如果这不是您本人的操作，请忽略此邮件。</p>",
		code, int(policy.CodeTTL/time.Minute),
	)
	if err := s.Mailer.Send(ctx, addr.Address, "邮箱验证码", body); err != nil {
		s.releaseCooldown(ctx, cooldownKey)
		logger.Log.Error("Failed to send verification email",
			zap.Uint("user_id", userID),
			zap.String("email", addr.Address),
			zap.Error(err),
		)
		return fmt.Errorf("send mail: %w", err)
	}

	monitoring.VerificationCodesSent.Inc()
	return nil
}

// VerifyCode 校验并消费验证码，成功后打开笔记访问
func (s *VerificationService) VerifyCode(ctx context.Context, userID uint, code string) (err error) {
	defer func() {
		monitoring.ObserveVerificationCheck(err == nil)
	}()

	code = strings.TrimSpace(code)
	if code == "" {
		return util.ErrInvalidCode
	}

	record, err := s.Repo.FindUsable(userID, code, s.Now().UTC())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrInvalidCode
		}
		return fmt.Errorf("find code: %w", err)
	}

	consumed, err := s.Repo.MarkUsed(record.ID)
	if err != nil {
		return fmt.Errorf("mark code used: %w", err)
	}
	if !consumed {
		return util.ErrInvalidCode
	}

	gateKey := fmt.Sprintf("%s%d", gateKeyPrefix, userID)
	if err := s.Redis.Set(ctx, gateKey, 1, s.Policy().GateTTL).Err(); err != nil {
		return fmt.Errorf("open gate: %w", err)
	}
	return nil
}

func (s *VerificationService) IsVerified(ctx context.Context, userID uint) (bool, error) {
	n, err := s.Redis.Exists(ctx, fmt.Sprintf("%s%d", gateKeyPrefix, userID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Revoke 关闭笔记访问，需要重新验证
func (s *VerificationService) Revoke(ctx context.Context, userID uint) error {
	return s.Redis.Del(ctx, fmt.Sprintf("%s%d", gateKeyPrefix, userID)).Err()
}

// PurgeExpired 删除已使用或已过期的验证码
func (s *VerificationService) PurgeExpired(ctx context.Context) (int64, error) {
	return s.Repo.DeleteStale(s.Now().UTC())
}

func (s *VerificationService) releaseCooldown(ctx context.Context, key string) {
	if err := s.Redis.Del(ctx, key).Err(); err != nil {
		logger.Log.Warn("Failed to release resend cooldown", zap.String("key", key), zap.Error(err))
	}
}

// GenerateCode 生成指定长度的数字验证码
func GenerateCode(length int) (string, error) {
	if length <= 0 {
		length = 6
	}
	var b strings.Builder
	b.Grow(length)
	ten := big.NewInt(10)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}
