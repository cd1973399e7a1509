// Package testutil 测试用的 SQLite / Redis 环境
package testutil

import (
	"fmt"
	"testing"
	"time"

	"lesson_platform_backend/internal/config"
	"lesson_platform_backend/internal/model"
	"lesson_platform_backend/internal/util"
	"lesson_platform_backend/pkg/database"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewDB 每个测试独立的内存库，已完成迁移
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func NewRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return rdb, mr
}

// CreateUser 插入一个测试用户
func CreateUser(t *testing.T, db *gorm.DB, email string, role model.UserRole, adminLevel int) *model.User {
	t.Helper()

	u := &model.User{
		Name:       email,
		Email:      email,
		Password:   "hashed",
		Role:       role,
		AdminLevel: adminLevel,
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

// CreateQuiz 插入测验及题目，answers[i] 为第 i 题的正确选项
func CreateQuiz(t *testing.T, db *gorm.DB, title string, passingScore int, answers ...string) (*model.Quiz, []model.QuizQuestion) {
	t.Helper()

	q := &model.Quiz{
		Title:          title,
		Difficulty:     "easy",
		Chapters:       []string{"ch1"},
		TotalQuestions: len(answers),
		PassingScore:   passingScore,
	}
	if err := db.Create(q).Error; err != nil {
		t.Fatalf("create quiz: %v", err)
	}

	qs := make([]model.QuizQuestion, 0, len(answers))
	for i, a := range answers {
		question := model.QuizQuestion{
			QuizID:       q.ID,
			QuestionType: "single_choice",
			QuestionText: fmt.Sprintf("question %d", i+1),
			Options: []model.QuizOption{
				{ID: "a", Text: "A"}, {ID: "b", Text: "B"}, {ID: "c", Text: "C"},
			},
			CorrectAnswer: a,
			Explanation:   fmt.Sprintf("answer is %s", a),
			Points:        1,
			OrderIndex:    i,
		}
		if err := db.Create(&question).Error; err != nil {
			t.Fatalf("create question: %v", err)
		}
		qs = append(qs, question)
	}
	return q, qs
}

const JWTSecret = "test-secret-test-secret-test-secret"

// Config 测试用配置，取值与默认配置一致
func Config(t *testing.T) *config.Config {
	t.Helper()

	return &config.Config{
		Server: config.ServerConfig{Port: "0", Mode: "test"},
		JWT:    config.JWTConfig{Secret: JWTSecret, ExpireTime: time.Hour},
		Storage: config.StorageConfig{
			Type:      "local",
			LocalPath: t.TempDir(),
		},
		Verification: config.VerificationConfig{
			CodeLength:            6,
			CodeTTLMinutes:        10,
			ResendCooldownSeconds: 60,
			GateTTLMinutes:        30,
			PurgeIntervalMinutes:  60,
		},
		Notes:     config.NotesConfig{MaxUploadMB: 1},
		Admin:     config.AdminConfig{MinLevel: 1},
		RateLimit: config.RateLimitConfig{MaxRequests: 1000, WindowMinutes: 1, SendCodePerMinute: 100},
	}
}

// Token 为用户签发测试用 JWT
func Token(t *testing.T, u *model.User) string {
	t.Helper()

	token, err := util.GenerateJWT(u, JWTSecret, time.Hour)
	if err != nil {
		t.Fatalf("generate jwt: %v", err)
	}
	return token
}
