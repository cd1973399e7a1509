package database

import (
	"fmt"
	"lesson_platform_backend/internal/config"
	"lesson_platform_backend/internal/model"
	"lesson_platform_backend/pkg/logger"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func InitDB(cfg *config.DatabaseConfig, mode string) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.Charset,
		cfg.ParseTime,
	)

	logLevel := gormlogger.Warn
	if mode == "debug" {
		logLevel = gormlogger.Info
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)

	logger.Log.Info("Database connection established", zap.String("host", cfg.Host), zap.String("db", cfg.DBName))
	return db, nil
}

// Migrate 建表并写入默认数据
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&model.User{},
		&model.Quiz{},
		&model.QuizQuestion{},
		&model.QuizAttempt{},
		&model.QuizResponse{},
		&model.EmailVerificationCode{},
		&model.PersonalFile{},
		&model.LessonArtifact{},
	)
	if err != nil {
		return err
	}

	logger.Log.Info("Database migration completed")

	return SeedDefaults(db)
}

// SeedDefaults 课程组件目录为空时插入默认条目
func SeedDefaults(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.LessonArtifact{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	defaults := []model.LessonArtifact{
		{Slug: "for-loops", Title: "For 循环", Category: "basics", Summary: "通过可调节的计数器演示 for 循环的执行过程", Tags: []string{"loop", "python"}, Order: 1},
		{Slug: "while-loops", Title: "While 循环", Category: "basics", Summary: "条件循环与终止条件", Tags: []string{"loop", "python"}, Order: 2},
		{Slug: "oop-classes", Title: "类与对象", Category: "oop", Summary: "封装、继承与多态的交互演示", Tags: []string{"oop", "class"}, Order: 10},
		{Slug: "singleton-pattern", Title: "单例模式", Category: "design-patterns", Summary: "全局唯一实例的创建方式与注意事项", Tags: []string{"pattern", "creational"}, Order: 20},
		{Slug: "observer-pattern", Title: "观察者模式", Category: "design-patterns", Summary: "事件订阅与通知", Tags: []string{"pattern", "behavioral"}, Order: 21},
		{Slug: "matplotlib-basics", Title: "Matplotlib 入门", Category: "visualization", Summary: "折线图、柱状图与样式设置", Tags: []string{"matplotlib", "python"}, Order: 30},
		{Slug: "seaborn-distributions", Title: "Seaborn 分布图", Category: "visualization", Summary: "直方图、KDE 与箱线图", Tags: []string{"seaborn", "python"}, Order: 31},
		{Slug: "plotly-interactive", Title: "Plotly 交互图表", Category: "visualization", Summary: "悬停、缩放与动态更新", Tags: []string{"plotly", "python"}, Order: 32},
	}
	for i := range defaults {
		defaults[i].Published = true
		if err := db.Create(&defaults[i]).Error; err != nil {
			return err
		}
	}
	return nil
}
