package app

import (
	"context"
	"lesson_platform_backend/internal/config"
	"lesson_platform_backend/internal/controller"
	"lesson_platform_backend/internal/repository"
	"lesson_platform_backend/internal/service"
	"lesson_platform_backend/internal/util"
	"lesson_platform_backend/pkg/configwatcher"
	"lesson_platform_backend/pkg/database"
	"lesson_platform_backend/pkg/logger"
	"lesson_platform_backend/pkg/monitoring"
	"lesson_platform_backend/pkg/scheduler"
	"lesson_platform_backend/pkg/security"
	"lesson_platform_backend/pkg/tracing"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const serviceName = "lesson-platform"

type App struct {
	Config          *config.Config
	ConfigDir       string
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	scheduler       *scheduler.Scheduler
	tracer          *sdktrace.TracerProvider
	stopWatcher     context.CancelFunc
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user             *repository.UserRepository
	quiz             *repository.QuizRepository
	attempt          *repository.QuizAttemptRepository
	verificationCode *repository.VerificationCodeRepository
	personalFile     *repository.PersonalFileRepository
	artifact         *repository.ArtifactRepository
}

type services struct {
	auth         *service.AuthService
	storage      *service.StorageService
	quiz         *service.QuizService
	quizAdmin    *service.QuizAdminService
	spreadsheet  *service.SpreadsheetService
	verification *service.VerificationService
	personalFile *service.PersonalFileService
	artifact     *service.ArtifactService

	// 笔记上传与题目导入共用
	uploadLimit *util.UploadLimit
}

type controllers struct {
	auth         *controller.AuthController
	quiz         *controller.QuizController
	quizAdmin    *controller.QuizAdminController
	verification *controller.VerificationController
	personalFile *controller.PersonalFileController
	artifact     *controller.ArtifactController
	health       *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

// applyConfig 依次执行配置热更新回调
func (a *App) applyConfig(cfg *config.Config) {
	for _, cb := range a.configCallbacks {
		cb(cfg)
	}
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:             repository.NewUserRepository(db),
		quiz:             repository.NewQuizRepository(db),
		attempt:          repository.NewQuizAttemptRepository(db),
		verificationCode: repository.NewVerificationCodeRepository(db),
		personalFile:     repository.NewPersonalFileRepository(db),
		artifact:         repository.NewArtifactRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) *services {
	s := &services{}

	s.storage = service.NewStorageService(cfg)
	s.auth = service.NewAuthService(repos.user, cfg)
	s.quiz = service.NewQuizService(repos.quiz, repos.attempt)
	s.quizAdmin = service.NewQuizAdminService(repos.quiz, repos.attempt)
	s.spreadsheet = service.NewSpreadsheetService(repos.quiz, repos.attempt, s.quizAdmin)
	s.verification = service.NewVerificationService(
		repos.verificationCode,
		rdb,
		service.NewMailer(cfg.Mail),
		service.PolicyFromConfig(cfg.Verification),
	)
	s.uploadLimit = util.NewUploadLimit(cfg.Notes.MaxUploadBytes())
	s.personalFile = service.NewPersonalFileService(repos.personalFile, s.storage, s.uploadLimit)
	s.artifact = service.NewArtifactService(repos.artifact)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		auth:         controller.NewAuthController(s.auth),
		quiz:         controller.NewQuizController(s.quiz),
		quizAdmin:    controller.NewQuizAdminController(s.quizAdmin, s.spreadsheet, s.uploadLimit),
		verification: controller.NewVerificationController(s.verification, a.Config),
		personalFile: controller.NewPersonalFileController(s.personalFile),
		artifact:     controller.NewArtifactController(s.artifact),
		health:       controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.Secure())
	router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// registerConfigCallbacks 配置热更新时需要同步的运行时参数
func (a *App) registerConfigCallbacks(s *services) {
	a.RegisterConfigCallback(func(cfg *config.Config) {
		logger.SetMode(cfg.Server.Mode)
	})
	a.RegisterConfigCallback(func(cfg *config.Config) {
		s.verification.SetPolicy(service.PolicyFromConfig(cfg.Verification))
	})
	a.RegisterConfigCallback(func(cfg *config.Config) {
		s.uploadLimit.Set(cfg.Notes.MaxUploadBytes())
	})
}

func (a *App) startBackgroundTasks(s *services) {
	a.scheduler = scheduler.New()
	interval := time.Duration(a.Config.Verification.PurgeIntervalMinutes) * time.Minute
	if err := a.scheduler.SchedulePurge("verification-codes", interval, s.verification); err != nil {
		logger.Log.Error("Failed to schedule verification code purge", zap.Error(err))
	}
	a.scheduler.Start()

	ctx, cancel := context.WithCancel(context.Background())
	a.stopWatcher = cancel
	go func() {
		configFile := filepath.Join(a.ConfigDir, "config.yaml")
		err := configwatcher.WatchConfig(ctx, configFile, a.applyConfig)
		if err != nil {
			logger.Log.Warn("Config watcher stopped", zap.Error(err))
		}
	}()
}

// setupRouter 组装仓储、服务与控制器并注册路由
func (a *App) setupRouter(db *gorm.DB, rdb *redis.Client) *services {
	repos := a.initRepositories(db)
	s := a.initServices(repos, a.Config, rdb)
	a.services = s
	c := a.initControllers(s, db, rdb)

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	a.Router = router

	a.setupMiddlewares(router, a.Config)
	a.registerRoutes(router, c, s, a.Config)

	if a.Config.Storage.Type == util.StorageLocal {
		router.Static("/uploads", a.Config.Storage.LocalPath)
	}
	return s
}

func NewApp(cfg *config.Config, configDir string) *App {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	gin.SetMode(cfg.Server.Mode)

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	if cfg.ForceMigrate || cfg.Server.Mode != gin.ReleaseMode {
		if err := database.Migrate(db); err != nil {
			logger.Log.Fatal("Failed to migrate database", zap.Error(err))
		}
	}

	app := &App{
		Config:    cfg,
		ConfigDir: configDir,
		DB:        db,
	}
	if cfg.MigrateOnly {
		return app
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
	}
	app.Redis = rdb

	// 监控初始化
	monitoring.Init()

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(serviceName, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	s := app.setupRouter(db, rdb)

	app.registerConfigCallbacks(s)
	app.startBackgroundTasks(s)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("listen", zap.Error(err))
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	a.Close(ctx)
	logger.Log.Info("Server exiting")
}

// Close 停止后台任务并释放连接
func (a *App) Close(ctx context.Context) {
	if a.stopWatcher != nil {
		a.stopWatcher()
	}
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			sqlDB.Close()
		}
	}
}
