package app

import (
	"lesson_platform_backend/docs"
	"lesson_platform_backend/internal/config"
	"lesson_platform_backend/internal/middleware"
	"lesson_platform_backend/internal/model"
	"lesson_platform_backend/pkg/monitoring"
	"lesson_platform_backend/pkg/security"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, s *services, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())
	router.GET("/health", c.health.HealthCheck)

	// 1. 函数式接口(邮箱验证)，允许任意来源
	a.registerFunctionRoutes(router, c, cfg)

	api := router.Group("/api")
	api.Use(security.CORS(cfg.CORS.AllowedOrigins))
	{
		api.OPTIONS("/*any", func(ctx *gin.Context) {})

		// 2. 公共路由(无需登录)
		a.registerPublicRoutes(api, c)

		// 3. 需要授权的路由
		authGroup := api.Group("")
		authGroup.Use(middleware.AuthMiddleware(cfg))
		{
			a.registerQuizRoutes(authGroup, c)
			a.registerNoteRoutes(authGroup, c, s)
		}

		// 4. 管理员相关接口
		a.registerAdminRoutes(api, c, cfg)
	}
}

func (a *App) registerFunctionRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	functions := router.Group("/functions/v1")
	functions.Use(security.OpenCORS())
	{
		functions.OPTIONS("/*any", func(ctx *gin.Context) {})
		functions.POST("/send-verification-email",
			security.RateLimiter(cfg.RateLimit.SendCodePerMinute, time.Minute),
			c.verification.SendVerificationEmail,
		)
		functions.POST("/verify-email-code", c.verification.VerifyEmailCode)
	}
}

func (a *App) registerPublicRoutes(api *gin.RouterGroup, c *controllers) {
	api.POST("/register", c.auth.Register)
	api.POST("/login", c.auth.Login)

	artifacts := api.Group("/artifacts")
	{
		artifacts.GET("", c.artifact.ListArtifacts)
		artifacts.GET("/categories", c.artifact.ListCategories)
		artifacts.GET("/:slug", c.artifact.GetArtifact)
	}
}

func (a *App) registerQuizRoutes(r *gin.RouterGroup, c *controllers) {
	r.GET("/profile", c.auth.Profile)
	r.GET("/verification/status", c.verification.VerificationStatus)

	quizzes := r.Group("/quizzes")
	{
		quizzes.GET("", c.quiz.ListQuizzes)
		quizzes.GET("/by-title/:title", c.quiz.GetQuizByTitle)
		quizzes.GET("/:id", c.quiz.GetQuiz)
		quizzes.POST("/:id/attempts", c.quiz.StartAttempt)
		quizzes.GET("/:id/attempts/mine", c.quiz.ListMyAttempts)
	}

	attempts := r.Group("/attempts")
	{
		attempts.GET("/:id", c.quiz.GetAttempt)
		attempts.POST("/:id/responses", c.quiz.SubmitResponse)
		attempts.POST("/:id/complete", c.quiz.CompleteAttempt)
	}
}

func (a *App) registerNoteRoutes(r *gin.RouterGroup, c *controllers, s *services) {
	notes := r.Group("/notes")
	notes.Use(middleware.VerificationGate(s.verification))
	{
		notes.GET("", c.personalFile.ListNotes)
		notes.POST("", c.personalFile.CreateNote)
		notes.POST("/upload", c.personalFile.UploadNote)
		notes.GET("/:id", c.personalFile.GetNote)
		notes.PUT("/:id", c.personalFile.UpdateNote)
		notes.DELETE("/:id", c.personalFile.DeleteNote)
		notes.GET("/:id/download", c.personalFile.DownloadNote)
	}
}

func (a *App) registerAdminRoutes(api *gin.RouterGroup, c *controllers, cfg *config.Config) {
	admin := api.Group("/admin")
	admin.Use(middleware.AuthMiddleware(cfg))
	{
		quizzes := admin.Group("/quizzes")
		quizzes.Use(middleware.AdminMiddleware(cfg.Admin.MinLevel))
		{
			quizzes.POST("", c.quizAdmin.CreateQuiz)
			quizzes.GET("/import-template", c.quizAdmin.QuestionTemplate)
			quizzes.GET("/:id", c.quizAdmin.GetQuiz)
			quizzes.PUT("/:id", c.quizAdmin.UpdateQuiz)
			quizzes.DELETE("/:id", c.quizAdmin.DeleteQuiz)
			quizzes.GET("/:id/attempts", c.quizAdmin.ListAttempts)
			quizzes.GET("/:id/stats", c.quizAdmin.Stats)
			quizzes.GET("/:id/export", c.quizAdmin.ExportAttempts)
			quizzes.POST("/:id/import", c.quizAdmin.ImportQuestions)
		}

		// 课程组件目录由教师维护
		artifacts := admin.Group("/artifacts")
		artifacts.Use(middleware.RoleMiddleware(model.Teacher))
		{
			artifacts.GET("", c.artifact.ListAllArtifacts)
			artifacts.PUT("/:slug", c.artifact.UpsertArtifact)
			artifacts.DELETE("/:slug", c.artifact.DeleteArtifact)
		}
	}
}
