package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/campushq/timetable-api/api/swagger"
	"github.com/campushq/timetable-api/internal/handler"
	internalmiddleware "github.com/campushq/timetable-api/internal/middleware"
	"github.com/campushq/timetable-api/internal/repository"
	"github.com/campushq/timetable-api/internal/service"
	"github.com/campushq/timetable-api/pkg/cache"
	"github.com/campushq/timetable-api/pkg/config"
	"github.com/campushq/timetable-api/pkg/database"
	"github.com/campushq/timetable-api/pkg/logger"
	corsmiddleware "github.com/campushq/timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campushq/timetable-api/pkg/middleware/requestid"
)

// @title Timetable API
// @version 1.0.0
// @description Academic scheduling service with conflict detection
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	var cacheRepo service.CacheRepository
	if cfg.Cache.Enabled {
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		} else {
			repo := repository.NewCacheRepository(client, logr)
			defer repo.Close()
			cacheRepo = repo
		}
	}

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TTL, logr, cfg.Cache.Enabled && cacheRepo != nil)

	teacherRepo := repository.NewTeacherRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	classroomRepo := repository.NewClassroomRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	userRepo := repository.NewUserRepository(db)

	teacherSvc := service.NewTeacherService(teacherRepo, nil, logr)
	subjectSvc := service.NewSubjectService(subjectRepo, teacherRepo, nil, logr)
	classroomSvc := service.NewClassroomService(classroomRepo, nil, logr)
	sessionSvc := service.NewSessionService(sessionRepo, teacherRepo, subjectRepo, classroomRepo, cacheSvc, nil, logr, cfg.Scheduling.ClosedWeekday)
	exportSvc := service.NewExportService(sessionRepo, teacherRepo, subjectRepo, nil, nil, logr)
	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            "timetable-api",
	})

	teacherHandler := handler.NewTeacherHandler(teacherSvc, exportSvc)
	subjectHandler := handler.NewSubjectHandler(subjectSvc)
	classroomHandler := handler.NewClassroomHandler(classroomSvc)
	sessionHandler := handler.NewSessionHandler(sessionSvc, metricsSvc)
	authHandler := handler.NewAuthHandler(authSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	api.GET("/teachers", teacherHandler.List)
	api.GET("/teachers/:id", teacherHandler.Get)
	api.GET("/teachers/:id/schedule/export", teacherHandler.ExportSchedule)
	api.GET("/subjects", subjectHandler.List)
	api.GET("/subjects/:id", subjectHandler.Get)
	api.GET("/classrooms", classroomHandler.List)
	api.GET("/classrooms/:key", classroomHandler.Get)
	api.GET("/sessions", sessionHandler.List)
	api.GET("/sessions/conflicts/teacher", sessionHandler.TeacherConflict)
	api.GET("/sessions/conflicts/classroom", sessionHandler.ClassroomConflict)

	secured := api.Group("", internalmiddleware.JWT(authSvc))
	secured.POST("/teachers", teacherHandler.Create)
	secured.PUT("/teachers/:id", teacherHandler.Update)
	secured.DELETE("/teachers/:id", teacherHandler.Delete)
	secured.POST("/subjects", subjectHandler.Create)
	secured.PUT("/subjects/:id", subjectHandler.Update)
	secured.DELETE("/subjects/:id", subjectHandler.Delete)
	secured.POST("/classrooms", classroomHandler.Create)
	secured.PUT("/classrooms/:key", classroomHandler.Update)
	secured.DELETE("/classrooms/:key", classroomHandler.Delete)
	secured.POST("/sessions", sessionHandler.Schedule)
	secured.PUT("/sessions/:id", sessionHandler.Reschedule)
	secured.DELETE("/sessions/:id", sessionHandler.Delete)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
