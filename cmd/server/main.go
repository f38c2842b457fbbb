// Escala 月度排班引擎服务
// 主程序入口

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/escala/escala/internal/config"
	"github.com/escala/escala/internal/database"
	"github.com/escala/escala/internal/handler"
	"github.com/escala/escala/internal/metrics"
	"github.com/escala/escala/internal/middleware"
	"github.com/escala/escala/internal/repository"
	"github.com/escala/escala/internal/security"
	"github.com/escala/escala/pkg/logger"
	"github.com/escala/escala/pkg/service"
)

// 构建信息（通过 ldflags 注入）
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// 加载 .env（不存在时静默跳过）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "配置加载失败: %v\n", err)
		os.Exit(1)
	}

	logger.Init(logger.Config{
		Level:  cfg.App.LogLevel,
		Format: "console",
		Output: "stdout",
	})

	logger.Info().
		Str("version", Version).
		Str("build", BuildTime).
		Str("commit", GitCommit).
		Str("env", cfg.App.Env).
		Msg("Escala 排班引擎启动中")

	// 项目配置与历史的文件存储
	svc, err := service.NewSchedulerService(cfg.Storage.ConfigPath, cfg.Storage.HistoryPath)
	if err != nil {
		logger.Error().Err(err).Msg("排班服务初始化失败")
		os.Exit(1)
	}

	// 可选的数据库镜像
	var db *database.DB
	var scheduleMirror *repository.ScheduleRepository
	if cfg.Database.Enabled {
		db, err = database.New(&cfg.Database)
		if err != nil {
			logger.Error().Err(err).Msg("数据库连接失败")
			os.Exit(1)
		}
		defer db.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := db.Migrate(ctx); err != nil {
			cancel()
			logger.Error().Err(err).Msg("数据库迁移失败")
			os.Exit(1)
		}

		workerRepo := repository.NewWorkerRepository(db)
		if err := workerRepo.Sync(ctx, svc.Workers()); err != nil {
			logger.WithError(err).Msg("员工名册同步失败")
		}
		cancel()

		scheduleMirror = repository.NewScheduleRepository(db)
	}

	// API密钥与限流
	keyManager := security.NewAPIKeyManager()
	if cfg.API.Key != "" {
		keyManager.Register(cfg.API.Key, "default", []string{"schedule", "workers", "stats"})
	}
	rateLimiter := security.NewRateLimiter(cfg.API.RateLimit, time.Minute)

	scheduleHandler := handler.NewScheduleHandler(svc, scheduleMirror)
	workerHandler := handler.NewWorkerHandler(svc)
	statsHandler := handler.NewStatsHandler(svc)

	mux := http.NewServeMux()

	// 系统端点
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if db != nil {
			if err := db.Health(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				fmt.Fprintf(w, `{"status":"degraded","service":"%s","database":"down"}`, cfg.App.Name)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"ok","service":"%s"}`, cfg.App.Name)
	})

	mux.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"version":"%s","build_time":"%s","git_commit":"%s"}`, Version, BuildTime, GitCommit)
	})

	// API 根路由
	mux.HandleFunc("/api/v1/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{
			"message": "Escala 排班引擎 API v1",
			"endpoints": {
				"schedule": {
					"generate": "POST /api/v1/schedule/generate",
					"diagnose": "GET /api/v1/schedule/diagnose?month=YYYY-MM",
					"month": "GET /api/v1/schedule/month?month=YYYY-MM",
					"reset": "DELETE /api/v1/schedule/reset?month=YYYY-MM",
					"swaps": "POST /api/v1/schedule/swaps"
				},
				"workers": {
					"list": "GET /api/v1/workers",
					"create": "POST /api/v1/workers",
					"item": "GET|PUT|DELETE /api/v1/workers/{name}"
				},
				"declarations": {
					"unavailable": "PUT /api/v1/declarations/unavailable",
					"required": "PUT /api/v1/declarations/required"
				},
				"credits": "PUT /api/v1/credits",
				"rules": "GET /api/v1/rules",
				"holidays": "POST|DELETE /api/v1/holidays",
				"import": {
					"workers": "POST /api/v1/import/workers",
					"holidays": "POST /api/v1/import/holidays"
				},
				"stats": {
					"fairness": "GET /api/v1/stats/fairness?month=YYYY-MM",
					"coverage": "GET /api/v1/stats/coverage?month=YYYY-MM",
					"reports": "GET /api/v1/stats/reports"
				}
			}
		}`))
	})

	// 排班 API
	mux.HandleFunc("/api/v1/schedule/generate", scheduleHandler.Generate)
	mux.HandleFunc("/api/v1/schedule/diagnose", scheduleHandler.Diagnose)
	mux.HandleFunc("/api/v1/schedule/month", scheduleHandler.GetMonth)
	mux.HandleFunc("/api/v1/schedule/reset", scheduleHandler.Reset)
	mux.HandleFunc("/api/v1/schedule/swaps", scheduleHandler.Swaps)

	// 员工名册 API
	mux.HandleFunc("/api/v1/workers", workerHandler.Collection)
	mux.HandleFunc("/api/v1/workers/", workerHandler.Item)
	mux.HandleFunc("/api/v1/declarations/unavailable", workerHandler.SetUnavailable)
	mux.HandleFunc("/api/v1/declarations/required", workerHandler.SetRequired)
	mux.HandleFunc("/api/v1/credits", workerHandler.SetCredits)
	mux.HandleFunc("/api/v1/holidays", workerHandler.Holidays)
	mux.HandleFunc("/api/v1/import/workers", workerHandler.ImportWorkers)
	mux.HandleFunc("/api/v1/import/holidays", workerHandler.ImportHolidays)

	// 规则目录 API
	mux.HandleFunc("/api/v1/rules", handler.Rules)

	// 统计分析 API
	mux.HandleFunc("/api/v1/stats/fairness", statsHandler.Fairness)
	mux.HandleFunc("/api/v1/stats/coverage", statsHandler.Coverage)
	mux.HandleFunc("/api/v1/stats/reports", statsHandler.Reports)

	// Prometheus 指标端点
	if cfg.Metrics.Enabled {
		mux.Handle(cfg.Metrics.Path, metrics.Handler())
	}

	// 中间件链：requestID -> recovery -> securityHeaders -> auth -> logging -> handler
	var root http.Handler = middleware.LoggingMiddleware(mux)
	if cfg.API.Key != "" {
		auth := middleware.AuthMiddleware(&middleware.AuthConfig{
			APIKeyManager:   keyManager,
			RateLimiter:     rateLimiter,
			SkipPaths:       []string{"/health", "/version", cfg.Metrics.Path},
			EnableRateLimit: true,
		})
		root = auth(root)
	}
	root = middleware.RequestIDMiddleware(middleware.RecoveryMiddleware(middleware.SecurityHeadersMiddleware(root)))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      root,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.API.Timeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info().
			Int("port", cfg.App.Port).
			Str("url", fmt.Sprintf("http://localhost:%d", cfg.App.Port)).
			Msg("服务器启动")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("服务器启动失败")
			os.Exit(1)
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("服务器关闭失败")
		os.Exit(1)
	}

	logger.Info().Msg("服务器已关闭")
}
