package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"ssq-predictor/internal/api"
	"ssq-predictor/internal/cache"
	"ssq-predictor/internal/clock"
	"ssq-predictor/internal/config"
	"ssq-predictor/internal/database"
	"ssq-predictor/internal/logger"
	"ssq-predictor/internal/metrics"
	"ssq-predictor/internal/predictor"
	"ssq-predictor/internal/suggest"
	"ssq-predictor/internal/telegram"
)

const settleScanSize = 20

// App 应用程序主结构
type App struct {
	config        *config.Config
	store         *database.Store
	cacheManager  *cache.CacheManager
	apiClient     *api.Client
	service       *predictor.Service
	telegramBot   *telegram.Bot
	metricsServer *http.Server

	// 控制通道
	stopChannel chan struct{}
	wg          sync.WaitGroup

	// 错误状态跟踪（避免重复日志）
	lastFeedError string
}

// NewApp 创建应用程序实例，不启动任何后台服务
func NewApp(cfg *config.Config) (*App, error) {
	store, err := database.Open(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	logger.Infof("Database ready (%s)", cfg.Database.Driver)

	params, err := predictor.ParamsFromConfig(&cfg.Engine)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}

	cacheManager := cache.NewCacheManager(store, cfg.App.CacheTTL)

	opts := []predictor.Option{predictor.WithSeed(cfg.Engine.Seed)}
	if cfg.Suggest.Enabled {
		opts = append(opts, predictor.WithSuggester(suggest.NewClient(&cfg.Suggest), cfg.Suggest.Timeout))
		logger.Infof("Suggestion service enabled (model %s)", cfg.Suggest.Model)
	}
	engine := predictor.NewEngine(params, clock.System{}, opts...)

	return &App{
		config:       cfg,
		store:        store,
		cacheManager: cacheManager,
		apiClient:    api.NewClient(&cfg.Feed),
		service:      predictor.NewService(engine, cacheManager, clock.System{}),
		stopChannel:  make(chan struct{}),
	}, nil
}

// Start 启动常驻服务：数据同步、批次清理、机器人与指标导出
func (a *App) Start() error {
	fmt.Println("🔄 启动所有服务...")

	ctx, cancel := context.WithTimeout(context.Background(), a.config.Feed.Timeout*time.Duration(a.config.Feed.RetryCount+2))
	if added, err := a.syncDraws(ctx); err != nil {
		logger.Warnf("Initial draw sync failed: %v", err)
	} else {
		fmt.Printf("📚 历史开奖同步完成，新增 %d 期\n", added)
	}
	cancel()

	if a.config.Telegram.Enabled {
		handler := telegram.NewHandler(a.cacheManager, a.service, a.config.Telegram.PredictRate)
		bot, err := telegram.NewBot(&a.config.Telegram, handler)
		if err != nil {
			return fmt.Errorf("failed to initialize telegram bot: %w", err)
		}
		a.telegramBot = bot
		a.telegramBot.Start()
		fmt.Println("✅ Telegram机器人连接成功")
	}

	if a.config.Metrics.Listen != "" {
		a.startMetricsServer()
	}

	// 启动数据监控协程
	a.wg.Add(1)
	go a.dataMonitorLoop()

	// 启动数据清理协程
	a.wg.Add(1)
	go a.dataCleanupLoop()

	fmt.Println("✅ 所有服务启动完成")
	fmt.Println("📡 开始监控双色球开奖数据...")
	fmt.Printf("⏰ 轮询间隔: %v\n", a.config.App.PollingInterval)
	fmt.Println("💡 按 Ctrl+C 停止程序")
	fmt.Println("")
	return nil
}

// Stop 停止后台服务
func (a *App) Stop() {
	fmt.Println("🛑 正在停止应用程序...")

	close(a.stopChannel)

	if a.telegramBot != nil {
		a.telegramBot.Stop()
	}
	if a.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			logger.Errorf("Failed to shutdown metrics server: %v", err)
		}
		cancel()
	}

	// 等待所有协程结束
	a.wg.Wait()
	a.Close()

	fmt.Println("✅ 应用程序已安全停止")
}

// Close 释放缓存与数据库连接
func (a *App) Close() {
	a.cacheManager.Close()
	if err := a.store.Close(); err != nil {
		logger.Errorf("Failed to close database: %v", err)
	}
}

func (a *App) startMetricsServer() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		health := a.HealthCheck(r.Context())
		w.Header().Set("Content-Type", "application/json")
		if health["status"] != "ok" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		if err := json.NewEncoder(w).Encode(health); err != nil {
			logger.Warnf("Failed to encode health response: %v", err)
		}
	})

	a.metricsServer = &http.Server{Addr: a.config.Metrics.Listen, Handler: mux}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("Metrics server failed: %v", err)
		}
	}()
	fmt.Printf("📈 指标服务监听: %s\n", a.config.Metrics.Listen)
}

// syncDraws 拉取开奖数据源并保存新增记录
func (a *App) syncDraws(ctx context.Context) (int, error) {
	records, err := a.apiClient.FetchDraws(ctx)
	if err != nil {
		return 0, err
	}

	added, err := a.cacheManager.SaveDraws(records)
	if err != nil {
		return 0, fmt.Errorf("failed to save draws: %w", err)
	}
	metrics.DrawsSynced.Add(float64(added))
	return added, nil
}

// dataMonitorLoop 数据监控循环
func (a *App) dataMonitorLoop() {
	defer a.wg.Done()

	ticker := time.NewTicker(a.config.App.PollingInterval)
	defer ticker.Stop()

	consecutiveErrors := 0
	for {
		select {
		case <-ticker.C:
			if err := a.processDataUpdate(); err != nil {
				consecutiveErrors++
				// 只在第一次错误和每30次错误时显示（减少刷屏）
				if consecutiveErrors == 1 {
					fmt.Printf("⚠️  数据获取失败: %v\n", err)
				} else if consecutiveErrors%30 == 0 {
					fmt.Printf("❌ 连续失败 %d 次，仍在重试...\n", consecutiveErrors)
				}
			} else if consecutiveErrors > 0 {
				fmt.Printf("✅ 数据连接已恢复（失败了 %d 次）\n", consecutiveErrors)
				consecutiveErrors = 0
			}
		case <-a.stopChannel:
			return
		}
	}
}

// processDataUpdate 同步一次数据，有新开奖时比对已到期的预测批次
func (a *App) processDataUpdate() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-a.stopChannel:
			cancel()
		case <-ctx.Done():
		}
	}()

	added, err := a.syncDraws(ctx)
	if err != nil {
		if a.lastFeedError != err.Error() {
			logger.Errorf("Draw sync failed: %v", err)
			a.lastFeedError = err.Error()
		}
		return err
	}
	a.lastFeedError = ""

	if added == 0 {
		return nil
	}

	latest, err := a.cacheManager.LatestDraw()
	if err != nil || latest == nil {
		return err
	}
	fmt.Printf("🎯 发现新开奖: %s - %s | %02d\n", latest.Issue, database.FormatNumbers(latest.Primary, " "), latest.Secondary)

	if settled := a.settleRuns(latest.Issue); settled > 0 {
		fmt.Printf("✅ 比对了 %d 个预测批次\n", settled)
	}
	return nil
}

// settleRuns 比对目标期为 issue 的近期预测批次
func (a *App) settleRuns(issue string) int {
	runs, err := a.service.ListRuns(settleScanSize)
	if err != nil {
		logger.Warnf("Failed to list runs for settlement: %v", err)
		return 0
	}

	settled := 0
	for _, run := range runs {
		if run.TargetIssue != issue {
			continue
		}
		score, err := a.service.Check(run.ID)
		if err != nil {
			logger.Warnf("Failed to check run %s: %v", run.ID, err)
			continue
		}
		logger.WithFields(map[string]interface{}{
			"run":       run.ID,
			"winning":   score.Winning,
			"best_tier": score.BestTier,
		}).Info(score.Summary())
		settled++
	}
	return settled
}

// dataCleanupLoop 数据清理循环
func (a *App) dataCleanupLoop() {
	defer a.wg.Done()

	// 每小时执行一次清理
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			n, err := a.pruneRuns()
			if err != nil {
				fmt.Printf("❌ 数据清理失败: %v\n", err)
			} else if n > 0 {
				fmt.Printf("🧹 清理了 %d 个过期预测批次\n", n)
			}
		case <-a.stopChannel:
			return
		}
	}
}

// pruneRuns 按保留期清理预测批次，保留期为 0 时不清理
func (a *App) pruneRuns() (int, error) {
	if a.config.App.RunRetention <= 0 {
		return 0, nil
	}
	n, err := a.cacheManager.PruneRuns(time.Now().Add(-a.config.App.RunRetention))
	if err != nil {
		return 0, err
	}
	metrics.RunsPruned.Add(float64(n))
	return n, nil
}

// HealthCheck 健康检查
func (a *App) HealthCheck(ctx context.Context) map[string]interface{} {
	health := map[string]interface{}{
		"timestamp": time.Now(),
		"status":    "ok",
	}
	services := map[string]interface{}{}
	health["services"] = services

	if err := a.store.Ping(); err != nil {
		services["database"] = map[string]interface{}{"status": "error", "error": err.Error()}
		health["status"] = "degraded"
	} else {
		services["database"] = map[string]interface{}{"status": "ok"}
	}

	if err := a.apiClient.HealthCheck(ctx); err != nil {
		services["feed"] = map[string]interface{}{"status": "error", "error": err.Error()}
		health["status"] = "degraded"
	} else {
		services["feed"] = map[string]interface{}{"status": "ok", "stats": a.apiClient.Stats()}
	}

	services["cache"] = map[string]interface{}{
		"status": "ok",
		"stats":  a.cacheManager.GetStats(),
	}

	if a.telegramBot != nil {
		services["telegram"] = map[string]interface{}{
			"status": "ok",
			"info":   a.telegramBot.GetBotInfo(),
		}
	}
	return health
}
