package main

import (
	"context"
	"log" // Use standard log only for initial fatal errors before logger is set up

	"positionsMonitor/config"
	"positionsMonitor/internal/adapters/binanceclient"
	"positionsMonitor/internal/adapters/leaderboard"
	"positionsMonitor/internal/adapters/logger"
	"positionsMonitor/internal/adapters/notifier"
	"positionsMonitor/internal/adapters/sqlite"
	"positionsMonitor/internal/app"
	"positionsMonitor/internal/fetcher"
	"positionsMonitor/internal/ports"
	"positionsMonitor/internal/scanner"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger := logger.New(cfg.LogLevel)
	appLogger.Info(context.Background(), "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String()})

	// 3. Initialize Repository (Database Adapter)
	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath: cfg.DBPath,
		Logger: appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize database repository")
		log.Fatalf("FATAL: Failed to initialize database repository: %v", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			appLogger.Error(context.Background(), err, "Error closing database repository")
		}
	}()

	// 4. Initialize Leaderboard Client
	lbClient, err := leaderboard.New(leaderboard.Config{
		APIKey:   cfg.LeaderboardAPIKey,
		APIHost:  cfg.LeaderboardAPIHost,
		BaseURL:  cfg.LeaderboardBaseURL,
		Timeout:  cfg.HTTPTimeout,
		CacheTTL: cfg.CacheTTL,
		Logger:   appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize leaderboard client")
		log.Fatalf("FATAL: Failed to initialize leaderboard client: %v", err)
	}

	// 5. Initialize Notifier (optional: findings are logged without one)
	var notify ports.Notifier
	if cfg.TelegramToken != "" {
		tg, err := notifier.NewTelegram(notifier.Config{
			Token:  cfg.TelegramToken,
			Logger: appLogger,
		})
		if err != nil {
			appLogger.Error(context.Background(), err, "FATAL: Failed to initialize Telegram notifier")
			log.Fatalf("FATAL: Failed to initialize Telegram notifier: %v", err)
		}
		notify = tg
	} else {
		appLogger.Warn(context.Background(), "No Telegram token configured, scan findings will only be logged")
	}

	// 6. Initialize Mark Price Provider (optional)
	var prices ports.MarkPriceProvider
	if cfg.MarkPriceEnabled {
		bc, err := binanceclient.New(binanceclient.Config{
			APIKey:    cfg.BinanceAPIKey,
			SecretKey: cfg.BinanceSecretKey,
			Logger:    appLogger,
		})
		if err != nil {
			appLogger.Error(context.Background(), err, "FATAL: Failed to initialize Binance client")
			log.Fatalf("FATAL: Failed to initialize Binance client: %v", err)
		}
		prices = bc
	}

	// 7. Initialize Fetcher and Scanner
	fetch, err := fetcher.New(fetcher.Config{
		UIDs:       cfg.UIDs,
		BatchSize:  cfg.BatchSize,
		BatchPause: cfg.BatchPause,
	}, appLogger, lbClient, repo)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize fetcher")
		log.Fatalf("FATAL: Failed to initialize fetcher: %v", err)
	}

	scan, err := scanner.New(scanner.Config{
		Window:            cfg.Window,
		WhaleThreshold:    cfg.WhaleThreshold,
		PriceBandPct:      cfg.PriceBandPct,
		LeverageTolerance: cfg.LeverageTolerance,
		AmountTolerance:   cfg.AmountTolerance,
		OpenTimeTolerance: cfg.OpenTimeTolerance,
		Destination:       cfg.TelegramChatID,
	}, appLogger, repo, notify, prices)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize scanner")
		log.Fatalf("FATAL: Failed to initialize scanner: %v", err)
	}

	// 8. Initialize and Start the Monitor Service
	monitor, err := app.NewMonitorService(appLogger, fetch.RunCycle, scan.RunCycle, cfg.FetchInterval, cfg.ScanInterval)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize monitor service")
		log.Fatalf("FATAL: Failed to initialize monitor service: %v", err)
	}

	if err := monitor.Start(context.Background()); err != nil {
		appLogger.Error(context.Background(), err, "Monitor service exited with error")
		log.Fatalf("FATAL: Monitor service exited with error: %v", err)
	}

	appLogger.Info(context.Background(), "Application finished gracefully.")
}
