package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/satoshiyanada888/Today-s-MLB-Games/internal/api"
	"github.com/satoshiyanada888/Today-s-MLB-Games/internal/config"
	"github.com/satoshiyanada888/Today-s-MLB-Games/internal/fanout"
	"github.com/satoshiyanada888/Today-s-MLB-Games/internal/hype"
	"github.com/satoshiyanada888/Today-s-MLB-Games/internal/logger"
	"github.com/satoshiyanada888/Today-s-MLB-Games/internal/mlb"
	"github.com/satoshiyanada888/Today-s-MLB-Games/internal/moments"
	"github.com/satoshiyanada888/Today-s-MLB-Games/internal/oneplay"
	"github.com/satoshiyanada888/Today-s-MLB-Games/internal/session"
	"github.com/satoshiyanada888/Today-s-MLB-Games/internal/storage"
	"github.com/satoshiyanada888/Today-s-MLB-Games/internal/telegram"
)

var (
	configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")
	gameFlag   = flag.String("game", "", "Game ID to follow (overrides mlb.game_id)")
	dateFlag   = flag.String("date", "", "Schedule date YYYY-MM-DD (default today)")
)

const rotateInterval = 10 * time.Minute

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Configuration loaded from %s", *configPath)

	var store storage.Records
	var rotate func() error
	db, err := storage.New(cfg.Storage.MaxRecords, cfg.Storage.DBPath)
	if err != nil {
		logger.Warn("Failed to open storage at %s, keeping state in memory: %v", cfg.Storage.DBPath, err)
		store = storage.NewMemory()
	} else {
		store, rotate = db, db.RotateRecords
		defer func() {
			if err := db.Close(); err != nil {
				logger.Error("Failed to close storage: %v", err)
			}
		}()
	}

	mlbClient := mlb.NewClient(
		cfg.MLB.APIBaseURL,
		cfg.MLB.APIBaseURLV11,
		cfg.MLB.Timeout,
		mlb.ClientConfig{
			MaxRetries:        cfg.MLB.MaxRetries,
			RetryDelayBase:    cfg.MLB.RetryDelayBase,
			RequestsPerSecond: cfg.MLB.RequestsPerSecond,
		},
	)

	var telegramClient *telegram.Client
	if cfg.Telegram.Enabled {
		telegramClient, err = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase)
		if err != nil {
			logger.Fatal("Failed to initialize Telegram client: %v", err)
		}
		logger.Info("Telegram client initialized successfully")
	} else {
		logger.Debug("Telegram notifications disabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts := []session.Option{}
	var hub *fanout.Hub
	if cfg.Server.Enabled {
		hub = fanout.NewHub()
		opts = append(opts, session.WithPublisher(hub))
	}
	if telegramClient != nil {
		opts = append(opts, session.WithAlerter(telegramClient))
	}

	sess := session.New(ctx, session.Config{
		LiveInterval: cfg.MLB.LiveInterval,
		IdleInterval: cfg.MLB.IdleInterval,
		Hype: hype.Config{
			HapticCooldown: cfg.Hype.HapticCooldown,
			ReducedMotion:  cfg.Hype.ReducedMotion,
		},
		Moments: moments.Config{
			Cooldown:          cfg.Moments.Cooldown,
			MaxMoments:        cfg.Moments.MaxMoments,
			WPDeltaThreshold:  cfg.Moments.WPDeltaThreshold,
			DramaThreshold:    cfg.Moments.DramaThreshold,
			LeverageThreshold: cfg.Moments.LeverageThreshold,
		},
		OnePlay: oneplay.Config{
			User:     cfg.OnePlay.User,
			MaxDraws: cfg.OnePlay.MaxDraws,
			Debug:    cfg.OnePlay.Debug,
		},
	}, mlbClient, store, opts...)

	date := *dateFlag
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}
	preferred := cfg.MLB.GameID
	if *gameFlag != "" {
		preferred = *gameFlag
	}
	gameID, err := sess.PickGame(ctx, date, preferred)
	if err != nil {
		if preferred == "" {
			logger.Fatal("Failed to pick a game: %v", err)
		}
		logger.Warn("Schedule unavailable, following game %s: %v", preferred, err)
		gameID = preferred
	}

	var httpServer *http.Server
	if cfg.Server.Enabled {
		httpServer = &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           api.NewServer(sess, hub).Routes(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("API listening on %s", cfg.Server.Addr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Fatal("API server failed: %v", err)
			}
		}()
	}

	if telegramClient != nil {
		telegramClient.ListenForCommands(ctx, sess)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Following game %s (live every %v, otherwise every %v)", gameID, cfg.MLB.LiveInterval, cfg.MLB.IdleInterval)
	sess.SelectGame(gameID)

	ticker := time.NewTicker(rotateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-sigChan:
			logger.Info("Shutdown signal received, cleaning up...")
			cancel()
			sess.Stop()
			if httpServer != nil {
				shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
				if err := httpServer.Shutdown(shutdownCtx); err != nil {
					logger.Warn("Failed to shut down API server: %v", err)
				}
				done()
				hub.Close()
			}
			logger.Info("Service stopped")
			return

		case <-ticker.C:
			if rotate == nil {
				continue
			}
			if err := rotate(); err != nil {
				logger.Warn("Failed to rotate records: %v", err)
			}
		}
	}
}
