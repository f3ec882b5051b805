package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/digkill/AIMultiverse/internal/admin"
	"github.com/digkill/AIMultiverse/internal/ai"
	"github.com/digkill/AIMultiverse/internal/api"
	"github.com/digkill/AIMultiverse/internal/auth"
	"github.com/digkill/AIMultiverse/internal/catalog"
	"github.com/digkill/AIMultiverse/internal/config"
	"github.com/digkill/AIMultiverse/internal/database"
	"github.com/digkill/AIMultiverse/internal/live"
	"github.com/digkill/AIMultiverse/internal/notify"
	"github.com/digkill/AIMultiverse/internal/repository"
	"github.com/digkill/AIMultiverse/internal/service"
	"github.com/digkill/AIMultiverse/internal/storage"
	"github.com/digkill/AIMultiverse/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logr := logger.New(cfg.LogLevel)

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("database connect: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(ctx, db, cfg.DBDriver); err != nil {
		log.Fatalf("database migrate: %v", err)
	}

	cat, err := catalog.Load(cfg.PlanCatalogPath)
	if err != nil {
		log.Fatalf("plan catalog: %v", err)
	}

	var store service.ObjectStore
	storageMode := "inline"
	if cfg.S3Enabled() {
		uploader, err := storage.NewUploader(storage.Config{
			Endpoint:      cfg.S3Endpoint,
			Region:        cfg.S3Region,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			Bucket:        cfg.S3Bucket,
			PublicBaseURL: cfg.S3PublicBaseURL,
			UsePathStyle:  cfg.S3UsePathStyle,
			Prefix:        cfg.S3Prefix,
		})
		if err != nil {
			log.Fatalf("storage uploader: %v", err)
		}
		store = uploader
		storageMode = "s3"
	} else {
		logr.Warn("s3 not configured, artifacts are stored inline")
	}

	var (
		notifier service.Notifier
		telegram *notify.Telegram
	)
	if cfg.TelegramEnabled() {
		botAPI, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
		if err != nil {
			log.Fatalf("telegram bot: %v", err)
		}
		telegram = notify.NewTelegram(botAPI, cfg.TelegramAdminChatID, logr)
		notifier = telegram
	}

	accountRepo := repository.NewAccountRepository(db)
	complaintRepo := repository.NewComplaintRepository(db)
	fileRepo := repository.NewFileRepository(db)

	ledgerService := service.NewLedgerService(db, logr, cat, service.LedgerOptions{
		AutoApprovePayments: cfg.PaymentAutoApprove,
		Notifier:            notifier,
	})
	authService := service.NewAuthService(logr, cat, accountRepo, nil)
	supportService := service.NewSupportService(logr, accountRepo, complaintRepo, notifier)
	fileService := service.NewFileService(logr, fileRepo, store)

	if cfg.AdminEmail != "" {
		if _, err := authService.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword, cfg.AdminName); err != nil {
			log.Fatalf("ensure admin: %v", err)
		}
	}

	var (
		generator service.AI
		liveDial  live.Dialer
	)
	if cfg.AIEnabled() {
		aiClient, err := ai.NewClient(ctx, cfg, logr)
		if err != nil {
			log.Fatalf("ai client: %v", err)
		}
		generator = aiClient
		liveDial = aiClient.LiveDialer()
	} else {
		logr.Warn("gemini api key not set, ai features are disabled")
	}
	generationService := service.NewGenerationService(logr, ledgerService, fileService, generator)

	if telegram != nil {
		telegram.SetReviewer(ledgerService)
		go func() {
			if err := telegram.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logr.Error("telegram notifier stopped", "err", err)
			}
		}()
	}

	sessions := live.NewSessions()
	server := api.NewServer(api.Options{
		Addr:          cfg.HTTPListenAddr,
		AllowedOrigin: cfg.CORSAllowedOrigin,
		Log:           logr,
		Tokens:        auth.NewManager(cfg.JWTSecret, cfg.JWTTTL),
		Auth:          authService,
		Ledger:        ledgerService,
		Support:       supportService,
		Files:         fileService,
		Generation:    generationService,
		LiveDial:      liveDial,
		Sessions:      sessions,
		Admin:         admin.NewServer(logr, ledgerService, supportService, sessions),
		Storage:       storageMode,
	})

	if err := server.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logr.Error("api server stopped", "err", err)
	}
}
