package bootstrap

import (
	"context"
	"log"
	"time"

	"ai-lessongen-be/internal/config"
	"ai-lessongen-be/internal/controller"
	"ai-lessongen-be/internal/handler"
	"ai-lessongen-be/internal/pkg/logger"
	"ai-lessongen-be/internal/repository/archive"
	"ai-lessongen-be/internal/repository/memory"
	"ai-lessongen-be/internal/service"
	"ai-lessongen-be/internal/websocket"
	"ai-lessongen-be/pkg/cms"
	"ai-lessongen-be/pkg/generator"
	"ai-lessongen-be/pkg/llm/factory"
	"ai-lessongen-be/pkg/mediasearch"

	pktNats "ai-lessongen-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	LessonController  controller.ILessonController
	MediaController   controller.IMediaController
	ChatbotController controller.IChatbotController

	// WebSocket handlers
	ProgressHandler *handler.ProgressHandler
	ChatHandler     *handler.ChatHandler
	WebSocketHub    *websocket.Hub

	// Background Services (Exposed for main.go to run)
	ProgressRelayService service.IProgressRelayService
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// Initialize LLM Provider based on Config
	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		cfg.Ai.HFApiKey,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// Collaborator clients
	generatorClient := generator.NewClient(
		cfg.Services.GeneratorURL,
		time.Duration(cfg.Services.GeneratorTimeoutSecs)*time.Second,
	)
	mediaClient := mediasearch.NewClient(cfg.Services.MediaSearchURL, cfg.Services.MediaSearchKey)
	cmsClient := cms.NewClient(cfg.Services.CmsURL)

	// In-Memory Session Storage
	generationStore := memory.NewGenerationStore(time.Duration(cfg.Pipeline.RetentionMinutes) * time.Minute)
	chatStore := memory.NewChatStore(time.Duration(cfg.Pipeline.ChatIdleHours) * time.Hour)

	// Archive (optional: nil db disables it)
	archiveRepo := archive.NewSessionArchiveRepository(db)

	// 2.5 Infrastructure
	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	}

	// Redis (optional: hub falls back to single-instance delivery)
	var rdb *redis.Client
	if cfg.App.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{
				Addr: cfg.App.RedisURL,
			}
		}
		rdb = redis.NewClient(opt)
		if _, err := rdb.Ping(context.Background()).Result(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v", err)
		}
	}

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger("logs/progress.log")
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run()

	// Progress pipeline over the internal bus
	progressPublisher := service.NewProgressPublisher(pubSub, service.ProgressTopic)
	progressRelay := service.NewProgressRelayService(pubSub, service.ProgressTopic, wsHub, wsLogger)

	// 3. Services
	generationService := service.NewGenerationService(
		service.GenerationConfig{
			UploadDir:            cfg.Pipeline.UploadDir,
			MaxUploadSizeMB:      cfg.Pipeline.MaxUploadSizeMB,
			MaxMediaResults:      cfg.Pipeline.MaxMediaResults,
			FoundationPromptPath: cfg.Pipeline.FoundationPromptPath,
		},
		generationStore,
		archiveRepo,
		generatorClient,
		mediaClient,
		cmsClient,
		progressPublisher,
		natsPub,
		sysLogger,
	)
	mediaService := service.NewMediaService(mediaClient, generationStore, cfg.Pipeline.MaxMediaResults, sysLogger)
	chatService := service.NewChatService(llmProvider, cmsClient, chatStore, sysLogger)

	// Lifecycle audit consumer (worker)
	auditService := service.NewLifecycleAuditService(natsSub, sysLogger)
	if natsSub != nil {
		if err := auditService.Start(); err != nil {
			log.Printf("[WARN] Failed to start lifecycle audit consumer: %v", err)
		}
	}

	// 4. Handlers & Controllers
	return &Container{
		LessonController:  controller.NewLessonController(generationService),
		MediaController:   controller.NewMediaController(mediaService),
		ChatbotController: controller.NewChatbotController(chatService),

		ProgressHandler: handler.NewProgressHandler(wsHub, generationStore, wsLogger),
		ChatHandler:     handler.NewChatHandler(chatService, sysLogger),
		WebSocketHub:    wsHub,

		ProgressRelayService: progressRelay,
	}
}
