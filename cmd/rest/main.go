package main

import (
	"context"
	"log"

	"ai-lessongen-be/internal/bootstrap"
	"ai-lessongen-be/internal/config"
	"ai-lessongen-be/internal/repository/archive"
	"ai-lessongen-be/internal/server"
	"ai-lessongen-be/internal/tracer"
	"ai-lessongen-be/pkg/database"

	"gorm.io/gorm"
)

func main() {
	// 0. Initialize Tracer (no-op unless OTEL_ENABLED=true)
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Archive Database (optional)
	var gormDB *gorm.DB
	if cfg.Archive.Connection != "" {
		db, err := database.NewGormDBFromDSN(cfg.Archive.Connection)
		if err != nil {
			log.Printf("[WARN] Archive DB unavailable, sessions will not be archived: %v", err)
		} else if err := archive.Migrate(db); err != nil {
			log.Printf("[WARN] Archive migration failed, sessions will not be archived: %v", err)
		} else {
			gormDB = db
		}
	}

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)

	// 4. Start Background Services
	go func() {
		log.Println("Background: Starting Progress Relay...")
		if err := container.ProgressRelayService.Consume(context.Background()); err != nil {
			log.Printf("Background Relay Error: %v", err)
		}
	}()

	// 5. Initialize Server
	srv := server.New(cfg, container)

	// 6. Run Server
	log.Fatal(srv.Run())
}
