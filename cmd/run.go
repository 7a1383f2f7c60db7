package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"bubbler/bot"
	"bubbler/config"
	"bubbler/database"
	"bubbler/events"
	"bubbler/ledger"
	"bubbler/repository"
	"bubbler/scheduler"
	"bubbler/service"
)

// Run initializes and starts the application
func Run(ctx context.Context) error {
	log.Info("Starting bubbler bot...")

	// Load configuration
	cfg := config.Get()

	// Initialize database connection
	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("Database connection established")

	if err := database.MigrateUp(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Initialize event bus
	eventBus := events.NewBus()
	publisher := events.NewAsyncPublisher(eventBus)

	// Initialize repositories
	snapshots := repository.NewSnapshotRepository(db)
	history := repository.NewBalanceHistoryRepository(db)

	// Build the in-memory ledger and restore the latest snapshot
	store := ledger.New(cfg.HouseAccountID, cfg.PoolAccountID, cfg.HouseRefillFloor)
	snapshot, err := snapshots.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load ledger snapshot: %w", err)
	}
	if snapshot != nil {
		store.Restore(snapshot)
		log.WithFields(log.Fields{
			"snapshotID": snapshot.ID,
			"accounts":   len(snapshot.Accounts),
			"createdAt":  snapshot.CreatedAt,
		}).Info("Restored ledger from snapshot")
	} else {
		log.Info("No snapshot found, starting with an empty ledger")
	}

	// One RNG shared across the game services; draws happen on handler,
	// timer and cron goroutines, so it must be safe for concurrent use
	rng := service.NewLockedRand(time.Now().UnixNano())

	// Initialize services
	accountService := service.NewAccountService(store, snapshots, history, publisher)
	bettingService := service.NewBettingService(store, snapshots, history, publisher, rng)

	// The bot opens the session the announcer needs, so the announcing
	// services are attached after construction
	botConfig := bot.Config{
		Token:             cfg.DiscordToken,
		GuildID:           cfg.DiscordGuildID,
		AnnounceChannelID: cfg.AnnounceChannelID,
		BaronRoleID:       cfg.BaronRoleID,
	}
	discordBot, err := bot.New(botConfig, accountService, bettingService, eventBus)
	if err != nil {
		return fmt.Errorf("failed to initialize Discord bot: %w", err)
	}
	log.Info("Discord bot initialized")

	announcer := bot.NewChannelAnnouncer(discordBot.Session(), cfg.AnnounceChannelID)
	raceService := service.NewRaceService(store, snapshots, history, publisher, announcer, rng)
	dropService := service.NewDropService(store, snapshots, history, publisher, announcer, rng)
	discordBot.SetServices(raceService, dropService)

	// A race interrupted by the previous shutdown refunds its entrants
	if err := raceService.RecoverUnfinishedRace(ctx); err != nil {
		log.WithField("error", err).Error("Failed to recover unfinished race")
	}

	// Start the periodic jobs
	exporter := service.NewSnapshotExporter(store, snapshots)
	jobs, err := scheduler.New(dropService, exporter.Export)
	if err != nil {
		return fmt.Errorf("failed to build scheduler: %w", err)
	}
	jobs.Start()

	// Wait for context cancellation
	log.WithField("environment", cfg.Environment).Info("Bot is running")
	<-ctx.Done()

	// Cleanup resources
	log.Info("Shutting down bot...")
	jobs.Stop()

	if err := discordBot.Close(); err != nil {
		log.WithField("error", err).Error("Error closing Discord bot")
	}

	// Final synchronous snapshot before the pool closes
	final := store.Snapshot()
	final.ID = uuid.New().String()
	saveCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := snapshots.Save(saveCtx, final); err != nil {
		log.WithField("error", err).Error("Failed to save final snapshot")
	}

	log.Info("Closing database connection...")
	db.Close()

	log.Info("Shutdown completed")
	return nil
}
