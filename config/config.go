package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Discord configuration
	DiscordToken      string
	DiscordGuildID    string
	AnnounceChannelID string

	// BaronRoleID is the guild role held by the largest army; role
	// management is disabled when unset
	BaronRoleID string

	// AssetBaseURL hosts the drop pile images; announcements skip the
	// image when unset
	AssetBaseURL string

	// Database configuration
	DatabaseURL string

	// Distinguished accounts
	HouseAccountID string
	PoolAccountID  string

	// Economy settings. The house resets to its refill floor whenever a
	// payout drives it negative; redistribution fires once the pool
	// crosses its floor.
	DailyClaimAmount      int64
	HouseRefillFloor      int64
	SmallRaceMultiplier   float64 // race payout multiplier below LargeRaceSize entrants
	LargeRaceMultiplier   float64 // race payout multiplier at or above LargeRaceSize entrants
	LargeRaceSize         int
	BonusOdds             int   // winner bonus fires 1 in BonusOdds races
	BonusCapMultiplier    int64 // bonus roll capped at wager * this (and the house balance)
	RedistributionFloor   int64
	RedistributionDivisor float64
	DropDisplayCap        int64 // presentation cap for the drop pile

	// Timers
	RaceEntryWindow  time.Duration
	RaceStartDelay   time.Duration
	RaceFrameDelay   time.Duration
	TheftReturnDelay time.Duration

	// Environment
	Environment string // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
)

// Get returns the global configuration instance
func Get() *Config {
	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// load loads configuration from environment variables
func load() (*Config, error) {
	config := &Config{
		// Discord
		DiscordToken:      os.Getenv("DISCORD_TOKEN"),
		DiscordGuildID:    os.Getenv("DISCORD_GUILD_ID"),
		BaronRoleID:       os.Getenv("BARON_ROLE_ID"),
		AnnounceChannelID: os.Getenv("ANNOUNCE_CHANNEL_ID"),
		AssetBaseURL:      os.Getenv("ASSET_BASE_URL"),

		// Database
		DatabaseURL: os.Getenv("DATABASE_URL"),

		// Economy settings with defaults
		HouseAccountID:        "house",
		PoolAccountID:         "pool",
		DailyClaimAmount:      50,
		HouseRefillFloor:      500,
		SmallRaceMultiplier:   2.0,
		LargeRaceMultiplier:   2.6,
		LargeRaceSize:         4,
		BonusOdds:             10,
		BonusCapMultiplier:    20,
		RedistributionFloor:   500,
		RedistributionDivisor: 1.1,
		DropDisplayCap:        21,

		// Timers
		RaceEntryWindow:  20 * time.Second,
		RaceStartDelay:   1500 * time.Millisecond,
		RaceFrameDelay:   700 * time.Millisecond,
		TheftReturnDelay: 60 * time.Second,

		// Environment
		Environment: os.Getenv("ENVIRONMENT"),
	}

	// Override defaults if environment variables are set
	if id := os.Getenv("HOUSE_ACCOUNT_ID"); id != "" {
		config.HouseAccountID = id
	}
	if id := os.Getenv("POOL_ACCOUNT_ID"); id != "" {
		config.PoolAccountID = id
	}
	if amount := os.Getenv("DAILY_CLAIM_AMOUNT"); amount != "" {
		if parsedAmount, err := strconv.ParseInt(amount, 10, 64); err == nil {
			config.DailyClaimAmount = parsedAmount
		}
	}
	if floor := os.Getenv("HOUSE_REFILL_FLOOR"); floor != "" {
		if parsedFloor, err := strconv.ParseInt(floor, 10, 64); err == nil {
			config.HouseRefillFloor = parsedFloor
		}
	}
	if floor := os.Getenv("REDISTRIBUTION_FLOOR"); floor != "" {
		if parsedFloor, err := strconv.ParseInt(floor, 10, 64); err == nil {
			config.RedistributionFloor = parsedFloor
		}
	}
	if window := os.Getenv("RACE_ENTRY_WINDOW"); window != "" {
		if parsedWindow, err := time.ParseDuration(window); err == nil {
			config.RaceEntryWindow = parsedWindow
		}
	}
	if delay := os.Getenv("RACE_START_DELAY"); delay != "" {
		if parsedDelay, err := time.ParseDuration(delay); err == nil {
			config.RaceStartDelay = parsedDelay
		}
	}
	if delay := os.Getenv("RACE_FRAME_DELAY"); delay != "" {
		if parsedDelay, err := time.ParseDuration(delay); err == nil {
			config.RaceFrameDelay = parsedDelay
		}
	}
	if delay := os.Getenv("THEFT_RETURN_DELAY"); delay != "" {
		if parsedDelay, err := time.ParseDuration(delay); err == nil {
			config.TheftReturnDelay = parsedDelay
		}
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		// Validate required configuration
		if config.DiscordToken == "" {
			return nil, fmt.Errorf("DISCORD_TOKEN is required")
		}
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
	}

	return config, nil
}
