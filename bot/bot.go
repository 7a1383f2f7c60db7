package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"bubbler/events"
	"bubbler/ledger"
	"bubbler/models"
	"bubbler/service"

	"github.com/bwmarrin/discordgo"
)

// Config holds bot configuration
type Config struct {
	Token             string
	GuildID           string
	AnnounceChannelID string

	// BaronRoleID is the guild role held by the largest army; empty
	// disables role management
	BaronRoleID string
}

type Bot struct {
	config         Config
	session        *discordgo.Session
	accountService service.AccountService
	bettingService service.BettingService
	raceService    service.RaceService
	dropService    service.DropService
	eventBus       *events.Bus
}

func New(config Config, accountService service.AccountService, bettingService service.BettingService, eventBus *events.Bus) (*Bot, error) {
	dg, err := discordgo.New("Bot " + config.Token)
	if err != nil {
		return nil, fmt.Errorf("error creating discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsAllWithoutPrivileged | discordgo.IntentsGuildMembers

	bot := &Bot{
		config:         config,
		session:        dg,
		accountService: accountService,
		bettingService: bettingService,
		eventBus:       eventBus,
	}

	dg.AddHandler(bot.handleCommands)

	if err := dg.Open(); err != nil {
		return nil, fmt.Errorf("error opening connection: %w", err)
	}

	if err := bot.registerCommands(); err != nil {
		dg.Close()
		return nil, fmt.Errorf("error registering commands: %w", err)
	}

	// The baron role follows the largest army around
	if bot.config.BaronRoleID != "" {
		eventBus.Subscribe(events.EventTypeBalanceChange, func(ctx context.Context, event events.Event) {
			if _, ok := event.(events.BalanceChangeEvent); ok {
				if err := bot.updateBaronRole(ctx); err != nil {
					log.WithField("error", err).Error("Failed to update baron role")
				}
			}
		})

		go func() {
			// Give the gateway a moment before the initial sync
			time.Sleep(2 * time.Second)
			if err := bot.updateBaronRole(context.Background()); err != nil {
				log.WithField("error", err).Error("Failed to sync baron role on startup")
			}
		}()
	}

	return bot, nil
}

// updateBaronRole moves the baron role to whoever currently commands the
// largest army, removing it from anyone else holding it.
func (b *Bot) updateBaronRole(ctx context.Context) error {
	leader, _, ok := b.accountService.Leader(ctx)
	if !ok {
		return nil
	}

	members, err := b.session.GuildMembers(b.config.GuildID, "", 1000)
	if err != nil {
		return fmt.Errorf("failed to get guild members: %w", err)
	}

	for _, member := range members {
		holds := false
		for _, roleID := range member.Roles {
			if roleID == b.config.BaronRoleID {
				holds = true
				break
			}
		}

		switch {
		case holds && member.User.ID != leader:
			if err := b.session.GuildMemberRoleRemove(b.config.GuildID, member.User.ID, b.config.BaronRoleID); err != nil {
				return fmt.Errorf("failed to remove baron role from %s: %w", member.User.ID, err)
			}
		case !holds && member.User.ID == leader:
			if err := b.session.GuildMemberRoleAdd(b.config.GuildID, leader, b.config.BaronRoleID); err != nil {
				return fmt.Errorf("failed to add baron role to %s: %w", leader, err)
			}
			log.WithField("identity", leader).Info("Baron role reassigned")
		}
	}
	return nil
}

func (b *Bot) Close() error {
	return b.session.Close()
}

// Session exposes the underlying connection for the announcer.
func (b *Bot) Session() *discordgo.Session {
	return b.session
}

// SetServices attaches the services that need an announcer built from the
// live session; commands using them are ignored until this is called.
func (b *Bot) SetServices(raceService service.RaceService, dropService service.DropService) {
	b.raceService = raceService
	b.dropService = dropService
}

func (b *Bot) registerCommands() error {
	commands := []*discordgo.ApplicationCommand{
		{
			Name:        "army",
			Description: "Check the size of your Scrubbing Bubbles army",
		},
		{
			Name:        "reserve",
			Description: "Call up your daily reserve bubbles",
		},
		{
			Name:        "clean",
			Description: "Bet bubbles on a cleaning job - double or nothing",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "amount",
					Description: "Number of bubbles to send out",
					Required:    true,
				},
			},
		},
		{
			Name:        "race",
			Description: "Start or join an animal race",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "amount",
					Description: "Entry bet, used only when opening a new race",
					Required:    false,
				},
			},
		},
		{
			Name:        "give",
			Description: "Give bubbles to another member",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "amount",
					Description: "Number of bubbles to give",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "Member to give them to",
					Required:    true,
				},
			},
		},
		{
			Name:        "enlist",
			Description: "Enlist the dropped bubbles into your army",
		},
		{
			Name:        "discharge",
			Description: "Discharge bubbles from your army onto the floor",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "amount",
					Description: "Number of bubbles to discharge",
					Required:    true,
				},
			},
		},
		{
			Name:        "steal",
			Description: "Steal bubbles from another member's army",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "amount",
					Description: "Number of bubbles to steal",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "Member to steal from",
					Required:    true,
				},
			},
		},
		{
			Name:        "heist",
			Description: "Seize a third of every army... temporarily",
		},
		{
			Name:        "stats",
			Description: "View your gambling statistics",
		},
	}

	for _, cmd := range commands {
		_, err := b.session.ApplicationCommandCreate(b.session.State.User.ID, "", cmd)
		if err != nil {
			return fmt.Errorf("cannot create '%s' command: %w", cmd.Name, err)
		}
	}

	return nil
}

func (b *Bot) handleCommands(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	switch i.ApplicationCommandData().Name {
	case "army":
		b.handleArmy(s, i)
	case "reserve":
		b.handleReserve(s, i)
	case "clean":
		b.handleClean(s, i)
	case "race":
		b.handleRace(s, i)
	case "give":
		b.handleGive(s, i)
	case "enlist":
		b.handleEnlist(s, i)
	case "discharge":
		b.handleDischarge(s, i)
	case "steal":
		b.handleSteal(s, i)
	case "heist":
		b.handleHeist(s, i)
	case "stats":
		b.handleStats(s, i)
	}
}

func (b *Bot) handleArmy(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()
	identity := i.Member.User.ID

	account, err := b.accountService.GetAccount(ctx, identity)
	if err != nil {
		log.WithField("error", err).Error("Failed to get account")
		b.respondWithError(s, i, "Unable to retrieve your army. Please try again.")
		return
	}

	b.respond(s, i, fmt.Sprintf("%s, your army is **%d** Scrubbing Bubbles strong.",
		mention(identity), account.Balance))
}

func (b *Bot) handleReserve(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()
	identity := i.Member.User.ID

	newBalance, err := b.accountService.ClaimDaily(ctx, identity)
	if err != nil {
		if errors.Is(err, ledger.ErrAlreadyClaimedToday) {
			b.respondWithError(s, i, "Your reserve bubbles have already been called up today.")
			return
		}
		log.WithField("error", err).Error("Failed to claim daily reserve")
		b.respondWithError(s, i, "Unable to call up reserves. Please try again.")
		return
	}

	b.respond(s, i, fmt.Sprintf("%s, your reserve bubbles have reported for duty! Your army is now **%d** strong.",
		mention(identity), newBalance))
}

func (b *Bot) handleClean(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()
	identity := i.Member.User.ID
	amount := i.ApplicationCommandData().Options[0].IntValue()

	result, err := b.bettingService.PlayClean(ctx, identity, amount)
	if err != nil {
		if errors.Is(err, ledger.ErrInsufficientFunds) {
			b.respondWithError(s, i, "Your army is not big enough for that bet.")
			return
		}
		if errors.Is(err, ledger.ErrInvalidAmount) {
			b.respondWithError(s, i, "Bet amount must be positive.")
			return
		}
		log.WithField("error", err).Error("Failed to run clean bet")
		b.respondWithError(s, i, "Unable to send your bubbles out. Please try again.")
		return
	}

	if result.Won {
		b.respond(s, i, fmt.Sprintf("%s, your **%d** bubbles brought **%d** friends home! Your army is now **%d** strong.",
			mention(identity), result.Wager, result.Payout-result.Wager, result.NewBalance))
	} else {
		b.respond(s, i, fmt.Sprintf("%s, your **%d** bubbles were lost in the field... Your army is now **%d** strong.",
			mention(identity), result.Wager, result.NewBalance))
	}
}

func (b *Bot) handleRace(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()
	identity := i.Member.User.ID

	if b.raceService == nil {
		b.respondWithError(s, i, "The race track is still being set up.")
		return
	}

	var amount int64
	if opts := i.ApplicationCommandData().Options; len(opts) > 0 {
		amount = opts[0].IntValue()
	}

	if err := b.raceService.CreateOrEnter(ctx, identity, amount); err != nil {
		log.WithField("error", err).Error("Failed to enter race")
		b.respondWithError(s, i, "Unable to enter the race. Please try again.")
		return
	}

	// Entry outcomes are announced in the channel; acknowledge quietly
	b.respondEphemeral(s, i, "Race entry submitted.")
}

func (b *Bot) handleGive(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()
	identity := i.Member.User.ID

	var amount int64
	var recipient *discordgo.User
	for _, opt := range i.ApplicationCommandData().Options {
		switch opt.Name {
		case "amount":
			amount = opt.IntValue()
		case "user":
			recipient = opt.UserValue(s)
		}
	}

	if recipient == nil {
		b.respondWithError(s, i, "Invalid recipient.")
		return
	}
	if recipient.ID == identity {
		b.respondWithError(s, i, "You cannot give bubbles to yourself.")
		return
	}

	result, err := b.accountService.Transfer(ctx, identity, recipient.ID, amount)
	if err != nil {
		if errors.Is(err, ledger.ErrInsufficientFunds) {
			b.respondWithError(s, i, "Your army is not big enough for that gift.")
			return
		}
		if errors.Is(err, ledger.ErrInvalidAmount) {
			b.respondWithError(s, i, "Amount must be positive.")
			return
		}
		log.WithField("error", err).Error("Failed to transfer")
		b.respondWithError(s, i, "Unable to process the gift. Please try again.")
		return
	}

	b.respond(s, i, fmt.Sprintf("✅ %s sent **%d** Scrubbing Bubbles marching to %s",
		mention(identity), result.Amount, mention(recipient.ID)))
}

func (b *Bot) handleEnlist(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()
	identity := i.Member.User.ID

	if b.dropService == nil {
		b.respondWithError(s, i, "The bubbles are still warming up.")
		return
	}

	claimed, err := b.dropService.Claim(ctx, identity)
	if err != nil {
		log.WithField("error", err).Error("Failed to claim drops")
		b.respondWithError(s, i, "Unable to enlist the bubbles. Please try again.")
		return
	}
	if claimed == 0 {
		b.respondWithError(s, i, "There are no bubbles waiting to enlist.")
		return
	}

	account, err := b.accountService.GetAccount(ctx, identity)
	if err != nil {
		log.WithField("error", err).Error("Failed to get account")
		return
	}
	b.respond(s, i, fmt.Sprintf("%s enlisted **%d** bubbles! Their army is now **%d** strong.",
		mention(identity), claimed, account.Balance))
}

func (b *Bot) handleDischarge(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()
	identity := i.Member.User.ID
	amount := i.ApplicationCommandData().Options[0].IntValue()

	if b.dropService == nil {
		b.respondWithError(s, i, "The bubbles are still warming up.")
		return
	}

	if err := b.dropService.Discharge(ctx, identity, amount); err != nil {
		if errors.Is(err, ledger.ErrInsufficientFunds) {
			b.respondWithError(s, i, "Your army is not big enough for that discharge.")
			return
		}
		if errors.Is(err, ledger.ErrInvalidAmount) {
			b.respondWithError(s, i, "Amount must be positive.")
			return
		}
		log.WithField("error", err).Error("Failed to discharge")
		b.respondWithError(s, i, "Unable to discharge. Please try again.")
		return
	}

	b.respondEphemeral(s, i, fmt.Sprintf("Discharged %d bubbles onto the floor.", amount))
}

func (b *Bot) handleSteal(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()
	identity := i.Member.User.ID

	if b.dropService == nil {
		b.respondWithError(s, i, "The bubbles are still warming up.")
		return
	}

	var amount int64
	var victim *discordgo.User
	for _, opt := range i.ApplicationCommandData().Options {
		switch opt.Name {
		case "amount":
			amount = opt.IntValue()
		case "user":
			victim = opt.UserValue(s)
		}
	}

	if victim == nil || victim.ID == identity {
		b.respondWithError(s, i, "Pick somebody else's army.")
		return
	}

	// A victim who cannot cover the amount is silently spared
	if err := b.dropService.Steal(ctx, identity, victim.ID, amount); err != nil {
		if errors.Is(err, ledger.ErrInvalidAmount) {
			b.respondWithError(s, i, "Amount must be positive.")
			return
		}
		log.WithField("error", err).Error("Failed to steal")
		b.respondWithError(s, i, "The raid fell apart. Please try again.")
		return
	}

	b.respondEphemeral(s, i, "Raid dispatched.")
}

func (b *Bot) handleHeist(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()

	if b.dropService == nil {
		b.respondWithError(s, i, "The bubbles are still warming up.")
		return
	}

	if err := b.dropService.TemporaryTheft(ctx); err != nil {
		if errors.Is(err, ledger.ErrAlreadyLocked) {
			b.respondWithError(s, i, "A heist is already underway.")
			return
		}
		log.WithField("error", err).Error("Failed to run heist")
		b.respondWithError(s, i, "The heist was foiled. Please try again.")
		return
	}

	b.respondEphemeral(s, i, "The heist is on.")
}

func (b *Bot) handleStats(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()
	identity := i.Member.User.ID

	account, err := b.accountService.GetAccount(ctx, identity)
	if err != nil {
		log.WithField("error", err).Error("Failed to get account")
		b.respondWithError(s, i, "Unable to retrieve your stats. Please try again.")
		return
	}

	embed := statsEmbed(mention(identity), account)
	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
		},
	})
	if err != nil {
		log.WithField("error", err).Error("Failed to respond to stats command")
	}
}

func statsEmbed(name string, account *models.Account) *discordgo.MessageEmbed {
	stats := account.Stats
	return &discordgo.MessageEmbed{
		Title:       "Gambling Stats",
		Description: fmt.Sprintf("Army of %s", name),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Army Size", Value: fmt.Sprintf("%d", account.Balance), Inline: true},
			{Name: "Record Army", Value: fmt.Sprintf("%d", stats.RecordBalance), Inline: true},
			{Name: "Total Wagered", Value: fmt.Sprintf("%d", stats.TotalWagered), Inline: true},
			{Name: "Bets Won", Value: fmt.Sprintf("%d", stats.BetsWon), Inline: true},
			{Name: "Bets Lost", Value: fmt.Sprintf("%d", stats.BetsLost), Inline: true},
			{Name: "Most Won", Value: fmt.Sprintf("%d", stats.MostWon), Inline: true},
			{Name: "Most Lost", Value: fmt.Sprintf("%d", stats.MostLost), Inline: true},
			{Name: "Best Win Streak", Value: fmt.Sprintf("%d", stats.BestWinStreak), Inline: true},
			{Name: "Worst Loss Streak", Value: fmt.Sprintf("%d", stats.BestLossStreak), Inline: true},
		},
	}
}

func (b *Bot) respond(s *discordgo.Session, i *discordgo.InteractionCreate, message string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: message,
		},
	})
	if err != nil {
		log.WithField("error", err).Error("Failed to send response")
	}
}

func (b *Bot) respondEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, message string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: message,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		log.WithField("error", err).Error("Failed to send ephemeral response")
	}
}

func (b *Bot) respondWithError(s *discordgo.Session, i *discordgo.InteractionCreate, message string) {
	b.respondEphemeral(s, i, "❌ "+message)
}

func mention(identity string) string {
	return fmt.Sprintf("<@%s>", identity)
}
