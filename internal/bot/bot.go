// Package bot implements the Telegram command surface and the
// notification channel.
package bot

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"jobalert_bot/internal/alert"
	"jobalert_bot/internal/config"
	"jobalert_bot/internal/match"
	"jobalert_bot/internal/model"
	"jobalert_bot/internal/storage"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot handles user commands and delivers job notifications.
type Bot struct {
	api    telegramAPI
	store  storage.Storage
	cfg    *config.Config
	driver *alert.Driver
	log    *slog.Logger
}

// New creates a Bot with the given Telegram token, storage, and config.
func New(token string, store storage.Storage, cfg *config.Config, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	b := &Bot{
		api:   api,
		store: store,
		cfg:   cfg,
		log:   log,
	}
	b.driver = alert.New(store, match.New(store), b, log)
	return b, nil
}

// Driver returns the delivery driver bound to this bot's notification
// channel, for use by the scheduled triggers.
func (b *Bot) Driver() *alert.Driver {
	return b.driver
}

// Run starts the bot's long-polling loop, blocking until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update := <-updates:
			if update.CallbackQuery != nil {
				b.handleCallback(ctx, update.CallbackQuery)
				continue
			}
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			b.handleCommand(ctx, update.Message)
		}
	}
}

// SendJob delivers a full job card to the given chat.
func (b *Bot) SendJob(chatID int64, job model.Job) error {
	return b.send(chatID, FormatJob(job))
}

// SendJobAlert delivers the compact form used by scheduled alerts.
func (b *Bot) SendJobAlert(chatID int64, job model.Job) error {
	return b.send(chatID, FormatJobAlert(job))
}

func (b *Bot) send(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func (b *Bot) reply(chatID int64, text string) {
	if err := b.send(chatID, text); err != nil {
		b.log.Error("send reply", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	args := msg.CommandArguments()
	chatID := msg.Chat.ID

	b.log.Debug("command", "cmd", cmd, "chat_id", chatID)

	switch cmd {
	case "start":
		b.handleStart(ctx, chatID)
	case "help":
		b.handleHelp(chatID)
	case "jobs":
		b.handleJobs(ctx, chatID)
	case "filter":
		b.handleFilterMenu(chatID)
	case "filters":
		b.handleFilters(ctx, chatID)
	case "minbudget":
		b.handleMinBudget(ctx, chatID, args)
	case "maxbudget":
		b.handleMaxBudget(ctx, chatID, args)
	case "skills":
		b.handleSkills(ctx, chatID, args)
	case "upgrade":
		b.handleUpgrade(chatID)
	default:
		b.reply(chatID, "Unknown command. Use /help for a list of commands.")
	}
}
