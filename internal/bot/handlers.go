package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"jobalert_bot/internal/model"
)

func (b *Bot) handleStart(ctx context.Context, chatID int64) {
	if _, err := b.store.GetOrCreateUser(ctx, chatID, b.cfg.FreeTierQuota); err != nil {
		b.log.Error("get or create user", "chat_id", chatID, "error", err)
		b.reply(chatID, "Something went wrong, please try again.")
		return
	}

	b.reply(chatID, fmt.Sprintf(`Welcome to Job Alerts!

Get notified about new jobs matching your skills and budget.

Commands:
/filter - set your job preferences
/jobs - get current job matches
/upgrade - go premium (unlimited alerts)
/help - show help

Free tier: %d jobs/day
Premium: unlimited + hourly alerts`, b.cfg.FreeTierQuota))
}

func (b *Bot) handleHelp(chatID int64) {
	b.reply(chatID, `Commands:
/start - initialize the bot
/jobs - show matching jobs
/filter - preference menu
/filters - show current preferences
/minbudget <amount> - set minimum budget
/maxbudget <amount> - set maximum budget
/skills <a, b, c> - set skill list
/upgrade - go premium
/help - this message

Free vs premium:
Free: 5 jobs/day, manual checks
Premium: unlimited, hourly alerts`)
}

func (b *Bot) handleJobs(ctx context.Context, chatID int64) {
	user, err := b.store.GetOrCreateUser(ctx, chatID, b.cfg.FreeTierQuota)
	if err != nil {
		b.log.Error("get or create user", "chat_id", chatID, "error", err)
		b.reply(chatID, "Something went wrong, please try again.")
		return
	}

	sent, err := b.driver.SendMatches(ctx, user)
	if err != nil {
		b.log.Error("send matches", "chat_id", chatID, "error", err)
		b.reply(chatID, "Something went wrong, please try again.")
		return
	}

	if sent == 0 {
		b.reply(chatID, "No matching jobs found. Try adjusting your filters with /filter")
		return
	}

	if !user.IsPremium() {
		// Remaining quota is read back after delivery so the footer
		// reflects the ledger, not an estimate.
		updated, err := b.store.GetUser(ctx, chatID)
		if err != nil {
			b.log.Error("read user after delivery", "chat_id", chatID, "error", err)
			return
		}
		b.reply(chatID, fmt.Sprintf("You have %d jobs left today (free tier).\nUpgrade for unlimited access: /upgrade", updated.CreditsRemaining))
	}
}

func (b *Bot) handleFilterMenu(chatID int64) {
	msg := tgbotapi.NewMessage(chatID, "Configure your preferences:")
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Budget range", "filter:budget"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Job type", "filter:type"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Skills", "filter:skills"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Done", "filter:done"),
		),
	)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send filter menu", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) handleFilters(ctx context.Context, chatID int64) {
	user, err := b.store.GetOrCreateUser(ctx, chatID, b.cfg.FreeTierQuota)
	if err != nil {
		b.log.Error("get or create user", "chat_id", chatID, "error", err)
		b.reply(chatID, "Something went wrong, please try again.")
		return
	}
	b.reply(chatID, FormatFilters(user.Filters))
}

func (b *Bot) handleMinBudget(ctx context.Context, chatID int64, args string) {
	amount, err := ParseBudgetArg(args)
	if err != nil {
		b.reply(chatID, "Usage: /minbudget <amount>")
		return
	}
	b.updateFilters(ctx, chatID, func(f *model.Filters) {
		f.MinBudget = &amount
	}, fmt.Sprintf("Minimum budget set to $%d.", amount))
}

func (b *Bot) handleMaxBudget(ctx context.Context, chatID int64, args string) {
	amount, err := ParseBudgetArg(args)
	if err != nil {
		b.reply(chatID, "Usage: /maxbudget <amount>")
		return
	}
	b.updateFilters(ctx, chatID, func(f *model.Filters) {
		f.MaxBudget = &amount
	}, fmt.Sprintf("Maximum budget set to $%d.", amount))
}

func (b *Bot) handleSkills(ctx context.Context, chatID int64, args string) {
	skills, err := ParseSkillsArg(args)
	if err != nil {
		b.reply(chatID, "Usage: /skills <skill, skill, ...>")
		return
	}
	b.updateFilters(ctx, chatID, func(f *model.Filters) {
		f.Skills = skills
	}, fmt.Sprintf("Skills saved: %s.\nSkill matching is coming soon; budget filters apply today.", FormatSkills(skills)))
}

func (b *Bot) updateFilters(ctx context.Context, chatID int64, apply func(*model.Filters), confirmation string) {
	user, err := b.store.GetOrCreateUser(ctx, chatID, b.cfg.FreeTierQuota)
	if err != nil {
		b.log.Error("get or create user", "chat_id", chatID, "error", err)
		b.reply(chatID, "Something went wrong, please try again.")
		return
	}

	filters := user.Filters
	apply(&filters)

	if err := b.store.UpdateUserFilters(ctx, chatID, filters); err != nil {
		b.log.Error("update filters", "chat_id", chatID, "error", err)
		b.reply(chatID, "Something went wrong, please try again.")
		return
	}
	b.reply(chatID, confirmation)
}

func (b *Bot) handleUpgrade(chatID int64) {
	msg := tgbotapi.NewMessage(chatID, `Premium features:
- unlimited job alerts
- hourly notifications
- advanced filtering

Choose a plan:`)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("1 month - 200 stars", "upgrade:month"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("3 months - 500 stars", "upgrade:3m"),
		),
	)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send upgrade menu", "chat_id", chatID, "error", err)
	}
}
