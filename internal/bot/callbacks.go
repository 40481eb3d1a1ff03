package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"jobalert_bot/internal/model"
)

// Upgrade plans. Payment confirmation is stubbed: the record is created
// as pending and the user is flipped to premium immediately.
var upgradePlans = map[string]struct {
	Stars int64
	Days  int
}{
	"month": {Stars: 200, Days: 30},
	"3m":    {Stars: 500, Days: 90},
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	data := cb.Data
	chatID := cb.Message.Chat.ID

	callback := tgbotapi.NewCallback(cb.ID, "")
	if _, err := b.api.Send(callback); err != nil {
		b.log.Error("send callback ack", "error", err)
	}

	parts := strings.SplitN(data, ":", 2)
	if len(parts) != 2 {
		return
	}
	action, arg := parts[0], parts[1]

	b.log.Info("callback", "action", action, "arg", arg, "chat_id", chatID)

	switch action {
	case "filter":
		b.handleFilterCallback(ctx, chatID, arg)
	case "upgrade":
		b.handleUpgradeCallback(ctx, chatID, arg)
	}
}

func (b *Bot) handleFilterCallback(ctx context.Context, chatID int64, arg string) {
	switch arg {
	case "budget":
		b.reply(chatID, "Set your budget range with /minbudget <amount> and /maxbudget <amount>.")
	case "type":
		b.reply(chatID, "Job type filtering is coming soon.")
	case "skills":
		b.reply(chatID, "Set your skills with /skills <skill, skill, ...>.")
	case "done":
		b.handleFilters(ctx, chatID)
	}
}

func (b *Bot) handleUpgradeCallback(ctx context.Context, chatID int64, arg string) {
	plan, ok := upgradePlans[arg]
	if !ok {
		return
	}

	user, err := b.store.GetOrCreateUser(ctx, chatID, b.cfg.FreeTierQuota)
	if err != nil {
		b.log.Error("get or create user", "chat_id", chatID, "error", err)
		b.reply(chatID, "Something went wrong, please try again.")
		return
	}

	payment := &model.Payment{
		UserID:           user.ID,
		AmountStars:      plan.Stars,
		SubscriptionDays: plan.Days,
		Status:           model.PaymentPending,
	}
	if err := b.store.CreatePayment(ctx, payment); err != nil {
		b.log.Error("create payment", "chat_id", chatID, "error", err)
		b.reply(chatID, "Something went wrong, please try again.")
		return
	}

	if err := b.store.UpdateUserSubscription(ctx, chatID, model.SubPremium); err != nil {
		b.log.Error("update subscription", "chat_id", chatID, "error", err)
		b.reply(chatID, "Something went wrong, please try again.")
		return
	}

	b.reply(chatID, fmt.Sprintf("You're now premium for %d days!\nUse /jobs to get started.", plan.Days))
}
