package bot

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"jobalert_bot/internal/alert"
	"jobalert_bot/internal/config"
	"jobalert_bot/internal/match"
	"jobalert_bot/internal/model"
	"jobalert_bot/internal/storage"
)

// mockAPI captures everything the bot sends.
type mockAPI struct {
	sent []tgbotapi.Chattable
}

func (m *mockAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	m.sent = append(m.sent, c)
	return tgbotapi.Message{}, nil
}

func (m *mockAPI) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	ch := make(chan tgbotapi.Update)
	close(ch)
	return ch
}

func (m *mockAPI) StopReceivingUpdates() {}

// messages returns the text of every plain message sent so far.
func (m *mockAPI) messages() []string {
	var out []string
	for _, c := range m.sent {
		if msg, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, msg.Text)
		}
	}
	return out
}

func newTestBot(t *testing.T) (*Bot, *mockAPI, *storage.SQLite) {
	t.Helper()
	s, err := storage.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	api := &mockAPI{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	b := &Bot{
		api:   api,
		store: s,
		cfg:   &config.Config{FreeTierQuota: 5},
		log:   log,
	}
	b.driver = alert.New(s, match.New(s), b, log)
	return b, api, s
}

func newCommand(chatID int64, text string) *tgbotapi.Message {
	cmdLen := len(text)
	if i := strings.Index(text, " "); i >= 0 {
		cmdLen = i
	}
	return &tgbotapi.Message{
		Text: text,
		Chat: &tgbotapi.Chat{ID: chatID},
		Entities: []tgbotapi.MessageEntity{
			{Type: "bot_command", Offset: 0, Length: cmdLen},
		},
	}
}

func seedJobs(t *testing.T, s *storage.SQLite, ids ...string) {
	t.Helper()
	now := time.Now().UTC()
	jobs := make([]model.Job, 0, len(ids))
	for i, id := range ids {
		jobs = append(jobs, model.Job{
			ID:       id,
			Title:    "Job " + id,
			URL:      "https://example.com/" + id,
			Platform: model.PlatformRemoteOK,
			PostedAt: now.Add(-time.Duration(i) * time.Minute),
		})
	}
	if _, err := s.InsertJobs(context.Background(), jobs); err != nil {
		t.Fatalf("seed jobs: %v", err)
	}
}

func TestHandleStart(t *testing.T) {
	b, api, s := newTestBot(t)
	ctx := context.Background()

	b.handleCommand(ctx, newCommand(100, "/start"))

	user, err := s.GetUser(ctx, 100)
	if err != nil {
		t.Fatalf("user not created: %v", err)
	}
	if user.SubscriptionLevel != model.SubFree {
		t.Errorf("expected free tier, got %s", user.SubscriptionLevel)
	}
	if user.CreditsRemaining != 5 {
		t.Errorf("expected 5 credits, got %d", user.CreditsRemaining)
	}

	msgs := api.messages()
	if len(msgs) != 1 || !strings.Contains(msgs[0], "Welcome to Job Alerts!") {
		t.Errorf("unexpected welcome: %v", msgs)
	}
}

func TestHandleJobsDeliversAndReportsQuota(t *testing.T) {
	b, api, s := newTestBot(t)
	ctx := context.Background()
	seedJobs(t, s, "j_1", "j_2", "j_3")

	b.handleCommand(ctx, newCommand(100, "/jobs"))

	msgs := api.messages()
	// Three job cards plus the quota footer.
	if len(msgs) != 4 {
		t.Fatalf("expected 4 messages, got %d: %v", len(msgs), msgs)
	}
	for i := 0; i < 3; i++ {
		if !strings.Contains(msgs[i], "Platform: "+model.PlatformRemoteOK) {
			t.Errorf("message %d is not a job card: %q", i, msgs[i])
		}
	}
	if !strings.Contains(msgs[3], "You have 2 jobs left today") {
		t.Errorf("unexpected footer: %q", msgs[3])
	}

	user, _ := s.GetUser(ctx, 100)
	if user.CreditsRemaining != 2 {
		t.Errorf("expected 2 credits left, got %d", user.CreditsRemaining)
	}
}

func TestHandleJobsNoMatches(t *testing.T) {
	b, api, _ := newTestBot(t)

	b.handleCommand(context.Background(), newCommand(100, "/jobs"))

	msgs := api.messages()
	if len(msgs) != 1 || !strings.Contains(msgs[0], "No matching jobs found") {
		t.Errorf("unexpected reply: %v", msgs)
	}
}

func TestHandleJobsSecondCallSkipsSeen(t *testing.T) {
	b, api, s := newTestBot(t)
	ctx := context.Background()
	seedJobs(t, s, "j_1", "j_2")

	b.handleCommand(ctx, newCommand(100, "/jobs"))
	api.sent = nil

	b.handleCommand(ctx, newCommand(100, "/jobs"))

	msgs := api.messages()
	if len(msgs) != 1 || !strings.Contains(msgs[0], "No matching jobs found") {
		t.Errorf("expected no repeats, got %v", msgs)
	}
}

func TestHandleBudgetCommands(t *testing.T) {
	b, api, s := newTestBot(t)
	ctx := context.Background()

	b.handleCommand(ctx, newCommand(100, "/minbudget 1000"))
	b.handleCommand(ctx, newCommand(100, "/maxbudget $5000"))

	user, err := s.GetUser(ctx, 100)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if user.Filters.MinBudget == nil || *user.Filters.MinBudget != 1000 {
		t.Errorf("min budget not saved: %+v", user.Filters)
	}
	if user.Filters.MaxBudget == nil || *user.Filters.MaxBudget != 5000 {
		t.Errorf("max budget not saved: %+v", user.Filters)
	}

	msgs := api.messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 confirmations, got %v", msgs)
	}
	if !strings.Contains(msgs[0], "Minimum budget set to $1000") {
		t.Errorf("unexpected confirmation: %q", msgs[0])
	}
}

func TestHandleBudgetCommandInvalid(t *testing.T) {
	b, api, s := newTestBot(t)
	ctx := context.Background()

	b.handleCommand(ctx, newCommand(100, "/minbudget abc"))

	msgs := api.messages()
	if len(msgs) != 1 || !strings.Contains(msgs[0], "Usage: /minbudget") {
		t.Errorf("unexpected reply: %v", msgs)
	}
	if _, err := s.GetUser(ctx, 100); err == nil {
		t.Error("user should not be created on a rejected argument")
	}
}

func TestHandleSkillsCommand(t *testing.T) {
	b, _, s := newTestBot(t)
	ctx := context.Background()

	b.handleCommand(ctx, newCommand(100, "/skills Go, SQL, kubernetes"))

	user, err := s.GetUser(ctx, 100)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	want := []string{"go", "sql", "kubernetes"}
	if len(user.Filters.Skills) != len(want) {
		t.Fatalf("skills not saved: %+v", user.Filters.Skills)
	}
	for i, skill := range want {
		if user.Filters.Skills[i] != skill {
			t.Errorf("skill %d: want %q, got %q", i, skill, user.Filters.Skills[i])
		}
	}
}

func TestHandleUnknownCommand(t *testing.T) {
	b, api, _ := newTestBot(t)

	b.handleCommand(context.Background(), newCommand(100, "/frobnicate"))

	msgs := api.messages()
	if len(msgs) != 1 || !strings.Contains(msgs[0], "Unknown command") {
		t.Errorf("unexpected reply: %v", msgs)
	}
}

func TestUpgradeCallback(t *testing.T) {
	b, api, s := newTestBot(t)
	ctx := context.Background()

	cb := &tgbotapi.CallbackQuery{
		ID:      "cb1",
		Data:    "upgrade:month",
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 100}},
	}
	b.handleCallback(ctx, cb)

	user, err := s.GetUser(ctx, 100)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if user.SubscriptionLevel != model.SubPremium {
		t.Errorf("expected premium, got %s", user.SubscriptionLevel)
	}

	msgs := api.messages()
	if len(msgs) != 1 || !strings.Contains(msgs[0], "premium for 30 days") {
		t.Errorf("unexpected confirmation: %v", msgs)
	}
}

func TestUpgradeCallbackUnknownPlan(t *testing.T) {
	b, api, s := newTestBot(t)
	ctx := context.Background()

	cb := &tgbotapi.CallbackQuery{
		ID:      "cb1",
		Data:    "upgrade:lifetime",
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 100}},
	}
	b.handleCallback(ctx, cb)

	if msgs := api.messages(); len(msgs) != 0 {
		t.Errorf("unexpected reply for unknown plan: %v", msgs)
	}
	if _, err := s.GetUser(ctx, 100); err == nil {
		t.Error("user should not be created for an unknown plan")
	}
}

// brokenGetUserStore delegates everything except GetUser, which always
// fails.
type brokenGetUserStore struct {
	storage.Storage
}

func (b *brokenGetUserStore) GetUser(ctx context.Context, telegramID int64) (*model.User, error) {
	return nil, errors.New("database is locked")
}

func TestHandleJobsFooterReadFailureLogged(t *testing.T) {
	ctx := context.Background()
	s, err := storage.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	seedJobs(t, s, "j_1", "j_2")

	var logBuf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&logBuf, nil))
	api := &mockAPI{}
	b := &Bot{
		api:   api,
		store: &brokenGetUserStore{Storage: s},
		cfg:   &config.Config{FreeTierQuota: 5},
		log:   log,
	}
	b.driver = alert.New(s, match.New(s), b, log)

	b.handleCommand(ctx, newCommand(100, "/jobs"))

	// Jobs went out, the footer did not.
	msgs := api.messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 job cards, got %d: %v", len(msgs), msgs)
	}
	if !strings.Contains(logBuf.String(), "read user after delivery") {
		t.Errorf("footer read failure not logged:\n%s", logBuf.String())
	}
}

func TestFilterMenuButtons(t *testing.T) {
	b, api, _ := newTestBot(t)

	b.handleFilterMenu(100)

	if len(api.sent) != 1 {
		t.Fatalf("expected 1 message, got %d", len(api.sent))
	}
	msg, ok := api.sent[0].(tgbotapi.MessageConfig)
	if !ok {
		t.Fatalf("expected MessageConfig, got %T", api.sent[0])
	}
	markup, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if !ok {
		t.Fatalf("expected inline keyboard, got %T", msg.ReplyMarkup)
	}

	var data []string
	for _, row := range markup.InlineKeyboard {
		for _, btn := range row {
			if btn.CallbackData != nil {
				data = append(data, *btn.CallbackData)
			}
		}
	}
	want := []string{"filter:budget", "filter:type", "filter:skills", "filter:done"}
	if len(data) != len(want) {
		t.Fatalf("button data mismatch: want %v, got %v", want, data)
	}
	for i := range want {
		if data[i] != want[i] {
			t.Errorf("button %d: want %q, got %q", i, want[i], data[i])
		}
	}
}

func TestFilterCallbackJobType(t *testing.T) {
	b, api, _ := newTestBot(t)

	cb := &tgbotapi.CallbackQuery{
		ID:      "cb1",
		Data:    "filter:type",
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 100}},
	}
	b.handleCallback(context.Background(), cb)

	msgs := api.messages()
	if len(msgs) != 1 || !strings.Contains(msgs[0], "Job type filtering is coming soon") {
		t.Errorf("unexpected reply: %v", msgs)
	}
}

func TestFilterCallbackDone(t *testing.T) {
	b, api, _ := newTestBot(t)
	ctx := context.Background()

	cb := &tgbotapi.CallbackQuery{
		ID:      "cb1",
		Data:    "filter:done",
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 100}},
	}
	b.handleCallback(ctx, cb)

	msgs := api.messages()
	if len(msgs) != 1 || !strings.Contains(msgs[0], "No preferences set yet") {
		t.Errorf("unexpected reply: %v", msgs)
	}
}
