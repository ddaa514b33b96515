package notify

import (
	"context"
	"fmt"
	"sort"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"surakshanet/internal/models"
)

const queueSize = 64

// BotAPI is the part of *tgbotapi.BotAPI the notifier uses
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// StatsSource answers the /stats command
type StatsSource interface {
	Stats(ctx context.Context) (*models.ReportStats, error)
}

// Telegram delivers high-risk alerts to one chat
type Telegram struct {
	api    BotAPI
	chatID int64
	stats  StatsSource
	queue  chan models.Alert
	logger *zap.Logger
}

// NewTelegram authorizes the bot; it returns nil, nil when the token is empty
func NewTelegram(token string, chatID int64, stats StatsSource, logger *zap.Logger) (*Telegram, error) {
	if token == "" {
		logger.Info("Telegram alerts are disabled (token is empty)")
		return nil, nil
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot API: %w", err)
	}
	logger.Info("Telegram bot authorized", zap.String("username", api.Self.UserName))

	return NewWithAPI(api, chatID, stats, logger), nil
}

// NewWithAPI builds a notifier around an existing client
func NewWithAPI(api BotAPI, chatID int64, stats StatsSource, logger *zap.Logger) *Telegram {
	return &Telegram{
		api:    api,
		chatID: chatID,
		stats:  stats,
		queue:  make(chan models.Alert, queueSize),
		logger: logger,
	}
}

// Notify queues an alert; it drops the alert when the queue is full
func (t *Telegram) Notify(alert models.Alert) {
	if t == nil {
		return
	}
	select {
	case t.queue <- alert:
	default:
		t.logger.Warn("Alert queue full, dropping alert",
			zap.String("module", alert.Module),
			zap.String("report_id", alert.ReportID))
	}
}

// Run delivers queued alerts and answers bot commands until ctx is done
func (t *Telegram) Run(ctx context.Context) error {
	if t == nil {
		return nil
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := t.api.GetUpdatesChan(u)
	defer t.api.StopReceivingUpdates()

	t.logger.Info("Telegram notifier started", zap.Int64("chat_id", t.chatID))

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("Telegram notifier shutting down...")
			return nil
		case alert := <-t.queue:
			t.send(t.chatID, FormatAlert(alert))
		case update, ok := <-updates:
			if !ok {
				updates = nil
				continue
			}
			if update.Message != nil && update.Message.IsCommand() {
				t.handleCommand(ctx, update.Message)
			}
		}
	}
}

func (t *Telegram) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	switch message.Command() {
	case "start", "help":
		t.send(chatID, "SurakshaNet alert bot.\n\n"+
			"High-risk reports from the analysis modules are posted to the configured chat.\n"+
			"/stats - archive summary\n"+
			"/chatid - show this chat's id")
	case "chatid":
		t.send(chatID, fmt.Sprintf("Chat id: %d", chatID))
	case "stats":
		if t.stats == nil {
			t.send(chatID, "The report archive is disabled.")
			return
		}
		stats, err := t.stats.Stats(ctx)
		if err != nil {
			t.logger.Error("Failed to load stats for bot", zap.Error(err))
			t.send(chatID, "Could not load archive stats.")
			return
		}
		t.send(chatID, FormatStats(stats))
	default:
		t.send(chatID, "Unknown command. Use /help.")
	}
}

func (t *Telegram) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := t.api.Send(msg); err != nil {
		t.logger.Error("Failed to send Telegram message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

var moduleTitles = map[string]string{
	models.ModuleFraud:        "Transaction fraud",
	models.ModuleDeepfake:     "Deepfake image",
	models.ModuleFacial:       "Facial match",
	models.ModuleSurveillance: "Surveillance event",
	models.ModuleVoice:        "Scam call",
	models.ModulePhishing:     "Phishing",
}

// FormatAlert renders an alert as plain text
func FormatAlert(a models.Alert) string {
	title, ok := moduleTitles[a.Module]
	if !ok {
		title = a.Module
	}

	var b strings.Builder
	fmt.Fprintf(&b, "⚠️ %s alert\n\n", title)
	fmt.Fprintf(&b, "Assessment: %s\n", a.Assessment)
	fmt.Fprintf(&b, "Confidence: %.0f%%\n", a.Confidence*100)
	if a.Subject != "" {
		fmt.Fprintf(&b, "Subject: %s\n", a.Subject)
	}
	fmt.Fprintf(&b, "Report: %s\n", a.ReportID)
	fmt.Fprintf(&b, "Time: %s", a.RaisedAt.Format("2006-01-02 15:04:05 MST"))
	return b.String()
}

// FormatStats renders archive counts, modules sorted by name
func FormatStats(s *models.ReportStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Reports archived: %d", s.Total)

	modules := make([]string, 0, len(s.ByModule))
	for m := range s.ByModule {
		modules = append(modules, m)
	}
	sort.Strings(modules)
	for _, m := range modules {
		fmt.Fprintf(&b, "\n%s: %d", m, s.ByModule[m])
	}
	return b.String()
}
