package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"city_bot/internal/catalog"
	"city_bot/internal/config"
	"city_bot/internal/model"
	"city_bot/internal/storage"
	"city_bot/internal/window"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// ArticleSource returns classified records for one content domain.
type ArticleSource interface {
	GetArticles(ctx context.Context, category string, w window.Window) []model.ResultRecord
	Rules() *catalog.Set
}

// Bot is the Telegram bot that serves news and events on request.
type Bot struct {
	api    telegramAPI
	store  storage.Storage
	cfg    *config.Config
	news   ArticleSource
	events ArticleSource
	log    *slog.Logger
	now    func() time.Time
}

// New creates a Bot with the given Telegram token, storage, config and sources.
func New(token string, store storage.Storage, cfg *config.Config, news, events ArticleSource, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	return &Bot{
		api:    api,
		store:  store,
		cfg:    cfg,
		news:   news,
		events: events,
		log:    log,
		now:    time.Now,
	}, nil
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
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if cb := update.CallbackQuery; cb != nil {
		if cb.From != nil && !b.cfg.IsUserAllowed(cb.From.ID) {
			return
		}
		b.handleCallback(ctx, cb)
		return
	}

	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}
	if !b.cfg.IsUserAllowed(msg.From.ID) {
		b.reply(msg.Chat.ID, "Доступ запрещён.")
		return
	}
	if err := b.store.TouchUser(ctx, msg.From.ID, b.now()); err != nil {
		b.log.Warn("touch user", "user_id", msg.From.ID, "error", err)
	}

	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}
	b.handleText(ctx, msg)
}

// SendMessage sends a plain text message to the given chat.
func (b *Bot) SendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	b.send(msg)
}

// SendDailyPrompt offers the news and events menus to a chat.
func (b *Bot) SendDailyPrompt(chatID int64) error {
	msg := tgbotapi.NewMessage(chatID, dailyPromptText)
	msg.ReplyMarkup = dailyKeyboard()
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send daily prompt: %w", err)
	}
	return nil
}

func (b *Bot) reply(chatID int64, text string) {
	b.SendMessage(chatID, text)
}

func (b *Bot) replyWithMarkup(chatID int64, text string, markup any) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = markup
	b.send(msg)
}

func (b *Bot) sendHTML(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	b.send(msg)
}

func (b *Bot) send(msg tgbotapi.MessageConfig) {
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send message", "chat_id", msg.ChatID, "error", err)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())
	chatID := msg.Chat.ID

	b.log.Debug("command", "cmd", cmd, "args", args, "chat_id", chatID)

	switch cmd {
	case "start":
		b.handleStart(ctx, msg)
	case "help":
		b.handleHelp(chatID)
	case cmdNews:
		b.handleNews(ctx, chatID, args)
	case "news_date":
		b.handleNewsDate(ctx, chatID, args)
	case cmdEvents:
		b.handleEvents(ctx, chatID, args)
	case "events_date":
		b.handleEventsDate(ctx, chatID, args)
	case "events_week":
		b.handleEventsWeek(ctx, chatID, args)
	case "cancel":
		b.clearState(ctx, chatID)
		b.replyWithMarkup(chatID, "Отменено.", mainKeyboard())
	default:
		b.reply(chatID, "Неизвестная команда. Список команд: /help")
	}
}
