package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"city_bot/internal/model"
)

const (
	cmdNews   = "news"
	cmdEvents = "events"

	cbNewsWeek   = "news_week"
	cbEventsWeek = "events_week"
	cbDaily      = "daily"
)

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil {
		return
	}
	chatID := cb.Message.Chat.ID

	callback := tgbotapi.NewCallback(cb.ID, "")
	if _, err := b.api.Request(callback); err != nil {
		b.log.Error("send callback ack", "error", err)
	}

	action, arg, ok := ParseCallbackData(cb.Data)
	if !ok {
		return
	}

	attrs := []any{"action", action, "arg", arg, "chat_id", chatID}
	if cb.From != nil {
		attrs = append(attrs, "user_id", cb.From.ID, "username", cb.From.UserName)
		if err := b.store.TouchUser(ctx, cb.From.ID, b.now()); err != nil {
			b.log.Warn("touch user", "user_id", cb.From.ID, "error", err)
		}
	}
	b.log.Info("callback", attrs...)

	switch action {
	case cmdNews:
		if category, ok := b.category(chatID, model.DomainNews, arg); ok {
			b.deliverRecent(ctx, chatID, model.DomainNews, category)
		}
	case cbNewsWeek:
		if category, ok := b.category(chatID, model.DomainNews, arg); ok {
			b.deliverWeek(ctx, chatID, model.DomainNews, category)
		}
	case cmdEvents:
		if category, ok := b.category(chatID, model.DomainEvents, arg); ok {
			b.deliverRecent(ctx, chatID, model.DomainEvents, category)
		}
	case cbEventsWeek:
		if category, ok := b.category(chatID, model.DomainEvents, arg); ok {
			b.deliverWeek(ctx, chatID, model.DomainEvents, category)
		}
	case cbDaily:
		switch model.Domain(arg) {
		case model.DomainNews:
			b.showMenu(chatID, model.DomainNews)
		case model.DomainEvents:
			b.showMenu(chatID, model.DomainEvents)
		}
	}
}
