package bot

import (
	"cmp"
	"context"
	"errors"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"city_bot/internal/catalog"
	"city_bot/internal/model"
	"city_bot/internal/window"
)

const (
	// Windows of the "latest" views, in days.
	recentNewsDays   = 1
	recentEventsDays = 2
	// recentEventsShown caps the latest events sent to a chat.
	recentEventsShown = 3
)

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	now := b.now()
	u := &model.User{
		ID:           msg.From.ID,
		Username:     msg.From.UserName,
		FirstName:    msg.From.FirstName,
		LastName:     msg.From.LastName,
		RegisteredAt: now,
		LastActiveAt: now,
	}
	created, err := b.store.RegisterUser(ctx, u)
	if err != nil {
		b.log.Error("register user", "user_id", u.ID, "error", err)
	} else if created {
		b.log.Info("user registered", "user_id", u.ID, "username", u.Username)
	}

	b.replyWithMarkup(chatID, welcomeText, mainKeyboard())
}

func (b *Bot) handleHelp(chatID int64) {
	b.reply(chatID, helpText)
}

func (b *Bot) handleNews(ctx context.Context, chatID int64, args string) {
	if args == "" {
		b.showMenu(chatID, model.DomainNews)
		return
	}
	category, ok := b.category(chatID, model.DomainNews, ParseCategoryArg(args))
	if !ok {
		return
	}
	b.deliverRecent(ctx, chatID, model.DomainNews, category)
}

func (b *Bot) handleNewsDate(ctx context.Context, chatID int64, args string) {
	cat, date := ParseDateArgs(args)
	if cat == "" && date == "" {
		b.reply(chatID, "Использование: /news_date <категория> <ДД.ММ.ГГГГ>")
		return
	}
	category, ok := b.category(chatID, model.DomainNews, cmp.Or(cat, catalog.Any))
	if !ok {
		return
	}
	b.dateOrAsk(ctx, chatID, model.DomainNews, category, date)
}

func (b *Bot) handleEvents(ctx context.Context, chatID int64, args string) {
	if args == "" {
		b.showMenu(chatID, model.DomainEvents)
		return
	}
	category, ok := b.category(chatID, model.DomainEvents, ParseCategoryArg(args))
	if !ok {
		return
	}
	b.deliverRecent(ctx, chatID, model.DomainEvents, category)
}

func (b *Bot) handleEventsDate(ctx context.Context, chatID int64, args string) {
	cat, date := ParseDateArgs(args)
	category, ok := b.category(chatID, model.DomainEvents, cmp.Or(cat, catalog.Any))
	if !ok {
		return
	}
	b.dateOrAsk(ctx, chatID, model.DomainEvents, category, date)
}

func (b *Bot) handleEventsWeek(ctx context.Context, chatID int64, args string) {
	category, ok := b.category(chatID, model.DomainEvents, ParseCategoryArg(args))
	if !ok {
		return
	}
	b.deliverWeek(ctx, chatID, model.DomainEvents, category)
}

// handleText serves keyboard buttons and pending date prompts.
func (b *Bot) handleText(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	switch msg.Text {
	case buttonNews:
		b.clearState(ctx, chatID)
		b.showMenu(chatID, model.DomainNews)
		return
	case buttonEvents:
		b.clearState(ctx, chatID)
		b.showMenu(chatID, model.DomainEvents)
		return
	}

	state, err := b.store.GetState(ctx, chatID)
	if err != nil {
		b.log.Error("get state", "chat_id", chatID, "error", err)
	}
	d, category, ok := ParseDateState(state)
	if !ok {
		b.replyWithMarkup(chatID, "Выберите раздел в меню или воспользуйтесь /help.", mainKeyboard())
		return
	}

	date, err := window.ParseDate(msg.Text, b.cfg.Location)
	if err != nil {
		b.reply(chatID, "Неверный формат даты. Введите дату в формате ДД.ММ.ГГГГ или /cancel.")
		return
	}
	b.clearState(ctx, chatID)
	b.deliverDate(ctx, chatID, d, category, date)
}

func (b *Bot) showMenu(chatID int64, d model.Domain) {
	b.replyWithMarkup(chatID, menuTitle(d), categoryKeyboard(d, b.source(d).Rules()))
}

// dateOrAsk delivers the records of date, or stores a prompt for it when
// the date is missing.
func (b *Bot) dateOrAsk(ctx context.Context, chatID int64, d model.Domain, category, date string) {
	if date == "" {
		if err := b.store.SaveState(ctx, chatID, DateState(d, category)); err != nil {
			b.log.Error("save state", "chat_id", chatID, "error", err)
			b.reply(chatID, "Не удалось сохранить запрос, попробуйте позже.")
			return
		}
		b.reply(chatID, "Введите дату в формате ДД.ММ.ГГГГ:")
		return
	}

	day, err := window.ParseDate(date, b.cfg.Location)
	if err != nil {
		b.reply(chatID, "Неверный формат даты. Используйте ДД.ММ.ГГГГ.")
		return
	}
	b.deliverDate(ctx, chatID, d, category, day)
}

// category validates a category name against the domain's dictionary and
// reports the available names when it is unknown.
func (b *Bot) category(chatID int64, d model.Domain, name string) (string, bool) {
	set := b.source(d).Rules()
	if err := set.Check(name); err != nil {
		if errors.Is(err, catalog.ErrUnknownCategory) {
			b.reply(chatID, FormatUnknownCategory(name, set))
		}
		return "", false
	}
	return name, true
}

func (b *Bot) deliverRecent(ctx context.Context, chatID int64, d model.Domain, category string) {
	src := b.source(d)
	days := recentNewsDays
	if d == model.DomainEvents {
		days = recentEventsDays
	}
	records := src.GetArticles(ctx, category, window.Recent(days))
	if d == model.DomainEvents && len(records) > recentEventsShown {
		records = records[:recentEventsShown]
	}

	name := CategoryName(src.Rules(), category)
	if len(records) == 0 {
		b.replyWithMarkup(chatID, FormatNoRecent(d, name), weekKeyboard(d, category))
		return
	}
	for _, r := range records {
		b.sendHTML(chatID, FormatRecord(d, r))
	}
	b.replyWithMarkup(chatID, weekPrompt(d), weekKeyboard(d, category))
}

func (b *Bot) deliverWeek(ctx context.Context, chatID int64, d model.Domain, category string) {
	src := b.source(d)
	b.reply(chatID, loadingText(d))

	records := src.GetArticles(ctx, category, window.Week())
	name := CategoryName(src.Rules(), category)
	if len(records) == 0 {
		b.reply(chatID, FormatNoWeek(d, name))
		return
	}
	b.reply(chatID, FormatWeekHeader(d, name))
	for _, r := range records {
		b.sendHTML(chatID, FormatRecord(d, r))
	}
}

func (b *Bot) deliverDate(ctx context.Context, chatID int64, d model.Domain, category string, day time.Time) {
	src := b.source(d)
	records := src.GetArticles(ctx, category, window.SpecificDate(day))
	name := CategoryName(src.Rules(), category)
	if len(records) == 0 {
		b.reply(chatID, FormatNoDate(d, name, day))
		return
	}
	b.reply(chatID, FormatDateHeader(d, name, day))
	for _, r := range records {
		b.sendHTML(chatID, FormatRecord(d, r))
	}
}

func (b *Bot) source(d model.Domain) ArticleSource {
	if d == model.DomainEvents {
		return b.events
	}
	return b.news
}

func (b *Bot) clearState(ctx context.Context, chatID int64) {
	if err := b.store.ClearState(ctx, chatID); err != nil {
		b.log.Error("clear state", "chat_id", chatID, "error", err)
	}
}
