package bot

import (
	"fmt"
	"html"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"city_bot/internal/catalog"
	"city_bot/internal/model"
	"city_bot/internal/window"
)

const (
	buttonNews   = "📰 Новости"
	buttonEvents = "📅 События"

	allCategories = "Все категории"
	sourceName    = "ЯрНьюс"

	dailyPromptText = "📢 Появились новые новости и события! Хотите посмотреть?"
)

const welcomeText = `Здравствуйте! Я городской бот новостей и событий.

📰 Новости: последние новости города по категориям.
📅 События: ближайшие мероприятия.

Выберите раздел на клавиатуре ниже или воспользуйтесь /help.`

const helpText = `Новости:
/news [категория] — последние новости
/news_date <категория> <ДД.ММ.ГГГГ> — новости за дату

События:
/events [категория] — ближайшие события
/events_date <ДД.ММ.ГГГГ> — события за дату
/events_week [категория] — события за неделю

/cancel — отменить ввод даты

Без категории показываются все категории (any).`

// FormatRecord renders a record as an HTML Telegram message.
func FormatRecord(d model.Domain, r model.ResultRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b>\n\n", html.EscapeString(r.Title))
	if r.Description != "" {
		b.WriteString(html.EscapeString(r.Description))
		b.WriteString("\n\n")
	}
	if r.DisplayCategory != "" {
		fmt.Fprintf(&b, "<i>%s</i>\n", html.EscapeString(r.DisplayCategory))
	}
	if d == model.DomainEvents {
		fmt.Fprintf(&b, "Дата: %s\n", r.PublishedAt.Format(window.DateLayout))
	} else {
		fmt.Fprintf(&b, "%s\n", r.PublishedAt.Format("02.01.2006 15:04"))
	}
	fmt.Fprintf(&b, "Источник: <a href=\"%s\">%s</a>", html.EscapeString(r.Link), sourceName)
	return b.String()
}

// CategoryName returns the label shown for a category.
func CategoryName(set *catalog.Set, category string) string {
	if category == catalog.Any {
		return allCategories
	}
	return set.Label(category)
}

// FormatUnknownCategory lists the valid categories of a set.
func FormatUnknownCategory(name string, set *catalog.Set) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Неизвестная категория %q. Доступные категории:\n", name)
	for _, r := range set.Rules() {
		fmt.Fprintf(&b, "  %s — %s\n", r.Name, r.Label)
	}
	fmt.Fprintf(&b, "  %s — %s", catalog.Any, allCategories)
	return b.String()
}

// FormatNoRecent is sent when the latest view of a category is empty.
func FormatNoRecent(d model.Domain, name string) string {
	return fmt.Sprintf("😔 Пока нет новых %s по категории «%s».\n\n%s", noun(d), name, weekPrompt(d))
}

// FormatNoWeek is sent when the weekly digest of a category is empty.
func FormatNoWeek(d model.Domain, name string) string {
	return fmt.Sprintf("😔 Нет %s по категории «%s» за последнюю неделю.", noun(d), name)
}

// FormatNoDate is sent when a category has nothing on a date.
func FormatNoDate(d model.Domain, name string, day time.Time) string {
	return fmt.Sprintf("😔 Нет %s по категории «%s» за %s.", noun(d), name, day.Format(window.DateLayout))
}

// FormatWeekHeader precedes the weekly digest.
func FormatWeekHeader(d model.Domain, name string) string {
	if d == model.DomainEvents {
		return fmt.Sprintf("📅 События «%s» за неделю:", name)
	}
	return fmt.Sprintf("📑 Новости «%s» за последнюю неделю:", name)
}

// FormatDateHeader precedes the records of one date.
func FormatDateHeader(d model.Domain, name string, day time.Time) string {
	title := "📑 Новости"
	if d == model.DomainEvents {
		title = "📅 События"
	}
	return fmt.Sprintf("%s «%s» за %s:", title, name, day.Format(window.DateLayout))
}

func noun(d model.Domain) string {
	if d == model.DomainEvents {
		return "событий"
	}
	return "новостей"
}

func weekPrompt(d model.Domain) string {
	return fmt.Sprintf("👀 Хотите посмотреть %s за последнюю неделю?", weekNoun(d))
}

func weekNoun(d model.Domain) string {
	if d == model.DomainEvents {
		return "события"
	}
	return "новости"
}

func loadingText(d model.Domain) string {
	return fmt.Sprintf("⏳ Загружаю %s за неделю, это может занять минуту...", weekNoun(d))
}

func menuTitle(d model.Domain) string {
	if d == model.DomainEvents {
		return "Выберите категорию событий:"
	}
	return "Выберите категорию новостей:"
}

func mainKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(buttonNews),
			tgbotapi.NewKeyboardButton(buttonEvents),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

// categoryKeyboard lists the categories of a set, two per row, followed by
// the all-categories button.
func categoryKeyboard(d model.Domain, set *catalog.Set) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, r := range set.Rules() {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(r.Label, string(d)+":"+r.Name))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(allCategories, string(d)+":"+catalog.Any),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func weekKeyboard(d model.Domain, category string) tgbotapi.InlineKeyboardMarkup {
	label, action := "Новости за неделю", cbNewsWeek
	if d == model.DomainEvents {
		label, action = "События за неделю", cbEventsWeek
	}
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(label, action+":"+category),
	))
}

func dailyKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(buttonNews, cbDaily+":"+string(model.DomainNews)),
		tgbotapi.NewInlineKeyboardButtonData(buttonEvents, cbDaily+":"+string(model.DomainEvents)),
	))
}
