// Package config handles application configuration from flags and environment variables.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"

	"city_bot/internal/model"
)

const (
	minCycles = 10
	maxCycles = 25
)

// ErrHelp is returned by Load when the usage text was requested and printed.
var ErrHelp = errors.New("help requested")

type rawCfg struct {
	// Telegram
	TelegramBotToken string `long:"token" env:"TELEGRAM_BOT_TOKEN" description:"Telegram bot API token (required)"`
	AllowedUsers     string `long:"allowed-users" env:"ALLOWED_USERS" description:"Comma-separated list of user IDs allowed to use the bot"`
	NotifyAt         string `long:"notify-at" env:"NOTIFY_AT" default:"12:00" description:"Local time of the daily prompt (HH:MM)"`

	// Storage and logging
	DatabasePath string `long:"db" env:"DATABASE_PATH" default:"./data/bot.db" description:"Path to the SQLite database"`
	LogLevel     string `long:"log-level" env:"LOG_LEVEL" default:"info" description:"Log level: debug, info, warn, error"`

	// Scraping
	CatalogPath    string        `long:"catalog" env:"CATALOG_PATH" description:"Category dictionary YAML file (built-in when empty)"`
	SourceURL      string        `long:"source-url" env:"SOURCE_URL" default:"https://www.yarnews.net/" description:"News feed page URL"`
	SourceFormat   string        `long:"source-format" env:"SOURCE_FORMAT" default:"html" choice:"html" choice:"rss" description:"Format of the source page"`
	Timezone       string        `long:"timezone" env:"TIMEZONE" default:"Europe/Moscow" description:"Timezone of the site's timestamps"`
	ChromePath     string        `long:"chrome-path" env:"CHROME_PATH" description:"Chrome executable (auto-detected when empty)"`
	UserAgent      string        `long:"user-agent" env:"USER_AGENT" description:"User agent for page requests"`
	RequestTimeout time.Duration `long:"request-timeout" env:"REQUEST_TIMEOUT" default:"30s" description:"Timeout of a single page request"`
	NewsCycles     int           `long:"news-cycles" env:"NEWS_CYCLES" default:"10" description:"Load-more cycles for the weekly news digest"`
	EventsCycles   int           `long:"events-cycles" env:"EVENTS_CYCLES" default:"25" description:"Load-more cycles for the weekly events digest"`
}

// Config holds the application configuration.
type Config struct {
	TelegramBotToken string
	DatabasePath     string
	LogLevel         string
	AllowedUsers     []int64
	NotifyAt         string

	CatalogPath    string
	SourceURL      string
	SourceFormat   string
	Timezone       string
	Location       *time.Location
	ChromePath     string
	UserAgent      string
	RequestTimeout time.Duration
	NewsCycles     int
	EventsCycles   int
}

// Load parses args and the environment into a Config.
func Load(args []string) (*Config, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)
	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil, ErrHelp
		}
		return nil, fmt.Errorf("parse configuration: %w", err)
	}

	if raw.TelegramBotToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	allowedUsers, err := parseUserIDs(raw.AllowedUsers)
	if err != nil {
		return nil, err
	}

	loc, err := time.LoadLocation(raw.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", raw.Timezone, err)
	}

	if _, err := time.Parse("15:04", raw.NotifyAt); err != nil {
		return nil, fmt.Errorf("invalid NOTIFY_AT %q, use HH:MM", raw.NotifyAt)
	}

	for name, n := range map[string]int{"NEWS_CYCLES": raw.NewsCycles, "EVENTS_CYCLES": raw.EventsCycles} {
		if n < minCycles || n > maxCycles {
			return nil, fmt.Errorf("%s must be between %d and %d, got %d", name, minCycles, maxCycles, n)
		}
	}

	if !slices.Contains([]string{model.FormatHTML, model.FormatRSS}, raw.SourceFormat) {
		return nil, fmt.Errorf("SOURCE_FORMAT must be %q or %q, got %q", model.FormatHTML, model.FormatRSS, raw.SourceFormat)
	}

	if raw.RequestTimeout <= 0 {
		return nil, fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}

	return &Config{
		TelegramBotToken: raw.TelegramBotToken,
		DatabasePath:     raw.DatabasePath,
		LogLevel:         raw.LogLevel,
		AllowedUsers:     allowedUsers,
		NotifyAt:         raw.NotifyAt,
		CatalogPath:      raw.CatalogPath,
		SourceURL:        raw.SourceURL,
		SourceFormat:     raw.SourceFormat,
		Timezone:         raw.Timezone,
		Location:         loc,
		ChromePath:       raw.ChromePath,
		UserAgent:        raw.UserAgent,
		RequestTimeout:   raw.RequestTimeout,
		NewsCycles:       raw.NewsCycles,
		EventsCycles:     raw.EventsCycles,
	}, nil
}

func parseUserIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		uid, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid user ID %q in ALLOWED_USERS: %w", s, err)
		}
		ids = append(ids, uid)
	}
	return ids, nil
}

// IsUserAllowed checks whether a user ID is in the allow list.
// Returns true if the allow list is empty (all users permitted).
func (c *Config) IsUserAllowed(userID int64) bool {
	if len(c.AllowedUsers) == 0 {
		return true
	}
	return slices.Contains(c.AllowedUsers, userID)
}
