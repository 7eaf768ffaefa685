package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"city_bot/internal/catalog"
	"city_bot/internal/model"
	"city_bot/internal/pipeline"
	"city_bot/internal/window"
)

const (
	windowRecent = "recent"
	windowDate   = "date"
	windowWeek   = "week"
)

type rootOptions struct {
	sourceURL  string
	format     string
	timezone   string
	catalog    string
	userAgent  string
	timeout    time.Duration
	chromePath string
	cycles     int
	jsonOutput bool
	verbose    bool
}

type queryOptions struct {
	category string
	window   string
	date     string
	days     int
}

// newRootCmd builds the scrape command tree. client is the transport of the
// plain page fetcher.
func newRootCmd(client *http.Client) *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "scrape",
		Short:         "Run the news and events pipelines once and print the result",
		Long:          "scrape fetches the city feed, classifies its items and prints the records a bot user would get for the same query.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.sourceURL, "source-url", "https://www.yarnews.net/", "feed page URL")
	pf.StringVar(&opts.format, "format", model.FormatHTML, "source format: html or rss")
	pf.StringVar(&opts.timezone, "timezone", "Europe/Moscow", "timezone of the site's timestamps")
	pf.StringVar(&opts.catalog, "catalog", "", "category dictionary YAML file (built-in when empty)")
	pf.StringVar(&opts.userAgent, "user-agent", "", "user agent for page requests")
	pf.DurationVar(&opts.timeout, "timeout", 30*time.Second, "timeout of a single page request")
	pf.StringVar(&opts.chromePath, "chrome-path", "", "Chrome executable for the week window")
	pf.IntVar(&opts.cycles, "cycles", 0, fmt.Sprintf("load-more cycles for the week window (0 uses %d for news, %d for events)",
		pipeline.DefaultNewsCycles, pipeline.DefaultEventsCycles))
	pf.BoolVar(&opts.jsonOutput, "json", false, "print records as JSON")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "log pipeline details to stderr")

	root.AddCommand(
		newDomainCmd(model.DomainNews, "Query the news feed", opts, client),
		newDomainCmd(model.DomainEvents, "Query the events feed", opts, client),
	)
	return root
}

func newDomainCmd(d model.Domain, short string, root *rootOptions, client *http.Client) *cobra.Command {
	q := &queryOptions{}
	cmd := &cobra.Command{
		Use:   string(d),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runQuery(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), d, root, q, client)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&q.category, "category", "c", catalog.Any, "category name, or any")
	f.StringVarP(&q.window, "window", "w", windowRecent, "window: recent, date or week")
	f.StringVar(&q.date, "date", "", "date for --window date (DD.MM.YYYY)")
	f.IntVar(&q.days, "days", 2, "days for --window recent")
	return cmd
}

func runQuery(ctx context.Context, out, errOut io.Writer, d model.Domain, root *rootOptions, q *queryOptions, client *http.Client) error {
	loc, err := time.LoadLocation(root.timezone)
	if err != nil {
		return fmt.Errorf("load timezone: %w", err)
	}
	w, err := parseWindow(q, loc)
	if err != nil {
		return err
	}

	cat, err := catalog.Load(root.catalog)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	level := slog.LevelWarn
	if root.verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: level}))

	news, events, err := pipeline.Build(pipeline.Options{
		URL:            root.sourceURL,
		Format:         root.format,
		Location:       loc,
		Client:         client,
		UserAgent:      root.userAgent,
		RequestTimeout: root.timeout,
		ChromePath:     root.chromePath,
		NewsCycles:     root.cycles,
		EventsCycles:   root.cycles,
	}, cat, log)
	if err != nil {
		return err
	}

	p := news
	if d == model.DomainEvents {
		p = events
	}
	if err := p.Rules().Check(q.category); err != nil {
		return fmt.Errorf("category %q: %w", q.category, err)
	}

	records := p.GetArticles(ctx, q.category, w)
	if root.jsonOutput {
		return printJSON(out, records)
	}
	printText(out, records)
	return nil
}

func parseWindow(q *queryOptions, loc *time.Location) (window.Window, error) {
	switch q.window {
	case windowRecent:
		if q.days < 0 {
			return window.Window{}, fmt.Errorf("--days must not be negative")
		}
		return window.Recent(q.days), nil
	case windowDate:
		if q.date == "" {
			return window.Window{}, fmt.Errorf("--date is required for --window date")
		}
		d, err := window.ParseDate(q.date, loc)
		if err != nil {
			return window.Window{}, err
		}
		return window.SpecificDate(d), nil
	case windowWeek:
		return window.Week(), nil
	default:
		return window.Window{}, fmt.Errorf("unknown window %q, use recent, date or week", q.window)
	}
}

type jsonRecord struct {
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	Description string    `json:"description"`
	PublishedAt time.Time `json:"published_at"`
	ImageURL    string    `json:"image_url,omitempty"`
	Category    string    `json:"category"`
	Label       string    `json:"label"`
}

func printJSON(out io.Writer, records []model.ResultRecord) error {
	rows := make([]jsonRecord, 0, len(records))
	for _, r := range records {
		rows = append(rows, jsonRecord{
			Title:       r.Title,
			Link:        r.Link,
			Description: r.Description,
			PublishedAt: r.PublishedAt,
			ImageURL:    r.ImageURL,
			Category:    r.MatchedCategory,
			Label:       r.DisplayCategory,
		})
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

func printText(out io.Writer, records []model.ResultRecord) {
	if len(records) == 0 {
		_, _ = fmt.Fprintln(out, "no records")
		return
	}
	for _, r := range records {
		_, _ = fmt.Fprintf(out, "%s  [%s] %s\n    %s\n",
			r.PublishedAt.Format("02.01.2006 15:04"), r.DisplayCategory, r.Title, r.Link)
	}
}

func execute() int {
	if err := newRootCmd(http.DefaultClient).Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}
