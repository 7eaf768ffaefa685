package pipeline

import (
	"cmp"
	"fmt"
	"log/slog"
	"time"

	"city_bot/internal/catalog"
	"city_bot/internal/extract"
	"city_bot/internal/fetcher"
	"city_bot/internal/model"
)

// Load-more cycles of the week window when Options leaves them at zero.
const (
	DefaultNewsCycles   = 10
	DefaultEventsCycles = 25
)

// Options holds the settings shared by the news and events pipelines.
type Options struct {
	URL string
	// Format is model.FormatHTML or model.FormatRSS.
	Format         string
	Location       *time.Location
	Client         fetcher.HTTPClient
	UserAgent      string
	RequestTimeout time.Duration
	ChromePath     string
	// NewsCycles and EventsCycles default per domain when zero.
	NewsCycles     int
	EventsCycles   int
}

// Build wires the news and events pipelines for one source. HTML sources
// get a browser paginator for the week window; feeds are served from the
// plain page.
func Build(o Options, cat *catalog.Catalog, log *slog.Logger) (news, events *Pipeline, err error) {
	page := fetcher.New(o.Client, o.UserAgent)
	page.SetTimeout(o.RequestTimeout)

	newsSource, err := newSource(o, log)
	if err != nil {
		return nil, nil, err
	}
	eventsSource, err := newSource(o, log, extract.WithMissingDate(time.Now))
	if err != nil {
		return nil, nil, err
	}

	news = New(NewsProfile(o.URL, cat.News), page, o.paginator(model.DomainNews, log), newsSource, o.Location, log)
	events = New(EventsProfile(o.URL, cat.Events), page, o.paginator(model.DomainEvents, log), eventsSource, o.Location, log)
	return news, events, nil
}

func newSource(o Options, log *slog.Logger, opts ...extract.Option) (extract.Source, error) {
	switch o.Format {
	case model.FormatRSS:
		return extract.NewFeed(o.Location, log), nil
	case model.FormatHTML, "":
		e, err := extract.New(o.URL, o.Location, log, opts...)
		if err != nil {
			return nil, fmt.Errorf("create extractor: %w", err)
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unknown source format %q", o.Format)
	}
}

func (o Options) paginator(d model.Domain, log *slog.Logger) fetcher.PaginatingFetcher {
	if o.Format == model.FormatRSS {
		return nil
	}
	return fetcher.NewBrowser(o.browserOptions(d), log)
}

func (o Options) browserOptions(d model.Domain) fetcher.BrowserOptions {
	opts := fetcher.DefaultBrowserOptions()
	opts.ChromePath = o.ChromePath
	if o.UserAgent != "" {
		opts.UserAgent = o.UserAgent
	}
	opts.Cycles = o.cycles(d)
	return opts
}

func (o Options) cycles(d model.Domain) int {
	if d == model.DomainEvents {
		return cmp.Or(o.EventsCycles, DefaultEventsCycles)
	}
	return cmp.Or(o.NewsCycles, DefaultNewsCycles)
}
