package extract

import (
	"bytes"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"city_bot/internal/model"
)

// FeedExtractor reads candidate records from an RSS or Atom document.
type FeedExtractor struct {
	placeholder string
	loc         *time.Location
	log         *slog.Logger
}

// NewFeed creates a FeedExtractor.
func NewFeed(loc *time.Location, log *slog.Logger) *FeedExtractor {
	return &FeedExtractor{placeholder: DefaultPlaceholder, loc: loc, log: log}
}

// Records parses body as a feed and returns its items in feed order.
func (f *FeedExtractor) Records(body []byte) (iter.Seq[model.CandidateRecord], error) {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	return func(yield func(model.CandidateRecord) bool) {
		for i, item := range feed.Items {
			rec, err := f.item(i, item)
			if err != nil {
				f.log.Debug("skip feed item", "error", err)
				continue
			}
			if !yield(rec) {
				return
			}
		}
	}, nil
}

func (f *FeedExtractor) item(i int, item *gofeed.Item) (model.CandidateRecord, error) {
	title := cleanText(item.Title)
	if title == "" {
		return model.CandidateRecord{}, &ParseError{Index: i, Reason: "empty title"}
	}
	link := strings.TrimSpace(item.Link)
	if link == "" {
		return model.CandidateRecord{}, &ParseError{Index: i, Reason: "no link"}
	}

	var published time.Time
	switch {
	case item.PublishedParsed != nil:
		published = *item.PublishedParsed
	case item.UpdatedParsed != nil:
		published = *item.UpdatedParsed
	default:
		return model.CandidateRecord{}, &ParseError{Index: i, Reason: "no publication date"}
	}

	desc := cleanText(item.Description)
	if desc == "" {
		desc = f.placeholder
	}

	var image string
	if item.Image != nil {
		image = item.Image.URL
	}
	if image == "" {
		for _, enc := range item.Enclosures {
			if strings.HasPrefix(enc.Type, "image/") {
				image = enc.URL
				break
			}
		}
	}

	return model.CandidateRecord{
		Title:       title,
		Link:        link,
		Description: desc,
		PublishedAt: published.In(f.loc),
		ImageURL:    image,
	}, nil
}
