// Package extract turns source pages into candidate feed records.
package extract

import (
	"bytes"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"city_bot/internal/model"
)

// DefaultPlaceholder is used when an item has no description.
const DefaultPlaceholder = "Подробности по ссылке."

var timestampLayouts = []string{
	"02.01.2006 в 15:04",
	"02.01.2006 at 15:04",
	"02.01.2006",
}

// ParseError describes why a single feed item was skipped.
type ParseError struct {
	Index  int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("item %d: %s", e.Index, e.Reason)
}

// Selectors are CSS selectors for the parts of a feed item. Title,
// Description and Date are fallback chains tried in order.
type Selectors struct {
	Item        string
	Title       []string
	Description []string
	Date        []string
	Image       string
}

// DefaultSelectors matches the markup of the city news feed.
func DefaultSelectors() Selectors {
	return Selectors{
		Item:        ".news-feed-item",
		Title:       []string{".news-name", "h2", "h3"},
		Description: []string{".news-excerpt", ".news-text", ".news-content p", ".description", "p"},
		Date:        []string{".news-date", ".date", "time"},
		Image:       "img",
	}
}

// Source turns a fetched page body into candidate records.
type Source interface {
	Records(body []byte) (iter.Seq[model.CandidateRecord], error)
}

// Extractor reads feed items from an HTML page.
type Extractor struct {
	origin      *url.URL
	sel         Selectors
	placeholder string
	loc         *time.Location
	missingDate func() time.Time
	log         *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithSelectors overrides the default selectors.
func WithSelectors(sel Selectors) Option {
	return func(e *Extractor) { e.sel = sel }
}

// WithMissingDate makes items without any date element use now() instead of
// being skipped. Items whose date text cannot be parsed are still skipped.
func WithMissingDate(now func() time.Time) Option {
	return func(e *Extractor) { e.missingDate = now }
}

// New creates an Extractor resolving relative links against origin.
func New(origin string, loc *time.Location, log *slog.Logger, opts ...Option) (*Extractor, error) {
	u, err := url.Parse(origin)
	if err != nil {
		return nil, fmt.Errorf("parse origin: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("origin %q is not absolute", origin)
	}
	e := &Extractor{
		origin:      u,
		sel:         DefaultSelectors(),
		placeholder: DefaultPlaceholder,
		loc:         loc,
		log:         log,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// ParseHTML parses an HTML document.
func ParseHTML(r io.Reader) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// Records parses body and returns its feed items.
func (e *Extractor) Records(body []byte) (iter.Seq[model.CandidateRecord], error) {
	doc, err := ParseHTML(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	return e.Extract(doc), nil
}

// Extract returns the feed items of doc in document order. Items that lack
// a title, a link or a usable date are logged and skipped.
func (e *Extractor) Extract(doc *goquery.Document) iter.Seq[model.CandidateRecord] {
	return func(yield func(model.CandidateRecord) bool) {
		items := doc.Find(e.sel.Item)
		for i := range items.Length() {
			rec, err := e.item(i, items.Eq(i))
			if err != nil {
				e.log.Debug("skip feed item", "error", err)
				continue
			}
			if !yield(rec) {
				return
			}
		}
	}
}

func (e *Extractor) item(i int, s *goquery.Selection) (model.CandidateRecord, error) {
	titleSel := firstMatch(s, e.sel.Title)
	if titleSel == nil {
		return model.CandidateRecord{}, &ParseError{Index: i, Reason: "no title element"}
	}
	title := cleanText(titleSel.Text())
	if title == "" {
		return model.CandidateRecord{}, &ParseError{Index: i, Reason: "empty title"}
	}

	href := linkOf(titleSel)
	if href == "" {
		return model.CandidateRecord{}, &ParseError{Index: i, Reason: "no link"}
	}
	link, err := e.resolve(href)
	if err != nil {
		return model.CandidateRecord{}, &ParseError{Index: i, Reason: err.Error()}
	}

	published, err := e.published(s)
	if err != nil {
		return model.CandidateRecord{}, &ParseError{Index: i, Reason: err.Error()}
	}

	desc := e.placeholder
	if d := firstMatch(s, e.sel.Description); d != nil {
		desc = cleanText(d.Text())
	}

	var image string
	if img := s.Find(e.sel.Image).First(); img.Length() > 0 {
		src, ok := img.Attr("src")
		if !ok || strings.TrimSpace(src) == "" {
			src, _ = img.Attr("data-src")
		}
		if strings.TrimSpace(src) != "" {
			if u, err := e.resolve(src); err == nil {
				image = u
			}
		}
	}

	return model.CandidateRecord{
		Title:       title,
		Link:        link,
		Description: desc,
		PublishedAt: published,
		ImageURL:    image,
	}, nil
}

func (e *Extractor) published(s *goquery.Selection) (time.Time, error) {
	d := firstMatch(s, e.sel.Date)
	if d == nil {
		if e.missingDate != nil {
			return e.missingDate().In(e.loc), nil
		}
		return time.Time{}, fmt.Errorf("no date element")
	}
	return ParseTimestamp(d.Text(), e.loc)
}

func (e *Extractor) resolve(ref string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return "", fmt.Errorf("parse link %q: %w", ref, err)
	}
	return e.origin.ResolveReference(u).String(), nil
}

// ParseTimestamp parses the feed's date formats, "DD.MM.YYYY в HH:MM"
// (or "at") and "DD.MM.YYYY", in loc. Anything else is an error.
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	s = cleanText(s)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// firstMatch returns the first selector in chain that matches a non-empty
// element inside s.
func firstMatch(s *goquery.Selection, chain []string) *goquery.Selection {
	for _, sel := range chain {
		found := s.Find(sel).First()
		if found.Length() > 0 && cleanText(found.Text()) != "" {
			return found
		}
	}
	return nil
}

// linkOf returns the href of the title element itself, of a link inside it,
// or of the link enclosing it.
func linkOf(title *goquery.Selection) string {
	if href, ok := title.Attr("href"); ok && strings.TrimSpace(href) != "" {
		return href
	}
	if href, ok := title.Find("a[href]").First().Attr("href"); ok && strings.TrimSpace(href) != "" {
		return href
	}
	if href, ok := title.Closest("a[href]").Attr("href"); ok && strings.TrimSpace(href) != "" {
		return href
	}
	return ""
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
