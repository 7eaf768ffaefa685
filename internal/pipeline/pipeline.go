// Package pipeline fetches the city feed and selects the items matching a
// category and date window.
package pipeline

import (
	"cmp"
	"context"
	"iter"
	"log/slog"
	"slices"
	"time"

	"city_bot/internal/catalog"
	"city_bot/internal/extract"
	"city_bot/internal/fetcher"
	"city_bot/internal/filter"
	"city_bot/internal/model"
	"city_bot/internal/window"
)

// Profile holds the per-domain behavior of a pipeline.
type Profile struct {
	Domain model.Domain
	URL    string
	Rules  *catalog.Set
	// RecentCap limits the number of results for the recent window.
	RecentCap int
	// CapEveryWindow applies RecentCap to every window kind.
	CapEveryWindow   bool
	SkipLatestInWeek bool
}

// NewsProfile returns the profile of the news feed: at most three recent
// items, and a weekly digest that leaves out today and yesterday.
func NewsProfile(url string, rules *catalog.Set) Profile {
	return Profile{
		Domain:           model.DomainNews,
		URL:              url,
		Rules:            rules,
		RecentCap:        3,
		SkipLatestInWeek: true,
	}
}

// EventsProfile returns the profile of the events feed: at most ten items
// for any window.
func EventsProfile(url string, rules *catalog.Set) Profile {
	return Profile{
		Domain:         model.DomainEvents,
		URL:            url,
		Rules:          rules,
		RecentCap:      10,
		CapEveryWindow: true,
	}
}

// Stats counts what happened to the items of one GetArticles call.
type Stats struct {
	Extracted   int
	Duplicates  int
	OffCategory int
	OutOfWindow int
	Returned    int
}

// Pipeline serves GetArticles for one content domain.
type Pipeline struct {
	profile   Profile
	page      fetcher.PageFetcher
	paginator fetcher.PaginatingFetcher
	source    extract.Source
	loc       *time.Location
	now       func() time.Time
	log       *slog.Logger
}

// New creates a Pipeline. The week window is fetched through paginator;
// when paginator is nil the plain page is used for every window.
func New(p Profile, page fetcher.PageFetcher, paginator fetcher.PaginatingFetcher, source extract.Source, loc *time.Location, log *slog.Logger) *Pipeline {
	return &Pipeline{
		profile:   p,
		page:      page,
		paginator: paginator,
		source:    source,
		loc:       loc,
		now:       time.Now,
		log:       log.With("domain", p.Domain),
	}
}

// SetClock overrides the time source used to evaluate windows.
func (p *Pipeline) SetClock(now func() time.Time) {
	p.now = now
}

// Rules returns the category set the pipeline classifies against.
func (p *Pipeline) Rules() *catalog.Set {
	return p.profile.Rules
}

// GetArticles returns the feed items of category published inside w, newest
// first. Every failure is logged and reported as an empty result.
func (p *Pipeline) GetArticles(ctx context.Context, category string, w window.Window) []model.ResultRecord {
	log := p.log.With("category", category, "window", w.String())

	if err := p.profile.Rules.Check(category); err != nil {
		log.Error("unsupported category", "error", err)
		return nil
	}

	body, err := p.fetch(ctx, w)
	if err != nil {
		log.Error("fetch feed", "url", p.profile.URL, "error", err)
		return nil
	}

	records, err := p.source.Records(body)
	if err != nil {
		log.Error("extract feed items", "url", p.profile.URL, "error", err)
		return nil
	}

	tf := window.Filter{
		Window:           w,
		Now:              p.now(),
		Location:         p.loc,
		SkipLatestInWeek: p.profile.SkipLatestInWeek,
	}

	var stats Stats
	var matched []model.ResultRecord
	for rec := range Dedupe(counted(records, &stats), &stats.Duplicates) {
		name, ok := filter.Classify(filter.Item{Title: rec.Title, Description: rec.Description}, p.profile.Rules, category)
		if !ok {
			stats.OffCategory++
			continue
		}
		if !tf.Accept(rec.PublishedAt) {
			stats.OutOfWindow++
			continue
		}
		matched = append(matched, model.ResultRecord{CandidateRecord: rec, MatchedCategory: name})
	}

	out := Assemble(matched, p.profile.Rules, category, p.limit(w))
	stats.Returned = len(out)
	log.Info("articles selected",
		"extracted", stats.Extracted,
		"duplicates", stats.Duplicates,
		"off_category", stats.OffCategory,
		"out_of_window", stats.OutOfWindow,
		"returned", stats.Returned,
	)
	return out
}

func (p *Pipeline) fetch(ctx context.Context, w window.Window) ([]byte, error) {
	if w.Kind == window.KindWeek && p.paginator != nil {
		return p.paginator.FetchAll(ctx, p.profile.URL)
	}
	return p.page.Fetch(ctx, p.profile.URL)
}

func (p *Pipeline) limit(w window.Window) int {
	if w.Kind == window.KindRecent || p.profile.CapEveryWindow {
		return p.profile.RecentCap
	}
	return 0
}

// Dedupe drops records whose link was already yielded, keeping the first.
// The seen set lives only as long as the returned sequence is iterated.
// If dropped is not nil it is incremented for every skipped record.
func Dedupe(records iter.Seq[model.CandidateRecord], dropped *int) iter.Seq[model.CandidateRecord] {
	return func(yield func(model.CandidateRecord) bool) {
		seen := make(map[string]struct{})
		for rec := range records {
			if _, ok := seen[rec.Link]; ok {
				if dropped != nil {
					*dropped++
				}
				continue
			}
			seen[rec.Link] = struct{}{}
			if !yield(rec) {
				return
			}
		}
	}
}

// Assemble orders records newest first, keeps at most limit of them
// (limit <= 0 keeps all) and attaches the display label of category.
func Assemble(records []model.ResultRecord, set *catalog.Set, category string, limit int) []model.ResultRecord {
	out := slices.Clone(records)
	slices.SortStableFunc(out, func(a, b model.ResultRecord) int {
		return cmp.Compare(b.PublishedAt.UnixNano(), a.PublishedAt.UnixNano())
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	label := set.Label(category)
	for i := range out {
		out[i].DisplayCategory = label
	}
	return out
}

func counted(records iter.Seq[model.CandidateRecord], stats *Stats) iter.Seq[model.CandidateRecord] {
	return func(yield func(model.CandidateRecord) bool) {
		for rec := range records {
			stats.Extracted++
			if !yield(rec) {
				return
			}
		}
	}
}
