package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"

	"city_bot/internal/model"
)

func TestDefault(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("Default() error: %v", err)
	}

	var news []string
	for _, r := range c.News.Rules() {
		news = append(news, r.Name)
	}
	wantNews := []string{"general", "transport", "construction", "culture", "weather", "administration"}
	if diff := cmp.Diff(wantNews, news); diff != "" {
		t.Errorf("news order mismatch (-want +got):\n%s", diff)
	}

	var events []string
	for _, r := range c.Events.Rules() {
		events = append(events, r.Name)
	}
	wantEvents := []string{"culture", "sport", "education", "entertainment", "exhibitions", "concerts"}
	if diff := cmp.Diff(wantEvents, events); diff != "" {
		t.Errorf("events order mismatch (-want +got):\n%s", diff)
	}

	weather, ok := c.News.Rule("weather")
	if !ok {
		t.Fatal("weather rule missing")
	}
	if !slices.Contains(weather.Keywords, "дождь") {
		t.Error("weather keywords should contain дождь")
	}
	for _, kw := range []string{"авария", "дтп", "бпла"} {
		if !slices.Contains(weather.ExcludeKeywords, kw) {
			t.Errorf("weather exclude keywords should contain %q", kw)
		}
	}

	sport, _ := c.Events.Rule("sport")
	for _, kw := range []string{"травма", "пожар"} {
		if !slices.Contains(sport.ExcludeKeywords, kw) {
			t.Errorf("sport exclude keywords should contain %q", kw)
		}
	}

	if c.Domain(model.DomainEvents) != c.Events {
		t.Error("Domain(events) should return the events set")
	}
}

func TestParseValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "invalid yaml",
			yaml: "news: [",
		},
		{
			name: "no categories",
			yaml: "news:\n  categories: []\nevents:\n  categories: [{name: a, keywords: [x]}]\n",
		},
		{
			name: "missing name",
			yaml: "news:\n  categories: [{keywords: [x]}]\nevents:\n  categories: [{name: a, keywords: [x]}]\n",
		},
		{
			name: "no keywords",
			yaml: "news:\n  categories: [{name: a}]\nevents:\n  categories: [{name: a, keywords: [x]}]\n",
		},
		{
			name: "duplicate name",
			yaml: "news:\n  categories: [{name: a, keywords: [x]}, {name: a, keywords: [y]}]\nevents:\n  categories: [{name: a, keywords: [x]}]\n",
		},
		{
			name: "reserved name",
			yaml: "news:\n  categories: [{name: any, keywords: [x]}]\nevents:\n  categories: [{name: a, keywords: [x]}]\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.yaml)); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestParseNormalizes(t *testing.T) {
	data := `
news:
  default_label: "Новости"
  categories:
    - name: weather
      keywords: ["  Дождь ", ""]
      exclude_keywords: [АВАРИЯ]
events:
  default_label: "Мероприятие"
  shared_exclude_keywords: [Пожар, авария]
  categories:
    - name: sport
      label: "Спорт"
      keywords: [Матч]
      exclude_keywords: [Авария]
`
	c, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	want := Rule{Name: "weather", Label: "weather", Keywords: []string{"дождь"}, ExcludeKeywords: []string{"авария"}}
	got, _ := c.News.Rule("weather")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("news rule mismatch (-want +got):\n%s", diff)
	}

	want = Rule{Name: "sport", Label: "Спорт", Keywords: []string{"матч"}, ExcludeKeywords: []string{"авария", "пожар"}}
	got, _ = c.Events.Rule("sport")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("events rule mismatch (-want +got):\n%s", diff)
	}
}

func TestSetLabelAndCheck(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("Default() error: %v", err)
	}

	if got := c.News.Label("weather"); got != "Погода" {
		t.Errorf("Label(weather) = %q", got)
	}
	if got := c.Events.Label(Any); got != "Мероприятие 📅" {
		t.Errorf("Label(any) = %q, want default label", got)
	}
	if err := c.News.Check(Any); err != nil {
		t.Errorf("Check(any) error: %v", err)
	}
	if err := c.News.Check("sport"); !errors.Is(err, ErrUnknownCategory) {
		t.Errorf("Check(sport) = %v, want ErrUnknownCategory", err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "categories.yaml")
	data := "news:\n  categories: [{name: a, keywords: [x]}]\nevents:\n  categories: [{name: b, keywords: [y]}]\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if _, ok := c.Events.Rule("b"); !ok {
		t.Error("rule b missing")
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	if _, err := Load(""); err != nil {
		t.Errorf("Load(\"\") error: %v", err)
	}
}
