package filter

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"city_bot/internal/catalog"
)

const testCatalog = `
news:
  categories:
    - name: transport
      keywords: [автобус, трамвай]
      exclude_keywords: [ремонт]
    - name: weather
      keywords: [дождь, снег]
      exclude_keywords: [авария]
    - name: culture
      keywords: [театр, снег]
events:
  categories:
    - name: sport
      keywords: [матч]
`

func testSet(t *testing.T) *catalog.Set {
	t.Helper()
	c, err := catalog.Parse([]byte(testCatalog))
	if err != nil {
		t.Fatalf("parse catalog: %v", err)
	}
	return c.News
}

func TestClassify(t *testing.T) {
	set := testSet(t)

	tests := []struct {
		name     string
		item     Item
		category string
		want     string
		wantOK   bool
	}{
		{
			name:     "keyword in title",
			item:     Item{Title: "Завтра ожидается Дождь"},
			category: "weather",
			want:     "weather",
			wantOK:   true,
		},
		{
			name:     "keyword in description",
			item:     Item{Title: "Прогноз", Description: "Во вторник пойдет СНЕГ"},
			category: "weather",
			want:     "weather",
			wantOK:   true,
		},
		{
			name:     "exclude keyword wins over keyword",
			item:     Item{Title: "Погода", Description: "Дождь стал причиной аварии, авария на мосту"},
			category: "weather",
			wantOK:   false,
		},
		{
			name:     "exclude keyword in title",
			item:     Item{Title: "Ремонт трамвайных путей", Description: "Трамвай пойдет в объезд"},
			category: "transport",
			wantOK:   false,
		},
		{
			name:     "no keyword",
			item:     Item{Title: "Открылась новая библиотека"},
			category: "weather",
			wantOK:   false,
		},
		{
			name:     "unknown category",
			item:     Item{Title: "Дождь"},
			category: "sport",
			wantOK:   false,
		},
		{
			name:     "any picks first declared match",
			item:     Item{Title: "Снег в театре"},
			category: catalog.Any,
			want:     "weather",
			wantOK:   true,
		},
		{
			name:     "any ignores exclude keywords",
			item:     Item{Title: "Ремонт автобуса"},
			category: catalog.Any,
			want:     "transport",
			wantOK:   true,
		},
		{
			name:     "any without match",
			item:     Item{Title: "Новости дня"},
			category: catalog.Any,
			wantOK:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Classify(tt.item, set, tt.category)
			if ok != tt.wantOK {
				t.Fatalf("Classify() ok = %v, want %v", ok, tt.wantOK)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Classify() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestClassifyDefaultWeatherScenario(t *testing.T) {
	c, err := catalog.Default()
	if err != nil {
		t.Fatalf("default catalog: %v", err)
	}
	item := Item{
		Title:       "Непогода в Ярославле",
		Description: "Сильный дождь, на перекрестке произошла авария",
	}
	if _, ok := Classify(item, c.News, "weather"); ok {
		t.Error("item with exclude keyword classified as weather")
	}
}
