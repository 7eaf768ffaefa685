package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"city_bot/internal/model"
	"city_bot/internal/storage"
)

type mockSender struct {
	mu    sync.Mutex
	chats []int64
	fail  map[int64]bool
}

func (m *mockSender) SendDailyPrompt(chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail[chatID] {
		return errors.New("blocked by user")
	}
	m.chats = append(m.chats, chatID)
	return nil
}

func (m *mockSender) getChats() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int64(nil), m.chats...)
}

func newTestStore(t *testing.T) *storage.SQLite {
	t.Helper()
	s, err := storage.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func moscow(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return loc
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNextRun(t *testing.T) {
	loc := moscow(t)
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "before noon",
			now:  time.Date(2024, 3, 15, 9, 0, 0, 0, loc),
			want: time.Date(2024, 3, 15, 12, 0, 0, 0, loc),
		},
		{
			name: "exactly noon",
			now:  time.Date(2024, 3, 15, 12, 0, 0, 0, loc),
			want: time.Date(2024, 3, 16, 12, 0, 0, 0, loc),
		},
		{
			name: "after noon",
			now:  time.Date(2024, 3, 15, 18, 30, 0, 0, loc),
			want: time.Date(2024, 3, 16, 12, 0, 0, 0, loc),
		},
		{
			name: "utc input converted",
			now:  time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC),
			want: time.Date(2024, 3, 15, 12, 0, 0, 0, loc),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextRun(tt.now, 12, 0, loc)
			if !got.Equal(tt.want) {
				t.Errorf("NextRun() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseClock(t *testing.T) {
	h, m, err := ParseClock("07:45")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h != 7 || m != 45 {
		t.Errorf("ParseClock() = %d:%d", h, m)
	}
	for _, bad := range []string{"", "25:00", "noon", "12"} {
		if _, _, err := ParseClock(bad); err == nil {
			t.Errorf("ParseClock(%q) expected error", bad)
		}
	}
}

func TestNotifySkipsNewUsers(t *testing.T) {
	ctx := context.Background()
	loc := moscow(t)
	store := newTestStore(t)
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, loc)

	users := []model.User{
		{ID: 1, RegisteredAt: now.Add(-72 * time.Hour)},
		{ID: 2, RegisteredAt: now.Add(-time.Hour)},
		{ID: 3, RegisteredAt: now.Add(-25 * time.Hour)},
		{ID: 4, RegisteredAt: now.Add(-30 * 24 * time.Hour)},
	}
	for _, u := range users {
		if _, err := store.RegisterUser(ctx, &u); err != nil {
			t.Fatalf("register user: %v", err)
		}
	}

	sender := &mockSender{fail: map[int64]bool{4: true}}
	s, err := New(store, sender, "12:00", loc, discard())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	s.pause = 0
	s.SetClock(func() time.Time { return now })

	sent := s.notifyAll(ctx)
	if sent != 2 {
		t.Errorf("notifyAll() = %d, want 2", sent)
	}
	if diff := cmp.Diff([]int64{1, 3}, sender.getChats()); diff != "" {
		t.Errorf("notified chats mismatch (-want +got):\n%s", diff)
	}
}

func TestRunDue(t *testing.T) {
	ctx := context.Background()
	loc := moscow(t)
	store := newTestStore(t)
	if _, err := store.RegisterUser(ctx, &model.User{ID: 7, RegisteredAt: time.Date(2024, 1, 1, 0, 0, 0, 0, loc)}); err != nil {
		t.Fatal(err)
	}

	sender := &mockSender{}
	s, err := New(store, sender, "12:00", loc, discard())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	s.pause = 0

	now := time.Date(2024, 3, 15, 11, 59, 0, 0, loc)
	s.SetClock(func() time.Time { return now })
	s.next = NextRun(now, 12, 0, loc)

	s.runDue(ctx)
	if got := len(sender.getChats()); got != 0 {
		t.Fatalf("sent %d prompts before schedule", got)
	}

	now = time.Date(2024, 3, 15, 12, 0, 30, 0, loc)
	s.runDue(ctx)
	s.runDue(ctx)
	if diff := cmp.Diff([]int64{7}, sender.getChats()); diff != "" {
		t.Errorf("prompts mismatch (-want +got):\n%s", diff)
	}
	if want := time.Date(2024, 3, 16, 12, 0, 0, 0, loc); !s.next.Equal(want) {
		t.Errorf("next = %v, want %v", s.next, want)
	}
}

func TestNewRejectsBadTime(t *testing.T) {
	if _, err := New(nil, nil, "noon", time.UTC, discard()); err == nil {
		t.Error("expected error for invalid time")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	store := newTestStore(t)
	s, err := New(store, &mockSender{}, "12:00", time.UTC, discard())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	s.SetTickInterval(10 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
