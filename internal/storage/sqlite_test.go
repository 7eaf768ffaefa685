package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"city_bot/internal/model"
)

func newTestDB(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRegisterUser(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	registered := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	u := &model.User{
		ID:           42,
		Username:     "ivan",
		FirstName:    "Иван",
		LastName:     "Петров",
		RegisteredAt: registered,
	}

	created, err := s.RegisterUser(ctx, u)
	if err != nil {
		t.Fatalf("RegisterUser() error: %v", err)
	}
	if !created {
		t.Error("first registration should report created")
	}

	later := registered.Add(48 * time.Hour)
	again := &model.User{ID: 42, Username: "ivan_p", FirstName: "Иван", RegisteredAt: later, LastActiveAt: later}
	created, err = s.RegisterUser(ctx, again)
	if err != nil {
		t.Fatalf("RegisterUser() error: %v", err)
	}
	if created {
		t.Error("second registration should not report created")
	}

	got, err := s.GetUser(ctx, 42)
	if err != nil {
		t.Fatalf("GetUser() error: %v", err)
	}
	want := &model.User{
		ID:           42,
		Username:     "ivan_p",
		FirstName:    "Иван",
		RegisteredAt: registered,
		LastActiveAt: later,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("GetUser() mismatch (-want +got):\n%s", diff)
	}
}

func TestGetUserNotFound(t *testing.T) {
	s := newTestDB(t)
	if _, err := s.GetUser(context.Background(), 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetUser() error = %v, want ErrNotFound", err)
	}
}

func TestListAndTouchUsers(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	for _, id := range []int64{30, 10, 20} {
		if _, err := s.RegisterUser(ctx, &model.User{ID: id, RegisteredAt: base}); err != nil {
			t.Fatalf("RegisterUser(%d) error: %v", id, err)
		}
	}

	touched := base.Add(time.Hour)
	if err := s.TouchUser(ctx, 20, touched); err != nil {
		t.Fatalf("TouchUser() error: %v", err)
	}

	users, err := s.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers() error: %v", err)
	}
	want := []model.User{
		{ID: 10, RegisteredAt: base, LastActiveAt: base},
		{ID: 20, RegisteredAt: base, LastActiveAt: touched},
		{ID: 30, RegisteredAt: base, LastActiveAt: base},
	}
	if diff := cmp.Diff(want, users); diff != "" {
		t.Errorf("ListUsers() mismatch (-want +got):\n%s", diff)
	}
}

func TestState(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	tests := []struct {
		name  string
		setup func()
		chat  int64
		want  string
	}{
		{
			name: "no state",
			chat: 1,
			want: "",
		},
		{
			name:  "saved state",
			setup: func() { _ = s.SaveState(ctx, 2, "news_date:weather") },
			chat:  2,
			want:  "news_date:weather",
		},
		{
			name:  "overwritten state",
			setup: func() { _ = s.SaveState(ctx, 3, "a"); _ = s.SaveState(ctx, 3, "b") },
			chat:  3,
			want:  "b",
		},
		{
			name:  "cleared state",
			setup: func() { _ = s.SaveState(ctx, 4, "a"); _ = s.ClearState(ctx, 4) },
			chat:  4,
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setup != nil {
				tt.setup()
			}
			got, err := s.GetState(ctx, tt.chat)
			if err != nil {
				t.Fatalf("GetState() error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("GetState() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestUserIsNew(t *testing.T) {
	now := time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name       string
		registered time.Time
		want       bool
	}{
		{"registered an hour ago", now.Add(-time.Hour), true},
		{"registered exactly a day ago", now.Add(-24 * time.Hour), false},
		{"registered last week", now.Add(-7 * 24 * time.Hour), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := model.User{RegisteredAt: tt.registered}
			if got := u.IsNew(now); got != tt.want {
				t.Errorf("IsNew() = %v, want %v", got, tt.want)
			}
		})
	}
}
