package stats

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeStore struct {
	top     []*UserStats
	byUser  map[int64]*UserStats
	topErr  error
	records int
}

func (s *fakeStore) RecordMessage(_ context.Context, _, _ int64, _, _ string) error {
	s.records++
	return nil
}

func (s *fakeStore) GetTop(_ context.Context, _ int64, limit int) ([]*UserStats, error) {
	if s.topErr != nil {
		return nil, s.topErr
	}
	if len(s.top) > limit {
		return s.top[:limit], nil
	}
	return s.top, nil
}

func (s *fakeStore) GetByUser(_ context.Context, chatID, userID int64) (*UserStats, error) {
	if u, ok := s.byUser[userID]; ok {
		return u, nil
	}
	return &UserStats{ChatID: chatID, UserID: userID}, nil
}

func (s *fakeStore) CountActiveSince(context.Context, int64, int) (int, error) {
	return len(s.top), nil
}

func TestFormatTopEmpty(t *testing.T) {
	t.Parallel()

	svc := NewService(&fakeStore{})
	text, err := svc.FormatTop(context.Background(), -100)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if !strings.Contains(text, "никто ничего не написал") {
		t.Errorf("пустой топ отформатирован неверно: %q", text)
	}
}

func TestFormatTopMedals(t *testing.T) {
	t.Parallel()

	store := &fakeStore{top: []*UserStats{
		{UserID: 1, Username: "first", MessageCount: 1500},
		{UserID: 2, FirstName: "Второй", MessageCount: 900},
		{UserID: 3, Username: "third", MessageCount: 5},
		{UserID: 4, MessageCount: 1},
	}}
	svc := NewService(store)

	text, err := svc.FormatTop(context.Background(), -100)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	for _, want := range []string{"🥇 @first", "1.5K", "🥈", "🥉 @third", "4. Аноним", "сообщений"} {
		if !strings.Contains(text, want) {
			t.Errorf("в топе нет %q:\n%s", want, text)
		}
	}
}

func TestFormatTopStoreError(t *testing.T) {
	t.Parallel()

	svc := NewService(&fakeStore{topErr: errors.New("БД недоступна")})
	if _, err := svc.FormatTop(context.Background(), -100); err == nil {
		t.Error("ожидалась ошибка хранилища")
	}
}

func TestFormatProfile(t *testing.T) {
	t.Parallel()

	store := &fakeStore{byUser: map[int64]*UserStats{
		42: {UserID: 42, Username: "tester", MessageCount: 250},
	}}
	svc := NewService(store)

	text, err := svc.FormatProfile(context.Background(), -100, 42, 2, 3)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	for _, want := range []string{"@tester", "250", "2/3"} {
		if !strings.Contains(text, want) {
			t.Errorf("в профиле нет %q:\n%s", want, text)
		}
	}
}

func TestFormatProfileUnknownUser(t *testing.T) {
	t.Parallel()

	svc := NewService(&fakeStore{})
	text, err := svc.FormatProfile(context.Background(), -100, 999, 0, 3)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if !strings.Contains(text, "0") {
		t.Errorf("профиль без статистики отформатирован неверно: %q", text)
	}
}
