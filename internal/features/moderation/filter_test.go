package moderation

import "testing"

func TestWordFilterMatches(t *testing.T) {
	t.Parallel()

	filter := NewWordFilter([]string{"казино", "promo", "  СТАВКИ  ", ""})

	tests := []struct {
		name string
		text string
		want bool
	}{
		{"прямое совпадение", "лучшее казино рунета", true},
		{"другой регистр", "КАЗИНО здесь", true},
		{"латиница в другом регистре", "PROMO код внутри", true},
		{"слово из конфига с пробелами", "ставки на спорт", true},
		// Совпадение по подстроке — осознанная политика, не баг
		{"запрещённое слово внутри длинного", "джойказино открылось", true},
		{"чистый текст", "привет, как дела?", false},
		{"пустой текст", "", false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := filter.Matches(tt.text); got != tt.want {
				t.Fatalf("Matches(%q) = %v, ожидалось %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestWordFilterEmptyList(t *testing.T) {
	t.Parallel()

	filter := NewWordFilter(nil)
	if filter.Matches("любой текст") {
		t.Fatal("пустой фильтр не должен ничего находить")
	}
	if filter.Terms() != 0 {
		t.Fatalf("Terms() = %d, ожидалось 0", filter.Terms())
	}
}

func TestWordFilterConcurrentCalls(t *testing.T) {
	t.Parallel()

	filter := NewWordFilter([]string{"спам"})
	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 1000; j++ {
				_ = filter.Matches("немного спама в тексте")
			}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}
}
