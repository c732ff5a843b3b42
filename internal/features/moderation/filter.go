// Package moderation — filter.go содержит фильтр запрещённых слов.
package moderation

import "strings"

// WordFilter проверяет текст на запрещённые подстроки.
// Список слов задаётся один раз при создании и дальше не меняется,
// поэтому фильтр безопасен для любого числа одновременных вызовов.
type WordFilter struct {
	terms []string // уже в нижнем регистре
}

// NewWordFilter создаёт фильтр из списка запрещённых слов.
// Слова приводятся к нижнему регистру один раз здесь, а не на каждый вызов.
func NewWordFilter(words []string) *WordFilter {
	terms := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			terms = append(terms, w)
		}
	}
	return &WordFilter{terms: terms}
}

// Matches возвращает true, если текст содержит хотя бы одну запрещённую подстроку.
// Совпадение регистронезависимое и ПО ПОДСТРОКЕ: запрещённое слово внутри
// легитимного длинного слова тоже считается нарушением. Это осознанный
// компромисс политики, а не баг.
func (f *WordFilter) Matches(text string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, term := range f.terms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

// Terms возвращает количество слов в фильтре (для логов при старте).
func (f *WordFilter) Terms() int {
	return len(f.terms)
}
