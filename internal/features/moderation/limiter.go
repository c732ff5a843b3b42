// Package moderation — limiter.go реализует антиспам по скользящему окну.
// Состояние живёт только в памяти процесса: при рестарте окно начинается
// заново (fail-open — лучше пропустить флуд, чем заблокировать чат).
package moderation

import (
	"sync"
	"time"
)

// limiterKey — составной ключ (чат, пользователь).
// Каждый чат — независимый домен, поэтому одного user_id недостаточно.
type limiterKey struct {
	chatID int64
	userID int64
}

// limiterShard — изолированный сегмент состояния лимитера со своим мьютексом.
type limiterShard struct {
	mu       sync.Mutex
	messages map[limiterKey][]time.Time
	warned   map[limiterKey]time.Time
}

// SlidingWindow считает сообщения пользователя в скользящем окне времени.
// Дополнительно помнит, когда пользователю в последний раз выносилось
// предупреждение за флуд — повторный флуд внутри repeatWindow эскалируется в мут.
//
// Состояние шардировано тем же хэшем, что и keyedMutex: нарушитель,
// заваливший чат сообщениями, блокирует один шард, а не весь лимитер.
type SlidingWindow struct {
	shards [shardCount]limiterShard

	limit        int
	window       time.Duration
	repeatWindow time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewSlidingWindow создаёт лимитер и запускает фоновую очистку устаревших ключей.
func NewSlidingWindow(limit int, window, repeatWindow time.Duration) *SlidingWindow {
	sw := &SlidingWindow{
		limit:        limit,
		window:       window,
		repeatWindow: repeatWindow,
		stopCh:       make(chan struct{}),
	}
	for i := range sw.shards {
		sw.shards[i].messages = make(map[limiterKey][]time.Time)
		sw.shards[i].warned = make(map[limiterKey]time.Time)
	}
	go sw.cleanup()
	return sw
}

// shard возвращает сегмент, владеющий ключом.
func (sw *SlidingWindow) shard(key limiterKey) *limiterShard {
	idx := (uint64(key.chatID)*31 + uint64(key.userID)) & (shardCount - 1)
	return &sw.shards[idx]
}

// Close останавливает фоновую горутину очистки.
// Его надо вызывать на shutdown (иначе cleanup будет жить вечно).
func (sw *SlidingWindow) Close() {
	sw.stopOnce.Do(func() { close(sw.stopCh) })
}

// RecordAndCheck регистрирует сообщение и возвращает число сообщений в окне
// и признак превышения лимита.
//
// Алгоритм: выбрасываем записи старше now-window, добавляем now, сравниваем
// длину с лимитом. Если часы процесса прыгнут назад, старые записи могут
// задержаться в окне дольше положенного — бот станет строже, не мягче,
// это допустимая деградация.
func (sw *SlidingWindow) RecordAndCheck(chatID, userID int64, now time.Time) (int, bool) {
	key := limiterKey{chatID: chatID, userID: userID}
	s := sw.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-sw.window)

	var recent []time.Time
	for _, t := range s.messages[key] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}
	recent = append(recent, now)
	s.messages[key] = recent

	return len(recent), len(recent) > sw.limit
}

// ResetWindow сбрасывает окно пользователя. Вызывается после применения
// санкции, чтобы не наказывать за одну пачку сообщений дважды.
func (sw *SlidingWindow) ResetWindow(chatID, userID int64) {
	key := limiterKey{chatID: chatID, userID: userID}
	s := sw.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.messages, key)
}

// MarkWarned запоминает, что пользователю вынесено предупреждение за флуд.
func (sw *SlidingWindow) MarkWarned(chatID, userID int64, now time.Time) {
	key := limiterKey{chatID: chatID, userID: userID}
	s := sw.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.warned[key] = now
}

// RecentlyWarned сообщает, предупреждали ли пользователя за флуд
// в течение repeatWindow. Повторный флуд — эскалация в мут.
func (sw *SlidingWindow) RecentlyWarned(chatID, userID int64, now time.Time) bool {
	key := limiterKey{chatID: chatID, userID: userID}
	s := sw.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	at, ok := s.warned[key]
	if !ok {
		return false
	}
	return now.Sub(at) < sw.repeatWindow
}

// cleanup раз в 5 минут удаляет ключи без активности за 2 окна.
// Без этого карты растут бесконечно — по ключу на каждого когда-либо
// писавшего пользователя.
func (sw *SlidingWindow) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-sw.stopCh:
			return
		case <-ticker.C:
			sw.sweep(time.Now())
		}
	}
}

// sweep выполняет один проход очистки. Шарды чистятся по одному, чтобы
// не останавливать лимитер целиком. Вынесен отдельно для тестов.
func (sw *SlidingWindow) sweep(now time.Time) {
	cutoff := now.Add(-2 * sw.window)
	warnCutoff := now.Add(-2 * sw.repeatWindow)

	for i := range sw.shards {
		s := &sw.shards[i]
		s.mu.Lock()
		for key, times := range s.messages {
			idle := true
			for _, t := range times {
				if t.After(cutoff) {
					idle = false
					break
				}
			}
			if idle {
				delete(s.messages, key)
			}
		}
		for key, at := range s.warned {
			if at.Before(warnCutoff) {
				delete(s.warned, key)
			}
		}
		s.mu.Unlock()
	}
}
