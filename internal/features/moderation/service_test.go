package moderation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"voltchat.ru/moderation-bot/internal/common"
	"voltchat.ru/moderation-bot/internal/config"
)

// memoryLedger — in-memory реализация Ledger для тестов сервиса.
type memoryLedger struct {
	mu     sync.Mutex
	counts map[[2]int64]int

	incrementErr error
	resetErr     error
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{counts: make(map[[2]int64]int)}
}

func (l *memoryLedger) Increment(_ context.Context, chatID, userID int64) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.incrementErr != nil {
		return 0, l.incrementErr
	}
	k := [2]int64{chatID, userID}
	l.counts[k]++
	return l.counts[k], nil
}

func (l *memoryLedger) Decrement(_ context.Context, chatID, userID int64) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	k := [2]int64{chatID, userID}
	if _, ok := l.counts[k]; !ok {
		return 0, common.ErrWarningNotFound
	}
	if l.counts[k] > 0 {
		l.counts[k]--
	}
	return l.counts[k], nil
}

func (l *memoryLedger) Reset(_ context.Context, chatID, userID int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.resetErr != nil {
		return l.resetErr
	}
	l.counts[[2]int64{chatID, userID}] = 0
	return nil
}

func (l *memoryLedger) Get(_ context.Context, chatID, userID int64) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	count, ok := l.counts[[2]int64{chatID, userID}]
	if !ok {
		return 0, common.ErrWarningNotFound
	}
	return count, nil
}

func (l *memoryLedger) ListByChat(_ context.Context, chatID int64) ([]*Warning, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []*Warning
	for k, count := range l.counts {
		if k[0] != chatID || count == 0 {
			continue
		}
		out = append(out, &Warning{ChatID: k[0], UserID: k[1], WarningCount: count})
	}
	return out, nil
}

func (l *memoryLedger) count(chatID, userID int64) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counts[[2]int64{chatID, userID}]
}

// recordingDispatcher фиксирует применённые действия вместо вызовов Telegram.
type recordingDispatcher struct {
	mu      sync.Mutex
	deletes []int
	notices []string
	mutes   []time.Time
	bans    int
	unbans  int
	kicks   int

	banErr  error
	muteErr error
}

func (d *recordingDispatcher) DeleteMessage(_ context.Context, _ int64, messageID int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deletes = append(d.deletes, messageID)
	return nil
}

func (d *recordingDispatcher) SendNotice(_ context.Context, chatID int64, text string, _ time.Duration) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notices = append(d.notices, fmt.Sprintf("%d|%s", chatID, text))
	return len(d.notices), nil
}

func (d *recordingDispatcher) Mute(_ context.Context, _, _ int64, until time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.muteErr != nil {
		return d.muteErr
	}
	d.mutes = append(d.mutes, until)
	return nil
}

func (d *recordingDispatcher) Unmute(context.Context, int64, int64) error { return nil }

func (d *recordingDispatcher) Ban(context.Context, int64, int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.banErr != nil {
		return d.banErr
	}
	d.bans++
	return nil
}

func (d *recordingDispatcher) Unban(context.Context, int64, int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.unbans++
	return nil
}

func (d *recordingDispatcher) Kick(ctx context.Context, chatID, userID int64) error {
	if err := d.Ban(ctx, chatID, userID); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.kicks++
	return nil
}

func (d *recordingDispatcher) noticeContaining(sub string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, n := range d.notices {
		if strings.Contains(n, sub) {
			return true
		}
	}
	return false
}

func (d *recordingDispatcher) banCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.bans
}

func (d *recordingDispatcher) deleteCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.deletes)
}

func testConfig() *config.Config {
	return &config.Config{
		WarnLimit:             3,
		StaffChatID:           -100900,
		MessageDeletionDelay:  5 * time.Second,
		SpamTimeWindow:        10 * time.Second,
		SpamMessageLimit:      5,
		SpamWarnDeletionDelay: 5 * time.Second,
		SpamRepeatWindow:      60 * time.Second,
		SpamMuteDuration:      10 * time.Minute,
	}
}

func newTestService(cfg *config.Config, ledger Ledger, disp Dispatcher) *Service {
	filter := NewWordFilter([]string{"казино", "спам"})
	limiter := NewSlidingWindow(cfg.SpamMessageLimit, cfg.SpamTimeWindow, cfg.SpamRepeatWindow)
	return NewService(cfg, filter, limiter, ledger, disp)
}

func msgAt(chatID, userID int64, messageID int, text string, at time.Time) IncomingMessage {
	return IncomingMessage{
		ChatID:    chatID,
		UserID:    userID,
		MessageID: messageID,
		Text:      text,
		At:        at,
	}
}

func TestProcessMessageContentEscalation(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	ledger := newMemoryLedger()
	disp := &recordingDispatcher{}
	svc := newTestService(cfg, ledger, disp)

	ctx := context.Background()
	base := time.Now()

	// Три нарушения с промежутками, чтобы не задеть лимитер
	for i := 0; i < 3; i++ {
		at := base.Add(time.Duration(i) * 20 * time.Second)
		err := svc.ProcessMessage(ctx, msgAt(-100, 42, 100+i, "тут казино реклама", at))
		if err != nil {
			t.Fatalf("сообщение %d: неожиданная ошибка: %v", i+1, err)
		}
	}

	if got := disp.deleteCount(); got != 3 {
		t.Fatalf("удалено %d сообщений, ожидалось 3", got)
	}
	if !disp.noticeContaining("1/3") || !disp.noticeContaining("2/3") {
		t.Errorf("нет предупреждений 1/3 и 2/3: %v", disp.notices)
	}
	if got := disp.banCount(); got != 1 {
		t.Errorf("банов %d, ожидался ровно 1", got)
	}
	if got := ledger.count(-100, 42); got != 0 {
		t.Errorf("после бана счётчик %d, ожидался сброс в 0", got)
	}
}

func TestProcessMessageBanFailureKeepsLedger(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	ledger := newMemoryLedger()
	disp := &recordingDispatcher{banErr: errors.New("not enough rights")}
	svc := newTestService(cfg, ledger, disp)

	ctx := context.Background()
	base := time.Now()

	for i := 0; i < 3; i++ {
		at := base.Add(time.Duration(i) * 20 * time.Second)
		if err := svc.ProcessMessage(ctx, msgAt(-100, 42, 100+i, "казино", at)); err != nil {
			t.Fatalf("сообщение %d: неожиданная ошибка: %v", i+1, err)
		}
	}

	// Бан не прошёл — счётчик остаётся на лимите, администрация уведомлена
	if got := ledger.count(-100, 42); got != 3 {
		t.Errorf("счётчик %d, ожидалось 3 (без сброса при неудачном бане)", got)
	}
	if !disp.noticeContaining("-100900|") {
		t.Errorf("нет уведомления администрации: %v", disp.notices)
	}
}

func TestProcessMessagePrivilegedBypass(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	ledger := newMemoryLedger()
	disp := &recordingDispatcher{}
	svc := newTestService(cfg, ledger, disp)

	ctx := context.Background()
	base := time.Now()

	// Админ и запрещённые слова пишет, и флудит — без последствий
	for i := 0; i < 10; i++ {
		m := msgAt(-100, 7, 200+i, "казино казино казино", base.Add(time.Duration(i)*100*time.Millisecond))
		m.Privileged = true
		if err := svc.ProcessMessage(ctx, m); err != nil {
			t.Fatalf("сообщение %d: неожиданная ошибка: %v", i+1, err)
		}
	}

	if got := disp.deleteCount(); got != 0 {
		t.Errorf("удалено %d сообщений привилегированного пользователя", got)
	}
	if got := ledger.count(-100, 7); got != 0 {
		t.Errorf("счётчик привилегированного пользователя %d, ожидался 0", got)
	}
}

func TestProcessMessageRateEscalation(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	ledger := newMemoryLedger()
	disp := &recordingDispatcher{}
	svc := newTestService(cfg, ledger, disp)

	ctx := context.Background()
	base := time.Now()

	// Шесть сообщений за три секунды: шестое превышает лимит 5/10с
	for i := 0; i < 6; i++ {
		at := base.Add(time.Duration(i) * 500 * time.Millisecond)
		if err := svc.ProcessMessage(ctx, msgAt(-100, 42, 300+i, "привет", at)); err != nil {
			t.Fatalf("сообщение %d: неожиданная ошибка: %v", i+1, err)
		}
	}

	if got := disp.deleteCount(); got != 1 {
		t.Fatalf("удалено %d сообщений, ожидалось 1 (только шестое)", got)
	}
	if !disp.noticeContaining("не отправляйте сообщения слишком часто") {
		t.Fatalf("нет временного предупреждения о флуде: %v", disp.notices)
	}
	if len(disp.mutes) != 0 {
		t.Fatalf("мут выдан на первом нарушении: %v", disp.mutes)
	}

	// Седьмое сообщение в течение минуты после предупреждения — мут
	seventh := base.Add(5 * time.Second)
	if err := svc.ProcessMessage(ctx, msgAt(-100, 42, 306, "привет", seventh)); err != nil {
		t.Fatalf("седьмое сообщение: неожиданная ошибка: %v", err)
	}

	if len(disp.mutes) != 1 {
		t.Fatalf("мутов %d, ожидался 1", len(disp.mutes))
	}
	wantUntil := seventh.Add(10 * time.Minute)
	if !disp.mutes[0].Equal(wantUntil) {
		t.Errorf("мут до %v, ожидалось %v", disp.mutes[0], wantUntil)
	}
	if !disp.noticeContaining("мут на 10 минут") {
		t.Errorf("нет уведомления о муте: %v", disp.notices)
	}

	// Флуд не трогает журнал предупреждений
	if got := ledger.count(-100, 42); got != 0 {
		t.Errorf("флуд записан в журнал: счётчик %d", got)
	}
}

func TestProcessMessageRateWindowResetAfterMute(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	ledger := newMemoryLedger()
	disp := &recordingDispatcher{}
	svc := newTestService(cfg, ledger, disp)

	ctx := context.Background()
	base := time.Now()

	for i := 0; i < 7; i++ {
		at := base.Add(time.Duration(i) * 500 * time.Millisecond)
		if err := svc.ProcessMessage(ctx, msgAt(-100, 42, 400+i, "привет", at)); err != nil {
			t.Fatalf("сообщение %d: неожиданная ошибка: %v", i+1, err)
		}
	}
	if len(disp.mutes) != 1 {
		t.Fatalf("мутов %d, ожидался 1", len(disp.mutes))
	}

	// Окно сброшено после мута: одиночное сообщение не наказывается повторно
	if err := svc.ProcessMessage(ctx, msgAt(-100, 42, 410, "привет", base.Add(4*time.Second))); err != nil {
		t.Fatalf("сообщение после мута: неожиданная ошибка: %v", err)
	}
	if len(disp.mutes) != 1 {
		t.Errorf("повторный мут той же пачки: мутов %d", len(disp.mutes))
	}
}

func TestProcessMessageStorageErrorAborts(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	ledger := newMemoryLedger()
	ledger.incrementErr = errors.New("соединение с БД потеряно")
	disp := &recordingDispatcher{}
	svc := newTestService(cfg, ledger, disp)

	err := svc.ProcessMessage(context.Background(), msgAt(-100, 42, 500, "казино", time.Now()))
	if err == nil {
		t.Fatal("ожидалась ошибка при недоступном журнале")
	}
	if disp.banCount() != 0 {
		t.Errorf("бан выполнен несмотря на ошибку журнала")
	}
	if disp.noticeContaining("Предупреждение") {
		t.Errorf("предупреждение выдано несмотря на ошибку журнала: %v", disp.notices)
	}
}

func TestProcessMessageContentAndRateSameMessage(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	ledger := newMemoryLedger()
	disp := &recordingDispatcher{}
	svc := newTestService(cfg, ledger, disp)

	ctx := context.Background()
	base := time.Now()

	// Пять чистых сообщений, шестое — и флуд, и запрещённое слово
	for i := 0; i < 5; i++ {
		at := base.Add(time.Duration(i) * 300 * time.Millisecond)
		if err := svc.ProcessMessage(ctx, msgAt(-100, 42, 600+i, "привет", at)); err != nil {
			t.Fatalf("сообщение %d: неожиданная ошибка: %v", i+1, err)
		}
	}
	if err := svc.ProcessMessage(ctx, msgAt(-100, 42, 605, "казино", base.Add(2*time.Second))); err != nil {
		t.Fatalf("шестое сообщение: неожиданная ошибка: %v", err)
	}

	// Сообщение удаляется один раз, журнал инкрементируется один раз,
	// и срабатывают оба уведомления
	if got := disp.deleteCount(); got != 1 {
		t.Errorf("удалений %d, ожидалось 1", got)
	}
	if got := ledger.count(-100, 42); got != 1 {
		t.Errorf("счётчик %d, ожидался 1", got)
	}
	if !disp.noticeContaining("1/3") {
		t.Errorf("нет контентного предупреждения: %v", disp.notices)
	}
	if !disp.noticeContaining("слишком часто") {
		t.Errorf("нет флуд-предупреждения: %v", disp.notices)
	}
}

func TestProcessMessageConcurrentViolations(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	ledger := newMemoryLedger()
	disp := &recordingDispatcher{}
	svc := newTestService(cfg, ledger, disp)

	ctx := context.Background()
	base := time.Now()

	// Три нарушения одного пользователя параллельно: ровно один бан
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := svc.ProcessMessage(ctx, msgAt(-100, 42, 700+i, "казино", base)); err != nil {
				t.Errorf("сообщение %d: неожиданная ошибка: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	if got := disp.banCount(); got != 1 {
		t.Errorf("банов %d, ожидался ровно 1", got)
	}
	if got := ledger.count(-100, 42); got != 0 {
		t.Errorf("после бана счётчик %d, ожидался 0", got)
	}
}

func TestWarnUserKicksAtLimit(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	ledger := newMemoryLedger()
	disp := &recordingDispatcher{}
	svc := newTestService(cfg, ledger, disp)

	ctx := context.Background()

	for i := 1; i <= 2; i++ {
		d, err := svc.WarnUser(ctx, -100, 42)
		if err != nil {
			t.Fatalf("warn %d: неожиданная ошибка: %v", i, err)
		}
		if d.Action != ActionWarn || d.WarnCount != i {
			t.Fatalf("warn %d: получено %v/%d", i, d.Action, d.WarnCount)
		}
	}

	d, err := svc.WarnUser(ctx, -100, 42)
	if err != nil {
		t.Fatalf("третий warn: неожиданная ошибка: %v", err)
	}
	if d.Action != ActionBan {
		t.Fatalf("третий warn: действие %v, ожидался бан", d.Action)
	}

	d2 := disp
	d2.mu.Lock()
	kicks := d2.kicks
	d2.mu.Unlock()
	if kicks != 1 {
		t.Errorf("киков %d, ожидался 1", kicks)
	}
	if got := ledger.count(-100, 42); got != 0 {
		t.Errorf("после кика счётчик %d, ожидался 0", got)
	}
}

func TestRemoveWarn(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	ledger := newMemoryLedger()
	disp := &recordingDispatcher{}
	svc := newTestService(cfg, ledger, disp)

	ctx := context.Background()

	if _, err := svc.RemoveWarn(ctx, -100, 42); !errors.Is(err, common.ErrWarningNotFound) {
		t.Fatalf("remwarn без записи: ошибка %v, ожидалась ErrWarningNotFound", err)
	}

	if _, err := ledger.Increment(ctx, -100, 42); err != nil {
		t.Fatal(err)
	}
	count, err := svc.RemoveWarn(ctx, -100, 42)
	if err != nil {
		t.Fatalf("remwarn: неожиданная ошибка: %v", err)
	}
	if count != 0 {
		t.Errorf("после remwarn счётчик %d, ожидался 0", count)
	}

	// Ниже нуля не опускается
	count, err = svc.RemoveWarn(ctx, -100, 42)
	if err != nil {
		t.Fatalf("повторный remwarn: неожиданная ошибка: %v", err)
	}
	if count != 0 {
		t.Errorf("счётчик ушёл ниже нуля: %d", count)
	}
}

func TestGetWarningsMissingUser(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	svc := newTestService(cfg, newMemoryLedger(), &recordingDispatcher{})

	count, err := svc.GetWarnings(context.Background(), -100, 999)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if count != 0 {
		t.Errorf("счётчик %d, ожидался 0 для неизвестного пользователя", count)
	}
}
