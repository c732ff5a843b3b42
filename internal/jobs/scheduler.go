// Package jobs управляет фоновыми задачами (cron).
// scheduler.go настраивает расписание: ночной декей предупреждений
// и утренняя сводка активности.
package jobs

import (
	"context"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"voltchat.ru/moderation-bot/internal/common"
	"voltchat.ru/moderation-bot/internal/config"
	"voltchat.ru/moderation-bot/internal/features/stats"
)

// WarningDecayer обнуляет предупреждения, не обновлявшиеся дольше заданного срока.
type WarningDecayer interface {
	DecayStale(ctx context.Context, olderThanDays int) (int64, error)
}

// warningDecayDays — через сколько дней без новых нарушений счётчик обнуляется.
const warningDecayDays = 30

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron         *cron.Cron
	cfg          *config.Config
	decayer      WarningDecayer
	statsService *stats.Service
	sendFunc     func(chatID int64, text string)
}

// NewScheduler создаёт планировщик задач с московским часовым поясом.
func NewScheduler(cfg *config.Config, decayer WarningDecayer, statsService *stats.Service, sendFunc func(chatID int64, text string)) *Scheduler {
	c := cron.New(cron.WithLocation(common.BotLocation()))

	return &Scheduler{
		cron:         c,
		cfg:          cfg,
		decayer:      decayer,
		statsService: statsService,
		sendFunc:     sendFunc,
	}
}

// Start запускает все фоновые задачи.
func (s *Scheduler) Start(ctx context.Context) {
	// Ночной декей предупреждений в 03:00 по Москве
	s.cron.AddFunc("0 3 * * *", func() {
		log.Info("[CRON] Декей устаревших предупреждений")
		decayed, err := s.decayer.DecayStale(ctx, warningDecayDays)
		if err != nil {
			log.WithError(err).Error("[CRON] Ошибка декея предупреждений")
			return
		}
		if decayed > 0 {
			log.WithField("decayed", decayed).Info("[CRON] Предупреждения обнулены по сроку давности")
		}
	})

	// Утренняя сводка активности в 10:00 по Москве
	s.cron.AddFunc("0 10 * * *", func() {
		log.Debug("[CRON] Сводка активности")
		text, err := s.statsService.FormatTop(ctx, s.cfg.FloodChatID)
		if err != nil {
			log.WithError(err).Error("[CRON] Ошибка получения сводки активности")
			return
		}
		s.sendFunc(s.cfg.FloodChatID, text)
	})

	s.cron.Start()
	log.Info("Планировщик задач запущен (Europe/Moscow)")
}

// Stop останавливает планировщик, дождавшись работающих задач.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}
