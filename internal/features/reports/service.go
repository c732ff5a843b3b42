// Package reports — жалобы участников на сообщения (/report) и вызов
// администрации (/admin). service.go формирует карточку жалобы.
package reports

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"voltchat.ru/moderation-bot/internal/common"
)

// reportTextLimit — сколько символов цитируемого сообщения попадает в карточку.
const reportTextLimit = 200

// FormatReportCard строит карточку жалобы для чата администрации.
func FormatReportCard(reporter, offender *tgbotapi.User, reported *tgbotapi.Message) string {
	var b strings.Builder
	b.WriteString("🚨 Жалоба на сообщение\n\n")
	b.WriteString(fmt.Sprintf("От: %s\n", userRef(reporter)))
	b.WriteString(fmt.Sprintf("На: %s\n", userRef(offender)))
	b.WriteString(fmt.Sprintf("Время: %s\n", common.FormatDateTime(reported.Time())))

	text := reported.Text
	if text == "" {
		text = reported.Caption
	}
	if text == "" {
		text = "[медиа без текста]"
	}
	b.WriteString(fmt.Sprintf("\nТекст:\n%s", common.TruncateText(text, reportTextLimit)))
	return b.String()
}

// userRef возвращает ссылку на пользователя для карточки.
func userRef(u *tgbotapi.User) string {
	if u == nil {
		return "неизвестно"
	}
	if u.UserName != "" {
		return fmt.Sprintf("@%s (id %d)", u.UserName, u.ID)
	}
	return fmt.Sprintf("%s (id %d)", u.FirstName, u.ID)
}
