package bot

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"voltchat.ru/moderation-bot/internal/config"
)

func TestParseCommand(t *testing.T) {
	t.Parallel()

	parser := NewCommandParser()

	tests := []struct {
		name      string
		text      string
		wantCmd   string
		wantArgs  []string
		isCommand bool
	}{
		{"слэш-команда", "/warn", "warn", nil, true},
		{"команда с аргументами", "/mute 30", "mute", []string{"30"}, true},
		{"команда с упоминанием бота", "/warn@voltchat_bot", "warn", nil, true},
		{"восклицательный префикс", "!топ", "топ", nil, true},
		{"точка-префикс", ".бан", "бан", nil, true},
		{"регистр приводится к нижнему", "/WARN", "warn", nil, true},
		{"пробелы вокруг", "  /kick  ", "kick", nil, true},
		{"обычный текст", "привет всем", "", nil, false},
		{"пустая строка", "", "", nil, false},
		{"одинокий префикс", "/", "", nil, false},
		{"несколько аргументов", "/mute 30 за флуд", "mute", []string{"30", "за", "флуд"}, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cmd, args, isCommand := parser.ParseCommand(tt.text)
			if isCommand != tt.isCommand {
				t.Fatalf("isCommand = %v, ожидалось %v", isCommand, tt.isCommand)
			}
			if cmd != tt.wantCmd {
				t.Errorf("cmd = %q, ожидалось %q", cmd, tt.wantCmd)
			}
			if !reflect.DeepEqual(args, tt.wantArgs) {
				t.Errorf("args = %v, ожидалось %v", args, tt.wantArgs)
			}
		})
	}
}

func TestRulesTextUsesConfigLimits(t *testing.T) {
	t.Parallel()

	b := &Bot{cfg: &config.Config{
		WarnLimit:        2,
		SpamMessageLimit: 7,
		SpamTimeWindow:   21 * time.Second,
	}}

	text := b.rulesText()
	if !strings.Contains(text, "не более 7 сообщений за 21 секунду") {
		t.Errorf("лимит флуда не взят из конфигурации:\n%s", text)
	}
	if !strings.Contains(text, "2 предупреждения — бан") {
		t.Errorf("лимит предупреждений не взят из конфигурации:\n%s", text)
	}
}
