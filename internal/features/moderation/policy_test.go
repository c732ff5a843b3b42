package moderation

import (
	"testing"
	"time"
)

func TestDecideContent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		newCount   int
		warnLimit  int
		wantAction Action
	}{
		{"первое предупреждение", 1, 3, ActionWarn},
		{"предпоследнее предупреждение", 2, 3, ActionWarn},
		{"лимит достигнут", 3, 3, ActionBan},
		{"выше лимита (несброшенный журнал)", 4, 3, ActionBan},
		{"лимит 1 — бан сразу", 1, 1, ActionBan},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d := DecideContent(tt.newCount, tt.warnLimit)
			if d.Action != tt.wantAction {
				t.Fatalf("DecideContent(%d, %d).Action = %s, ожидалось %s",
					tt.newCount, tt.warnLimit, d.Action, tt.wantAction)
			}
			if d.WarnCount != tt.newCount {
				t.Fatalf("WarnCount = %d, ожидалось %d", d.WarnCount, tt.newCount)
			}
		})
	}
}

func TestDecideRate(t *testing.T) {
	t.Parallel()

	muteFor := 10 * time.Minute

	first := DecideRate(false, muteFor)
	if first.Action != ActionWarnTransient {
		t.Fatalf("первый флуд: %s, ожидалось %s", first.Action, ActionWarnTransient)
	}

	repeat := DecideRate(true, muteFor)
	if repeat.Action != ActionMute {
		t.Fatalf("повторный флуд: %s, ожидалось %s", repeat.Action, ActionMute)
	}
	if repeat.MuteFor != muteFor {
		t.Fatalf("MuteFor = %s, ожидалось %s", repeat.MuteFor, muteFor)
	}
}
