package moderation

import (
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"voltchat.ru/moderation-bot/internal/common"
	"voltchat.ru/moderation-bot/internal/config"
)

// fakeCommandAPI подменяет Telegram API в тестах обработчиков команд.
type fakeCommandAPI struct {
	status string
	sent   []string
}

func (f *fakeCommandAPI) GetChatMember(tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error) {
	return tgbotapi.ChatMember{Status: f.status}, nil
}

func (f *fakeCommandAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg.Text)
	}
	return tgbotapi.Message{}, nil
}

func commandMessage(fromID int64, reply *tgbotapi.Message) *tgbotapi.Message {
	return &tgbotapi.Message{
		Chat:           &tgbotapi.Chat{ID: -100111, Type: "supergroup"},
		From:           &tgbotapi.User{ID: fromID},
		ReplyToMessage: reply,
	}
}

func TestResolveTarget(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{OwnerID: 1, AdminIDs: []int64{99}, WarnLimit: 3}

	replyFrom := func(id int64) *tgbotapi.Message {
		return &tgbotapi.Message{From: &tgbotapi.User{ID: id}}
	}

	tests := []struct {
		name    string
		status  string
		message *tgbotapi.Message
		wantErr error
	}{
		{
			name:    "отправитель без прав",
			status:  "member",
			message: commandMessage(777, replyFrom(888)),
			wantErr: common.ErrNotAdmin,
		},
		{
			name:    "нет ответа на сообщение",
			status:  "member",
			message: commandMessage(99, nil),
			wantErr: common.ErrNoReplyTarget,
		},
		{
			name:    "команда на самого себя",
			status:  "member",
			message: commandMessage(99, replyFrom(99)),
			wantErr: common.ErrSelfTarget,
		},
		{
			name:    "цель — админ из конфига",
			status:  "member",
			message: commandMessage(99, replyFrom(1)),
			wantErr: common.ErrAdminTarget,
		},
		{
			name:   "цель — пост от имени канала",
			status: "member",
			message: commandMessage(99, &tgbotapi.Message{
				SenderChat: &tgbotapi.Chat{ID: -100222, Type: "channel"},
				From:       &tgbotapi.User{ID: 888},
			}),
			wantErr: common.ErrAdminTarget,
		},
		{
			name:    "обычная цель",
			status:  "member",
			message: commandMessage(99, replyFrom(888)),
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := NewHandler(nil, &fakeCommandAPI{status: tt.status}, cfg)

			target, err := h.resolveTarget(tt.message)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("resolveTarget: ошибка %v, ожидалась %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && (target == nil || target.ID != 888) {
				t.Fatalf("цель не извлечена: %+v", target)
			}
			if tt.wantErr != nil && target != nil {
				t.Fatalf("при ошибке цель должна быть nil, получено %+v", target)
			}
		})
	}
}

func TestReplyResolveErrorMessages(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want string
	}{
		{common.ErrNotAdmin, "У вас недостаточно прав!"},
		{common.ErrNoReplyTarget, "Эта команда должна быть использована как ответ на сообщение."},
		{common.ErrSelfTarget, "Нельзя применять команду к самому себе 🤪"},
		{common.ErrAdminTarget, "Админов трогаешь? Ай-ай-ай 😈"},
	}

	for _, tt := range tests {
		tt := tt
		api := &fakeCommandAPI{}
		h := NewHandler(nil, api, &config.Config{})
		h.replyResolveError(commandMessage(99, nil), tt.err)
		if len(api.sent) != 1 || api.sent[0] != tt.want {
			t.Fatalf("ошибка %v: отправлено %v, ожидалось %q", tt.err, api.sent, tt.want)
		}
	}
}
