// Package common — errors.go определяет пользовательские ошибки,
// которые используются во всех модулях бота.
// Эти ошибки позволяют обработчикам различать типы проблем
// и отправлять пользователю понятные сообщения.
package common

import "errors"

// Ошибки модерации
var (
	// ErrWarningNotFound — у пользователя нет записи предупреждений
	ErrWarningNotFound = errors.New("у пользователя нет активных предупреждений")
	// ErrNotAdmin — отправитель команды не является администратором
	ErrNotAdmin = errors.New("у вас недостаточно прав")
	// ErrSelfTarget — попытка применить модерацию к самому себе
	ErrSelfTarget = errors.New("нельзя применять модерацию к самому себе")
	// ErrAdminTarget — попытка применить модерацию к администратору
	ErrAdminTarget = errors.New("нельзя применять модерацию к администратору")
	// ErrNoReplyTarget — команда должна быть ответом на сообщение
	ErrNoReplyTarget = errors.New("команда должна быть ответом на сообщение")
)

// Ошибки Telegram API
var (
	// ErrNoPrivileges — у бота нет прав на действие (мут/бан)
	ErrNoPrivileges = errors.New("у бота недостаточно прав в чате")
)

// Ошибки админ-панели
var (
	// ErrWrongPassword — неверный пароль
	ErrWrongPassword = errors.New("неверный пароль")
	// ErrTooManyAttempts — слишком много неудачных попыток входа
	ErrTooManyAttempts = errors.New("слишком много попыток, подождите 1 час")
	// ErrSessionExpired — сессия истекла
	ErrSessionExpired = errors.New("сессия истекла, авторизуйтесь заново")
)
