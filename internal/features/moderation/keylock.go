// Package moderation — keylock.go: шардированные мьютексы по ключу (чат, пользователь).
package moderation

import "sync"

// shardCount — степень двойки, чтобы брать индекс по маске.
const shardCount = 64

// keyedMutex сериализует операции по ключу (chatID, userID) без глобальной
// блокировки. Разные пользователи почти никогда не делят шард, а коллизия
// шардов стоит лишь лишнего ожидания, не корректности.
type keyedMutex struct {
	shards [shardCount]sync.Mutex
}

// lock блокирует шард ключа и возвращает функцию разблокировки.
func (k *keyedMutex) lock(chatID, userID int64) func() {
	idx := (uint64(chatID)*31 + uint64(userID)) & (shardCount - 1)
	k.shards[idx].Lock()
	return k.shards[idx].Unlock
}
