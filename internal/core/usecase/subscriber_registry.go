package usecase

import (
	"context"
	"sync"

	"rent-watch-service/internal/core/domain"
)

// subscriberEntry — одна запись реестра: состояние подписчика плюс
// ручка его фонового цикла. Поля защищены собственным мьютексом, так
// как их одновременно мутируют обработчик команд и сам цикл.
type subscriberEntry struct {
	mu     sync.Mutex
	state  domain.SubscriberState
	cancel context.CancelFunc
	// done закрывается при выходе цикла; идентичность канала служит
	// меткой поколения цикла (старый цикл не должен трогать состояние
	// после перезапуска).
	done chan struct{}
}

// SubscriberRegistry — потокобезопасный реестр состояний подписчиков.
// Записи создаются лениво при первом обращении и никогда не удаляются
// этим сервисом: политика очистки принадлежит внешнему фронтенду.
type SubscriberRegistry struct {
	mu      sync.Mutex
	entries map[int64]*subscriberEntry
}

// NewSubscriberRegistry создает пустой реестр.
func NewSubscriberRegistry() *SubscriberRegistry {
	return &SubscriberRegistry{
		entries: make(map[int64]*subscriberEntry),
	}
}

// getOrCreate возвращает запись подписчика, создавая её при первом
// обращении.
func (r *SubscriberRegistry) getOrCreate(chatID int64) *subscriberEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[chatID]
	if !ok {
		entry = &subscriberEntry{}
		r.entries[chatID] = entry
	}
	return entry
}

// activeIDs возвращает идентификаторы подписчиков с запущенным поиском.
func (r *SubscriberRegistry) activeIDs() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]int64, 0, len(r.entries))
	for id, entry := range r.entries {
		entry.mu.Lock()
		searching := entry.state.Searching
		entry.mu.Unlock()
		if searching {
			ids = append(ids, id)
		}
	}
	return ids
}
