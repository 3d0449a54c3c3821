package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"rent-watch-service/internal/core/domain"
)

type fakeDelivery struct {
	mu        sync.Mutex
	delivered []domain.ListingRecord
	notices   []string
	failIDs   map[int64]bool
	panicIDs  map[int64]bool
}

func newFakeDelivery() *fakeDelivery {
	return &fakeDelivery{
		failIDs:  make(map[int64]bool),
		panicIDs: make(map[int64]bool),
	}
}

func (d *fakeDelivery) Deliver(ctx context.Context, chatID int64, rec domain.ListingRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.panicIDs[rec.ID] {
		panic("delivery channel broke")
	}
	if d.failIDs[rec.ID] {
		return errors.New("delivery refused")
	}
	d.delivered = append(d.delivered, rec)
	return nil
}

func (d *fakeDelivery) DeliverNotice(ctx context.Context, chatID int64, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notices = append(d.notices, text)
	return nil
}

func (d *fakeDelivery) noticesCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.notices)
}

func (d *fakeDelivery) deliveredIDs() []int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	ids := make([]int64, 0, len(d.delivered))
	for _, rec := range d.delivered {
		ids = append(ids, rec.ID)
	}
	return ids
}

func newNotifyUC(t *testing.T, storage *fakeStorage, delivery *fakeDelivery) *NotifySubscribersUseCase {
	t.Helper()
	uc, err := NewNotifySubscribersUseCase(
		NewSubscriberRegistry(),
		storage,
		delivery,
		5*time.Millisecond,
		time.Minute,
		100,
	)
	if err != nil {
		t.Fatalf("NewNotifySubscribersUseCase: %v", err)
	}
	return uc
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not reached within timeout")
}

func TestNotifyStartStopLifecycle(t *testing.T) {
	uc := newNotifyUC(t, newFakeStorage(), newFakeDelivery())
	ctx := context.Background()

	if err := uc.Start(ctx, 1, domain.SearchFilter{}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := uc.Start(ctx, 1, domain.SearchFilter{}); !errors.Is(err, domain.ErrAlreadySearching) {
		t.Errorf("second Start: got %v; want ErrAlreadySearching", err)
	}

	state, _ := uc.State(ctx, 1)
	if !state.Searching {
		t.Error("state should report searching after Start")
	}

	if err := uc.Stop(ctx, 1); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := uc.Stop(ctx, 1); !errors.Is(err, domain.ErrNotSearching) {
		t.Errorf("second Stop: got %v; want ErrNotSearching", err)
	}

	state, _ = uc.State(ctx, 1)
	if state.Searching {
		t.Error("state should not report searching after Stop")
	}
}

func TestNotifyDeliversNewRecordsExactlyOnce(t *testing.T) {
	storage := newFakeStorage()
	delivery := newFakeDelivery()
	uc := newNotifyUC(t, storage, delivery)
	ctx := context.Background()

	now := time.Now().UTC()
	storage.InsertIfAbsent(ctx, domain.ListingRecord{ID: 1, Price: 40000, ObservedAt: now})
	storage.InsertIfAbsent(ctx, domain.ListingRecord{ID: 2, Price: 55000, ObservedAt: now.Add(time.Millisecond)})

	if err := uc.Start(ctx, 7, domain.SearchFilter{}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer uc.Stop(ctx, 7)

	waitFor(t, 2*time.Second, func() bool {
		return len(delivery.deliveredIDs()) >= 2
	})

	// Даем циклу сделать еще несколько итераций: повторов быть не должно
	time.Sleep(30 * time.Millisecond)

	ids := delivery.deliveredIDs()
	if len(ids) != 2 {
		t.Fatalf("delivered %d records; want exactly 2 (got %v)", len(ids), ids)
	}

	state, _ := uc.State(ctx, 7)
	if !state.Watermark.Equal(now.Add(time.Millisecond)) {
		t.Errorf("watermark = %v; want max observed_at %v", state.Watermark, now.Add(time.Millisecond))
	}
}

func TestNotifyAppliesFilter(t *testing.T) {
	storage := newFakeStorage()
	delivery := newFakeDelivery()
	uc := newNotifyUC(t, storage, delivery)
	ctx := context.Background()

	now := time.Now().UTC()
	storage.InsertIfAbsent(ctx, domain.ListingRecord{ID: 1, Price: 30000, Rooms: 1, ObservedAt: now})
	storage.InsertIfAbsent(ctx, domain.ListingRecord{ID: 2, Price: 90000, Rooms: 2, ObservedAt: now})
	storage.InsertIfAbsent(ctx, domain.ListingRecord{ID: 3, Price: 45000, Rooms: 3, ObservedAt: now})

	maxPrice := 60000
	filter := domain.SearchFilter{MaxPrice: &maxPrice, Rooms: []int{1, 3}}

	if err := uc.Start(ctx, 9, filter); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer uc.Stop(ctx, 9)

	waitFor(t, 2*time.Second, func() bool {
		return len(delivery.deliveredIDs()) >= 2
	})
	time.Sleep(20 * time.Millisecond)

	ids := delivery.deliveredIDs()
	if len(ids) != 2 {
		t.Fatalf("delivered %v; want exactly ids 1 and 3", ids)
	}
	for _, id := range ids {
		if id != 1 && id != 3 {
			t.Errorf("delivered unexpected id %d", id)
		}
	}
}

func TestNotifyDeliveryFailureDoesNotBlockBatch(t *testing.T) {
	storage := newFakeStorage()
	delivery := newFakeDelivery()
	delivery.failIDs[1] = true
	uc := newNotifyUC(t, storage, delivery)
	ctx := context.Background()

	now := time.Now().UTC()
	storage.InsertIfAbsent(ctx, domain.ListingRecord{ID: 1, ObservedAt: now})
	storage.InsertIfAbsent(ctx, domain.ListingRecord{ID: 2, ObservedAt: now.Add(time.Millisecond)})

	if err := uc.Start(ctx, 3, domain.SearchFilter{}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer uc.Stop(ctx, 3)

	waitFor(t, 2*time.Second, func() bool {
		for _, id := range delivery.deliveredIDs() {
			if id == 2 {
				return true
			}
		}
		return false
	})

	// Водяной знак продвигается по всей пачке, недоставленная запись
	// не ретраится бесконечно (ограниченная потеря вместо залипания).
	state, _ := uc.State(ctx, 3)
	if !state.Watermark.Equal(now.Add(time.Millisecond)) {
		t.Errorf("watermark = %v; want %v", state.Watermark, now.Add(time.Millisecond))
	}
}

func TestNotifyRestartResetsWatermarkAndDoesNotRedeliver(t *testing.T) {
	storage := newFakeStorage()
	delivery := newFakeDelivery()
	uc := newNotifyUC(t, storage, delivery)
	ctx := context.Background()

	// Запись старше грейс-окна нового запуска
	old := time.Now().UTC().Add(-time.Hour)
	storage.InsertIfAbsent(ctx, domain.ListingRecord{ID: 1, ObservedAt: old})

	if err := uc.Start(ctx, 5, domain.SearchFilter{}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := uc.Stop(ctx, 5); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := uc.Start(ctx, 5, domain.SearchFilter{}); err != nil {
		t.Fatalf("restart: %v", err)
	}
	defer uc.Stop(ctx, 5)

	time.Sleep(30 * time.Millisecond)

	if ids := delivery.deliveredIDs(); len(ids) != 0 {
		t.Errorf("record older than the grace window was delivered: %v", ids)
	}

	state, _ := uc.State(ctx, 5)
	if state.Watermark.Before(time.Now().UTC().Add(-2 * time.Minute)) {
		t.Errorf("restart should reset watermark to now minus grace, got %v", state.Watermark)
	}
}

func TestNotifySetFilterAppliesOnNextIteration(t *testing.T) {
	storage := newFakeStorage()
	delivery := newFakeDelivery()
	uc := newNotifyUC(t, storage, delivery)
	ctx := context.Background()

	minPrice := 100000
	if err := uc.Start(ctx, 11, domain.SearchFilter{MinPrice: &minPrice}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer uc.Stop(ctx, 11)

	now := time.Now().UTC()
	storage.InsertIfAbsent(ctx, domain.ListingRecord{ID: 1, Price: 50000, ObservedAt: now})

	// С текущим фильтром запись не проходит
	time.Sleep(20 * time.Millisecond)
	if ids := delivery.deliveredIDs(); len(ids) != 0 {
		t.Fatalf("record delivered despite filter: %v", ids)
	}

	if err := uc.SetFilter(ctx, 11, domain.SearchFilter{}); err != nil {
		t.Fatalf("SetFilter: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool {
		return len(delivery.deliveredIDs()) == 1
	})
}

func TestNotifyWatermarkIsMonotonic(t *testing.T) {
	storage := newFakeStorage()
	delivery := newFakeDelivery()
	uc := newNotifyUC(t, storage, delivery)
	ctx := context.Background()

	if err := uc.Start(ctx, 13, domain.SearchFilter{}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer uc.Stop(ctx, 13)

	var prev time.Time
	for i := 0; i < 5; i++ {
		storage.InsertIfAbsent(ctx, domain.ListingRecord{
			ID:         int64(100 + i),
			ObservedAt: time.Now().UTC(),
		})
		time.Sleep(15 * time.Millisecond)

		state, _ := uc.State(ctx, 13)
		if state.Watermark.Before(prev) {
			t.Fatalf("watermark went backwards: %v -> %v", prev, state.Watermark)
		}
		prev = state.Watermark
	}
}

func TestNotifyCappedPageAdvancesWatermarkAndLoopContinues(t *testing.T) {
	storage := newFakeStorage()
	delivery := newFakeDelivery()
	uc, err := NewNotifySubscribersUseCase(
		NewSubscriberRegistry(),
		storage,
		delivery,
		5*time.Millisecond,
		time.Minute,
		2,
	)
	if err != nil {
		t.Fatalf("NewNotifySubscribersUseCase: %v", err)
	}
	ctx := context.Background()

	now := time.Now().UTC()
	storage.InsertIfAbsent(ctx, domain.ListingRecord{ID: 1, ObservedAt: now})
	storage.InsertIfAbsent(ctx, domain.ListingRecord{ID: 2, ObservedAt: now.Add(time.Millisecond)})
	storage.InsertIfAbsent(ctx, domain.ListingRecord{ID: 3, ObservedAt: now.Add(2 * time.Millisecond)})

	if err := uc.Start(ctx, 17, domain.SearchFilter{}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer uc.Stop(ctx, 17)

	// Первая итерация упирается в лимит страницы; цикл живет дальше,
	// хвост доходит со следующих итераций.
	waitFor(t, 2*time.Second, func() bool {
		return len(delivery.deliveredIDs()) >= 3
	})
	time.Sleep(20 * time.Millisecond)

	if ids := delivery.deliveredIDs(); len(ids) != 3 {
		t.Fatalf("delivered %v; want exactly 3 records", ids)
	}

	state, _ := uc.State(ctx, 17)
	if !state.Watermark.Equal(now.Add(2 * time.Millisecond)) {
		t.Errorf("watermark = %v; want max observed_at %v", state.Watermark, now.Add(2*time.Millisecond))
	}
}

func TestNotifyLoopPanicStopsSearchAndAllowsRestart(t *testing.T) {
	storage := newFakeStorage()
	delivery := newFakeDelivery()
	delivery.panicIDs[1] = true
	uc := newNotifyUC(t, storage, delivery)
	ctx := context.Background()

	storage.InsertIfAbsent(ctx, domain.ListingRecord{ID: 1, ObservedAt: time.Now().UTC()})

	if err := uc.Start(ctx, 21, domain.SearchFilter{}); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Цикл падает на доставке, восстанавливается и шлет подписчику
	// уведомление о сбое.
	waitFor(t, 2*time.Second, func() bool {
		return delivery.noticesCount() == 1
	})

	state, _ := uc.State(ctx, 21)
	if state.Searching {
		t.Error("search should be stopped after loop failure")
	}
	if err := uc.Stop(ctx, 21); !errors.Is(err, domain.ErrNotSearching) {
		t.Errorf("Stop after failure: got %v; want ErrNotSearching", err)
	}

	// Подписчик может запустить поиск заново
	delivery.mu.Lock()
	delete(delivery.panicIDs, 1)
	delivery.mu.Unlock()

	if err := uc.Start(ctx, 21, domain.SearchFilter{}); err != nil {
		t.Fatalf("restart after failure: %v", err)
	}
	if err := uc.Stop(ctx, 21); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}
