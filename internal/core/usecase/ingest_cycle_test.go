package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"rent-watch-service/internal/core/domain"
)

type fakeFetcher struct {
	mu    sync.Mutex
	errs  []error // по одной ошибке на вызов; nil = успех
	calls int
}

func (f *fakeFetcher) FetchMarkup(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var err error
	if f.calls < len(f.errs) {
		err = f.errs[f.calls]
	}
	f.calls++
	if err != nil {
		return "", err
	}
	return "<html></html>", nil
}

type fakeDecomposer struct {
	fragments []domain.ListingFragment
}

func (d *fakeDecomposer) Decompose(markup string) ([]domain.ListingFragment, error) {
	return d.fragments, nil
}

type fakeStorage struct {
	mu       sync.Mutex
	seen     map[int64]bool
	inserted []domain.ListingRecord
	queryFn  func(since time.Time, filter domain.SearchFilter, limit int) ([]domain.ListingRecord, error)
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{seen: make(map[int64]bool)}
}

func (s *fakeStorage) InsertIfAbsent(ctx context.Context, rec domain.ListingRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seen[rec.ID] {
		return false, nil
	}
	s.seen[rec.ID] = true
	s.inserted = append(s.inserted, rec)
	return true, nil
}

func (s *fakeStorage) QueryNewer(ctx context.Context, since time.Time, filter domain.SearchFilter, limit int) ([]domain.ListingRecord, error) {
	s.mu.Lock()
	queryFn := s.queryFn
	s.mu.Unlock()
	if queryFn != nil {
		return queryFn(since, filter, limit)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.ListingRecord
	for _, rec := range s.inserted {
		if rec.ObservedAt.After(since) && filter.Matches(rec) {
			out = append(out, rec)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (s *fakeStorage) insertedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inserted)
}

type fakeEvents struct {
	mu        sync.Mutex
	published []int64
}

func (e *fakeEvents) PublishNewListing(ctx context.Context, rec domain.ListingRecord) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.published = append(e.published, rec.ID)
	return nil
}

func TestIngestCycleGivesUpAfterConsecutiveFailures(t *testing.T) {
	fetchErr := errors.New("feed unreachable")
	fetcher := &fakeFetcher{errs: []error{fetchErr, fetchErr, fetchErr}}

	uc, err := NewIngestCycleUseCase(
		fetcher,
		&fakeDecomposer{},
		mustAssembler(t),
		newFakeStorage(),
		nil,
		time.Millisecond,
		3,
	)
	if err != nil {
		t.Fatalf("NewIngestCycleUseCase: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	runErr := uc.Run(ctx)
	if runErr == nil {
		t.Fatal("Run should return an error after hitting the failure threshold")
	}
	if !errors.Is(runErr, fetchErr) {
		t.Errorf("Run error should wrap the last fetch error, got: %v", runErr)
	}
	if ctx.Err() != nil {
		t.Fatal("Run returned due to test timeout, not due to the failure threshold")
	}
}

func TestIngestCycleSuccessResetsFailureCounter(t *testing.T) {
	fetchErr := errors.New("transient")
	// Две ошибки, успех, снова две ошибки: порог 3 не достигается
	fetcher := &fakeFetcher{errs: []error{fetchErr, fetchErr, nil, fetchErr, fetchErr}}

	uc, err := NewIngestCycleUseCase(
		fetcher,
		&fakeDecomposer{},
		mustAssembler(t),
		newFakeStorage(),
		nil,
		time.Millisecond,
		3,
	)
	if err != nil {
		t.Fatalf("NewIngestCycleUseCase: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		for {
			fetcher.mu.Lock()
			calls := fetcher.calls
			fetcher.mu.Unlock()
			if calls >= 6 {
				cancel()
				return
			}
			time.Sleep(time.Millisecond)
		}
	}()

	if runErr := uc.Run(ctx); runErr != nil {
		t.Errorf("Run returned error despite counter reset: %v", runErr)
	}
}

func TestIngestCycleInsertsOnceAndPublishes(t *testing.T) {
	fragments := []domain.ListingFragment{
		{IDAttr: "1", TitleText: "1-к. квартира, 30 м², 2/5 эт.", PriceText: "30000"},
		{IDAttr: "2", TitleText: "2-к. квартира, 45 м², 3/9 эт.", PriceText: "50000"},
		{IDAttr: "мусор"}, // должен быть пропущен без последствий
	}

	storage := newFakeStorage()
	events := &fakeEvents{}
	fetcher := &fakeFetcher{}

	uc, err := NewIngestCycleUseCase(
		fetcher,
		&fakeDecomposer{fragments: fragments},
		mustAssembler(t),
		storage,
		events,
		time.Millisecond,
		5,
	)
	if err != nil {
		t.Fatalf("NewIngestCycleUseCase: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		// Ждем как минимум два полных прохода
		for {
			fetcher.mu.Lock()
			calls := fetcher.calls
			fetcher.mu.Unlock()
			if calls >= 3 {
				cancel()
				return
			}
			time.Sleep(time.Millisecond)
		}
	}()

	if runErr := uc.Run(ctx); runErr != nil {
		t.Fatalf("Run: %v", runErr)
	}

	// Повторные проходы не плодят дубликаты
	if got := storage.insertedCount(); got != 2 {
		t.Errorf("inserted %d records; want 2", got)
	}

	events.mu.Lock()
	published := len(events.published)
	events.mu.Unlock()
	if published != 2 {
		t.Errorf("published %d new listing events; want 2", published)
	}
}

func mustAssembler(t *testing.T) *AssembleListingUseCase {
	t.Helper()
	uc, err := NewAssembleListingUseCase("https://www.avito.ru")
	if err != nil {
		t.Fatalf("NewAssembleListingUseCase: %v", err)
	}
	return uc
}
