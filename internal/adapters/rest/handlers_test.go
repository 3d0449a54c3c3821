package rest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"rent-watch-service/internal/core/domain"

	"github.com/go-chi/chi/v5"
)

type fakeNotifyUC struct {
	startErr  error
	stopErr   error
	lastChat  int64
	lastStart domain.SearchFilter
}

func (f *fakeNotifyUC) Start(ctx context.Context, chatID int64, filter domain.SearchFilter) error {
	f.lastChat = chatID
	f.lastStart = filter
	return f.startErr
}

func (f *fakeNotifyUC) Stop(ctx context.Context, chatID int64) error {
	f.lastChat = chatID
	return f.stopErr
}

func (f *fakeNotifyUC) SetFilter(ctx context.Context, chatID int64, filter domain.SearchFilter) error {
	f.lastChat = chatID
	f.lastStart = filter
	return nil
}

func (f *fakeNotifyUC) State(ctx context.Context, chatID int64) (domain.SubscriberState, error) {
	return domain.SubscriberState{Searching: true}, nil
}

func (f *fakeNotifyUC) StopAll(ctx context.Context) {}

func newTestRouter(uc *fakeNotifyUC) http.Handler {
	handlers := NewSubscriberHandlers(uc)
	r := chi.NewRouter()
	r.Route("/api/v1/subscribers/{chatID}", func(r chi.Router) {
		r.Get("/", handlers.HandleGetState)
		r.Post("/search", handlers.HandleStartSearch)
		r.Delete("/search", handlers.HandleStopSearch)
		r.Put("/filter", handlers.HandleSetFilter)
	})
	return r
}

func TestHandleStartSearch(t *testing.T) {
	uc := &fakeNotifyUC{}
	router := newTestRouter(uc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/subscribers/42/search",
		strings.NewReader(`{"price":"30000-60000","rooms":"1,2"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d; want 202 (%s)", rec.Code, rec.Body.String())
	}
	if uc.lastChat != 42 {
		t.Errorf("chat id = %d; want 42", uc.lastChat)
	}
	if uc.lastStart.MinPrice == nil || *uc.lastStart.MinPrice != 30000 {
		t.Errorf("filter min price not passed through: %+v", uc.lastStart)
	}
	if len(uc.lastStart.Rooms) != 2 {
		t.Errorf("filter rooms not passed through: %+v", uc.lastStart.Rooms)
	}
}

func TestHandleStartSearchWithoutBody(t *testing.T) {
	uc := &fakeNotifyUC{}
	router := newTestRouter(uc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/subscribers/1/search", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("start without body should be allowed, got %d", rec.Code)
	}
}

func TestHandleStartSearchConflict(t *testing.T) {
	uc := &fakeNotifyUC{startErr: domain.ErrAlreadySearching}
	router := newTestRouter(uc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/subscribers/1/search", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d; want 409", rec.Code)
	}
}

func TestHandleStopSearchNotRunning(t *testing.T) {
	uc := &fakeNotifyUC{stopErr: domain.ErrNotSearching}
	router := newTestRouter(uc)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/subscribers/1/search", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d; want 409", rec.Code)
	}
}

func TestHandleBadChatID(t *testing.T) {
	router := newTestRouter(&fakeNotifyUC{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/subscribers/abc/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d; want 400", rec.Code)
	}
}

func TestHandleBadFilterInput(t *testing.T) {
	router := newTestRouter(&fakeNotifyUC{})

	req := httptest.NewRequest(http.MethodPut, "/api/v1/subscribers/1/filter",
		strings.NewReader(`{"price":"60000-30000"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d; want 400", rec.Code)
	}
}
