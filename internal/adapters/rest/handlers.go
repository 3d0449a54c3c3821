package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"rent-watch-service/internal/contextkeys"
	"rent-watch-service/internal/core/domain"
	"rent-watch-service/internal/core/port"
	"rent-watch-service/internal/core/port/usecases_port"

	"github.com/go-chi/chi/v5"
)

type SubscriberHandlers struct {
	notifyUC usecases_port.NotifySubscribersUseCasePort
}

// NewSubscriberHandlers - конструктор для наших обработчиков.
func NewSubscriberHandlers(notifyUC usecases_port.NotifySubscribersUseCasePort) *SubscriberHandlers {
	return &SubscriberHandlers{
		notifyUC: notifyUC,
	}
}

func chatIDFromRequest(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "chatID")
	chatID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid chat id %q", raw)
	}
	return chatID, nil
}

// HandleStartSearch - обработчик для POST /api/v1/subscribers/{chatID}/search
func (h *SubscriberHandlers) HandleStartSearch(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "HandleStartSearch"})

	chatID, err := chatIDFromRequest(r)
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Тело запроса опционально: поиск без фильтров тоже валиден.
	var reqDTO StartSearchRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&reqDTO); err != nil && err != io.EOF {
		WriteJSONError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	filter, err := parseFilter(reqDTO.Price, reqDTO.Rooms)
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	handlerLogger := logger.WithFields(port.Fields{"chat_id": chatID})
	handlerLogger.Info("Received request to start search", nil)

	if err := h.notifyUC.Start(r.Context(), chatID, filter); err != nil {
		if errors.Is(err, domain.ErrAlreadySearching) {
			WriteJSONError(w, http.StatusConflict, "Search is already running for this subscriber")
			return
		}
		handlerLogger.Error("Use case execution failed", err, nil)
		WriteJSONError(w, http.StatusInternalServerError, "Failed to start search")
		return
	}

	handlerLogger.Info("Search started", nil)
	RespondWithJSON(w, http.StatusAccepted, map[string]string{"status": "searching"})
}

// HandleStopSearch - обработчик для DELETE /api/v1/subscribers/{chatID}/search
func (h *SubscriberHandlers) HandleStopSearch(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "HandleStopSearch"})

	chatID, err := chatIDFromRequest(r)
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	handlerLogger := logger.WithFields(port.Fields{"chat_id": chatID})
	handlerLogger.Info("Received request to stop search", nil)

	if err := h.notifyUC.Stop(r.Context(), chatID); err != nil {
		if errors.Is(err, domain.ErrNotSearching) {
			WriteJSONError(w, http.StatusConflict, "Search is not running for this subscriber")
			return
		}
		handlerLogger.Error("Use case execution failed", err, nil)
		WriteJSONError(w, http.StatusInternalServerError, "Failed to stop search")
		return
	}

	handlerLogger.Info("Search stopped", nil)
	RespondWithJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

// HandleSetFilter - обработчик для PUT /api/v1/subscribers/{chatID}/filter
func (h *SubscriberHandlers) HandleSetFilter(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "HandleSetFilter"})

	chatID, err := chatIDFromRequest(r)
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	var reqDTO SetFilterRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&reqDTO); err != nil {
		if err == io.EOF { // Если тело запроса пустое
			logger.Error("Failed to decode request body", err, nil)
			WriteJSONError(w, http.StatusBadRequest, "Request body is empty")
			return
		}
		WriteJSONError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	filter, err := parseFilter(reqDTO.Price, reqDTO.Rooms)
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	handlerLogger := logger.WithFields(port.Fields{"chat_id": chatID})
	handlerLogger.Info("Received request to set filter", nil)

	if err := h.notifyUC.SetFilter(r.Context(), chatID, filter); err != nil {
		handlerLogger.Error("Use case execution failed", err, nil)
		WriteJSONError(w, http.StatusInternalServerError, "Failed to set filter")
		return
	}

	RespondWithJSON(w, http.StatusOK, map[string]string{"status": "filter updated"})
}

// HandleGetState - обработчик для GET /api/v1/subscribers/{chatID}
func (h *SubscriberHandlers) HandleGetState(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "HandleGetState"})

	chatID, err := chatIDFromRequest(r)
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	state, err := h.notifyUC.State(r.Context(), chatID)
	if err != nil {
		logger.Error("Use case execution failed", err, port.Fields{"chat_id": chatID})
		WriteJSONError(w, http.StatusInternalServerError, "Failed to get subscriber state")
		return
	}

	RespondWithJSON(w, http.StatusOK, toSubscriberStateDTO(chatID, state))
}
