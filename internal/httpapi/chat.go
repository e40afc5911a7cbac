package httpapi

import (
	"net/http"

	"buybuzz-be/internal/chat"
	"buybuzz-be/internal/logger"

	"go.uber.org/zap"
)

func (h *handler) chat(w http.ResponseWriter, r *http.Request) {
	var req chat.Request
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidBody.Error())
		return
	}

	reply, err := h.Chat.Reply(r.Context(), req)
	if err != nil {
		if chat.IsValidation(err) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		logger.FromCtx(r.Context()).Error("error in chat", zap.Error(err))
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, chat.Response{Response: reply})
}
