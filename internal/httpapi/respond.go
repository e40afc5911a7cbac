package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"buybuzz-be/internal/logger"
	"buybuzz-be/internal/utils"

	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

var errInvalidBody = errors.New("invalid JSON body")

func respondJSON(w http.ResponseWriter, status int, data any) {
	utils.WriteJSON(w, status, data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	utils.WriteJSONError(w, message, status)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %w", errInvalidBody, err)
	}
	return nil
}

// internalError logs err and answers with a generic message.
func internalError(w http.ResponseWriter, r *http.Request, message string, err error) {
	logger.FromCtx(r.Context()).Error(message,
		zap.String("layer", "http"),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	respondError(w, http.StatusInternalServerError, message)
}
