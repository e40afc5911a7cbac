package httpapi

import (
	"errors"
	"net/http"

	"buybuzz-be/internal/user"
	"buybuzz-be/internal/utils"
)

func (h *handler) getProfile(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())

	p, err := h.Users.GetProfile(r.Context(), userID)
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, p)
	case errors.Is(err, user.ErrProfileNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	default:
		internalError(w, r, "failed to load profile", err)
	}
}
