package handler

import (
	"net/http"

	"github.com/opsdesk/deskd/internal/handler/dto"
	"github.com/opsdesk/deskd/internal/middleware"
)

// handleListUsers lists the users inside the caller's resolved scope.
// @Summary List visible users
// @Description Lists the active users the caller's scope covers, with the authoritative tier
// @Tags users
// @Produce json
// @Success 200 {object} dto.UsersListResponse
// @Security BearerAuth
// @Router /users [get]
func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, err := middleware.GetPrincipalFromContext(ctx)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "INVALID_TOKEN", "Authentication required")
		return
	}

	users, tier, err := h.taskService.VisibleUsers(ctx, principal)
	if err != nil {
		status, code, message := dto.MapDomainError(err)
		respondError(w, status, code, message)
		return
	}

	response := dto.UsersListResponse{
		Users: make([]dto.UserResponse, len(users)),
		Scope: string(tier),
	}
	for i, user := range users {
		response.Users[i] = dto.ToUserResponse(user)
	}

	respondJSON(w, http.StatusOK, response)
}
