package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/opsdesk/deskd/internal/config"
	"github.com/opsdesk/deskd/internal/handler/dto"
	"github.com/opsdesk/deskd/internal/middleware"
	"github.com/opsdesk/deskd/internal/repository"
	"github.com/opsdesk/deskd/internal/service"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/opsdesk/deskd/docs" // Import generated docs
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	pool           *pgxpool.Pool
	taskService    *service.TaskService
	authMiddleware *middleware.AuthMiddleware
}

// New creates a new Handler instance with all dependencies.
func New(pool *pgxpool.Pool, policy config.Policy) (*Handler, error) {
	taskRepo := repository.NewTaskRepository(pool)
	subtaskRepo := repository.NewSubtaskRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	outboxRepo := repository.NewOutboxRepository(pool)

	taskService, err := service.NewTaskService(pool, taskRepo, subtaskRepo, userRepo, outboxRepo, policy)
	if err != nil {
		return nil, err
	}

	return &Handler{
		pool:           pool,
		taskService:    taskService,
		authMiddleware: middleware.NewAuthMiddleware(userRepo),
	}, nil
}

// TaskService exposes the service for maintenance commands and tests.
func (h *Handler) TaskService() *service.TaskService {
	return h.taskService
}

// RegisterRoutes registers all HTTP routes.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Health check
	mux.HandleFunc("GET /healthz", h.handleHealthz)

	// Swagger UI
	mux.HandleFunc("GET /swagger/", httpSwagger.Handler())

	// API v1 routes with authentication
	mux.Handle("GET /api/v1/tasks", h.authMiddleware.Authenticate(http.HandlerFunc(h.handleListTasks)))
	mux.Handle("POST /api/v1/tasks", h.authMiddleware.Authenticate(http.HandlerFunc(h.handleCreateTask)))
	mux.Handle("GET /api/v1/tasks/{id}", h.authMiddleware.Authenticate(http.HandlerFunc(h.handleGetTask)))
	mux.Handle("PATCH /api/v1/tasks/{id}", h.authMiddleware.Authenticate(http.HandlerFunc(h.handleUpdateTask)))
	mux.Handle("DELETE /api/v1/tasks/{id}", h.authMiddleware.Authenticate(http.HandlerFunc(h.handleDeleteTask)))
	mux.Handle("GET /api/v1/tasks/{id}/subtasks", h.authMiddleware.Authenticate(http.HandlerFunc(h.handleListSubtasks)))
	mux.Handle("POST /api/v1/tasks/{id}/subtasks", h.authMiddleware.Authenticate(http.HandlerFunc(h.handleCreateSubtask)))
	mux.Handle("PATCH /api/v1/tasks/{id}/subtasks/{subtaskID}", h.authMiddleware.Authenticate(http.HandlerFunc(h.handleUpdateSubtask)))
	mux.Handle("DELETE /api/v1/tasks/{id}/subtasks/{subtaskID}", h.authMiddleware.Authenticate(http.HandlerFunc(h.handleDeleteSubtask)))
	mux.Handle("GET /api/v1/users", h.authMiddleware.Authenticate(http.HandlerFunc(h.handleListUsers)))
}

// handleHealthz returns 200 OK if the database is reachable.
func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.pool.Ping(ctx); err != nil {
		slog.Error("database health check failed", "error", err)
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// Ping checks if the database is reachable (used for testing).
func (h *Handler) Ping(ctx context.Context) error {
	return h.pool.Ping(ctx)
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// respondError writes a standard error response.
func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, dto.NewErrorResponse(code, message))
}

// extractID extracts and validates a positive integer path parameter.
// Returns (id, true) if valid, (0, false) if invalid (error already
// sent to client). Identifiers are opaque positive integers; zero is
// never a sentinel.
func extractID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := r.PathValue(name)
	if raw == "" {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", name+" is required")
		return 0, false
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", name+" must be a positive integer")
		return 0, false
	}

	return id, true
}
