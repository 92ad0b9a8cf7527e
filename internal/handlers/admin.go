package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/tutrabajo/apiserver/internal/services"
)

// AdminHandler provides the administrative endpoints.
type AdminHandler struct {
	userService *services.UserService
	log         logrus.FieldLogger
}

// NewAdminHandler constructs an AdminHandler with the provided dependencies.
func NewAdminHandler(userService *services.UserService, log logrus.FieldLogger) *AdminHandler {
	return &AdminHandler{
		userService: userService,
		log:         log,
	}
}

// AdminRouter registers admin routes. Every route goes through
// adminMiddleware when it is non-nil.
func AdminRouter(
	r chi.Router,
	userService *services.UserService,
	log logrus.FieldLogger,
	adminMiddleware func(http.Handler) http.Handler,
) {
	handler := NewAdminHandler(userService, log)

	if adminMiddleware != nil {
		r.Use(adminMiddleware)
	}
	r.Get("/stats", handler.Stats)
	r.Get("/users", handler.ListUsers)
	r.Delete("/users/{id}", handler.DeleteUser)
}

func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.userService.Stats(r.Context())
	if err != nil {
		writeServiceError(w, h.log, "stats", err, "failed to load stats")
		return
	}
	writeData(w, http.StatusOK, stats)
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.List(r.Context())
	if err != nil {
		writeServiceError(w, h.log, "list users", err, "failed to list users")
		return
	}
	writeData(w, http.StatusOK, users)
}

func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	deleted, err := h.userService.Delete(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.log, "delete user", err, "failed to delete user")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	h.log.WithFields(logrus.Fields{"user_id": id, "admin": adminSubject(r.Context())}).Info("admin deleted user")
	writeData(w, http.StatusOK, map[string]bool{"deleted": true})
}
