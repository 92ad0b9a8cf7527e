package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/tutrabajo/apiserver/internal/services"
	"github.com/tutrabajo/apiserver/types"
)

// UserHandler provides HTTP handlers for users.
type UserHandler struct {
	userService *services.UserService
	validator   *Validator
	log         logrus.FieldLogger
}

// NewUserHandler constructs a UserHandler with the provided dependencies.
func NewUserHandler(userService *services.UserService, validator *Validator, log logrus.FieldLogger) *UserHandler {
	return &UserHandler{
		userService: userService,
		validator:   validator,
		log:         log,
	}
}

// UserRouter registers user routes on the given router.
func UserRouter(r chi.Router, userService *services.UserService, validator *Validator, log logrus.FieldLogger) {
	handler := NewUserHandler(userService, validator, log)

	r.Post("/", handler.CreateUser)
	r.Get("/{id}", handler.GetUser)
}

func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req types.NewUser
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if errs := h.validator.Struct(req); errs != nil {
		writeValidation(w, errs)
		return
	}

	user, err := h.userService.Create(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.log, "create user", err, "failed to create user")
		return
	}
	writeData(w, http.StatusCreated, user)
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.userService.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.log, "get user", err, "failed to fetch user")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeData(w, http.StatusOK, user)
}
