package handlers

import (
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/tutrabajo/apiserver/internal/services"
)

// writeServiceError maps a service failure to a response. Unexpected errors
// are logged and answered with message, never with the underlying error.
func writeServiceError(w http.ResponseWriter, log logrus.FieldLogger, op string, err error, message string) {
	switch {
	case errors.Is(err, services.ErrDuplicate):
		writeError(w, http.StatusConflict, "email already registered")
	case errors.Is(err, services.ErrUnknownUser):
		errs := ValidationErrors{}
		errs.Add("user_id", "does not reference an existing user")
		writeValidation(w, errs)
	default:
		log.WithError(err).WithField("op", op).Error("request failed")
		writeError(w, http.StatusInternalServerError, message)
	}
}
