package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/tutrabajo/apiserver/internal/services"
	"github.com/tutrabajo/apiserver/types"
)

// CVHandler provides HTTP handlers for CVs.
type CVHandler struct {
	cvService *services.CVService
	validator *Validator
	log       logrus.FieldLogger
}

// NewCVHandler constructs a CVHandler with the provided dependencies.
func NewCVHandler(cvService *services.CVService, validator *Validator, log logrus.FieldLogger) *CVHandler {
	return &CVHandler{
		cvService: cvService,
		validator: validator,
		log:       log,
	}
}

// CVRouter registers CV routes on the given router.
func CVRouter(r chi.Router, cvService *services.CVService, validator *Validator, log logrus.FieldLogger) {
	handler := NewCVHandler(cvService, validator, log)

	r.Post("/upload", handler.UploadCV)
	r.Get("/list", handler.ListCVs)
	r.Get("/user/{userID}", handler.ListUserCVs)
	r.Get("/{id}", handler.GetCV)
	r.Delete("/{id}", handler.DeleteCV)
}

func (h *CVHandler) UploadCV(w http.ResponseWriter, r *http.Request) {
	var req types.NewCV
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if errs := h.validator.Struct(req); errs != nil {
		writeValidation(w, errs)
		return
	}

	cv, err := h.cvService.Upload(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.log, "upload cv", err, "failed to upload cv")
		return
	}
	writeData(w, http.StatusCreated, cv)
}

func (h *CVHandler) ListCVs(w http.ResponseWriter, r *http.Request) {
	cvs, err := h.cvService.List(r.Context())
	if err != nil {
		writeServiceError(w, h.log, "list cvs", err, "failed to list cvs")
		return
	}
	writeData(w, http.StatusOK, cvs)
}

func (h *CVHandler) ListUserCVs(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cvs, err := h.cvService.ListByUser(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.log, "list user cvs", err, "failed to list cvs")
		return
	}
	writeData(w, http.StatusOK, cvs)
}

func (h *CVHandler) GetCV(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cv, err := h.cvService.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.log, "get cv", err, "failed to fetch cv")
		return
	}
	if cv == nil {
		writeError(w, http.StatusNotFound, "cv not found")
		return
	}
	writeData(w, http.StatusOK, cv)
}

func (h *CVHandler) DeleteCV(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	deleted, err := h.cvService.Delete(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.log, "delete cv", err, "failed to delete cv")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "cv not found")
		return
	}
	writeData(w, http.StatusOK, map[string]bool{"deleted": true})
}
