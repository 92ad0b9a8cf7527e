package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/tutrabajo/apiserver/internal/services"
	"github.com/tutrabajo/apiserver/types"
)

// JobHandler provides HTTP handlers for job postings.
type JobHandler struct {
	jobService *services.JobService
	validator  *Validator
	log        logrus.FieldLogger
}

// NewJobHandler constructs a JobHandler with the provided dependencies.
func NewJobHandler(jobService *services.JobService, validator *Validator, log logrus.FieldLogger) *JobHandler {
	return &JobHandler{
		jobService: jobService,
		validator:  validator,
		log:        log,
	}
}

// JobRouter registers job routes on the given router. Writes go through
// adminMiddleware when it is non-nil.
func JobRouter(
	r chi.Router,
	jobService *services.JobService,
	validator *Validator,
	log logrus.FieldLogger,
	adminMiddleware func(http.Handler) http.Handler,
) {
	handler := NewJobHandler(jobService, validator, log)

	writes := r
	if adminMiddleware != nil {
		writes = r.With(adminMiddleware)
	}

	r.Get("/", handler.ListJobs)
	r.Get("/search", handler.SearchJobs)
	r.Get("/{id}", handler.GetJob)
	writes.Post("/", handler.CreateJob)
	writes.Patch("/{id}", handler.UpdateJob)
	writes.Delete("/{id}", handler.DeleteJob)
}

func (h *JobHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.jobService.List(r.Context())
	if err != nil {
		writeServiceError(w, h.log, "list jobs", err, "failed to list jobs")
		return
	}
	writeData(w, http.StatusOK, jobs)
}

func (h *JobHandler) SearchJobs(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		errs := ValidationErrors{}
		errs.Add("q", "is required")
		writeValidation(w, errs)
		return
	}

	jobs, err := h.jobService.Search(r.Context(), q)
	if err != nil {
		writeServiceError(w, h.log, "search jobs", err, "failed to search jobs")
		return
	}
	writeData(w, http.StatusOK, jobs)
}

func (h *JobHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	job, err := h.jobService.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.log, "get job", err, "failed to fetch job")
		return
	}
	if job == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeData(w, http.StatusOK, job)
}

func (h *JobHandler) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req types.NewJob
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if errs := h.validator.Struct(req); errs != nil {
		writeValidation(w, errs)
		return
	}

	job, err := h.jobService.Create(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.log, "create job", err, "failed to create job")
		return
	}
	writeData(w, http.StatusCreated, job)
}

func (h *JobHandler) UpdateJob(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req types.JobPatch
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if errs := h.validator.Struct(req); errs != nil {
		writeValidation(w, errs)
		return
	}
	if req.Empty() {
		errs := ValidationErrors{}
		errs.Add("request", "at least one field is required")
		writeValidation(w, errs)
		return
	}

	updated, err := h.jobService.Update(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, h.log, "update job", err, "failed to update job")
		return
	}
	if !updated {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}

	job, err := h.jobService.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.log, "get job", err, "failed to fetch job")
		return
	}
	if job == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeData(w, http.StatusOK, job)
}

func (h *JobHandler) DeleteJob(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	deleted, err := h.jobService.Delete(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.log, "delete job", err, "failed to delete job")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeData(w, http.StatusOK, map[string]bool{"deleted": true})
}
