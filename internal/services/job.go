package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/tutrabajo/apiserver/internal/events"
	"github.com/tutrabajo/apiserver/internal/store"
	"github.com/tutrabajo/apiserver/types"
)

const (
	jobListLimit   = 50
	jobSearchLimit = 20
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// JobService encapsulates job posting use-cases.
type JobService struct {
	store  RecordStore
	ids    IDGenerator
	events Emitter
	log    logrus.FieldLogger
}

func NewJobService(store RecordStore, ids IDGenerator, emitter Emitter, log logrus.FieldLogger) *JobService {
	return &JobService{
		store:  store,
		ids:    ids,
		events: emitterOrDiscard(emitter),
		log:    log,
	}
}

// Create stores a new job. Jobs are published unless told otherwise.
func (s *JobService) Create(ctx context.Context, in types.NewJob) (types.Job, error) {
	id, err := s.ids.GenerateID()
	if err != nil {
		return types.Job{}, fmt.Errorf("generate job id: %w", err)
	}

	published := true
	if in.Published != nil {
		published = *in.Published
	}

	job := types.Job{
		ID:          id,
		Title:       strings.TrimSpace(in.Title),
		Company:     strings.TrimSpace(in.Company),
		Location:    strings.TrimSpace(in.Location),
		Salary:      optional(in.Salary),
		Description: in.Description,
		Published:   published,
		CreatedAt:   now(),
	}
	rec := store.NewRecord(8).
		With("id", job.ID).
		With("title", job.Title).
		With("company", job.Company).
		With("location", job.Location).
		With("salary", nullable(job.Salary)).
		With("description", job.Description).
		With("published", job.Published).
		With("created_at", job.CreatedAt)

	if _, err := s.store.Insert(ctx, "jobs", rec); err != nil {
		return types.Job{}, fmt.Errorf("create job: %w", err)
	}

	s.log.WithField("job_id", job.ID).Info("job created")
	s.events.Emit(ctx, events.JobCreated, job.ID)
	return job, nil
}

// GetByID returns the job, published or not, or nil when it does not exist.
func (s *JobService) GetByID(ctx context.Context, id string) (*types.Job, error) {
	const query = `
		SELECT id, title, company, location, salary, description, published, created_at
		FROM jobs
		WHERE id = ?`
	rec, err := s.store.FetchOne(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	if rec == nil {
		return nil, nil
	}
	job, err := jobFromRecord(rec)
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// List returns the newest published jobs.
func (s *JobService) List(ctx context.Context) ([]types.Job, error) {
	const query = `
		SELECT id, title, company, location, salary, description, published, created_at
		FROM jobs
		WHERE published = ?
		ORDER BY created_at DESC
		LIMIT ?`
	return s.fetchAll(ctx, query, true, jobListLimit)
}

// Search matches published jobs whose title contains q, ignoring case. LIKE
// wildcards in q match literally.
func (s *JobService) Search(ctx context.Context, q string) ([]types.Job, error) {
	const query = `
		SELECT id, title, company, location, salary, description, published, created_at
		FROM jobs
		WHERE LOWER(title) LIKE LOWER(?) ESCAPE '\' AND published = ?
		ORDER BY created_at DESC
		LIMIT ?`
	pattern := "%" + likeEscaper.Replace(strings.TrimSpace(q)) + "%"
	return s.fetchAll(ctx, query, pattern, true, jobSearchLimit)
}

// Update applies the non-nil fields of patch. It reports whether a job was
// changed; an empty patch changes nothing.
func (s *JobService) Update(ctx context.Context, id string, patch types.JobPatch) (bool, error) {
	if patch.Empty() {
		return false, nil
	}

	rec := store.NewRecord(6)
	if patch.Title != nil {
		rec = rec.With("title", strings.TrimSpace(*patch.Title))
	}
	if patch.Company != nil {
		rec = rec.With("company", strings.TrimSpace(*patch.Company))
	}
	if patch.Location != nil {
		rec = rec.With("location", strings.TrimSpace(*patch.Location))
	}
	if patch.Salary != nil {
		rec = rec.With("salary", nullable(optional(patch.Salary)))
	}
	if patch.Description != nil {
		rec = rec.With("description", *patch.Description)
	}
	if patch.Published != nil {
		rec = rec.With("published", *patch.Published)
	}

	n, err := s.store.Update(ctx, "jobs", rec, "id = ?", id)
	if err != nil {
		return false, fmt.Errorf("update job: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	s.log.WithFields(logrus.Fields{"job_id": id, "fields": rec.Names()}).Info("job updated")
	s.events.Emit(ctx, events.JobUpdated, id)
	return true, nil
}

// Delete removes the job and reports whether it existed.
func (s *JobService) Delete(ctx context.Context, id string) (bool, error) {
	n, err := s.store.Delete(ctx, "jobs", "id = ?", id)
	if err != nil {
		return false, fmt.Errorf("delete job: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	s.log.WithField("job_id", id).Info("job deleted")
	s.events.Emit(ctx, events.JobDeleted, id)
	return true, nil
}

func (s *JobService) fetchAll(ctx context.Context, query string, args ...any) ([]types.Job, error) {
	records, err := s.store.FetchAll(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}

	jobs := make([]types.Job, 0, len(records))
	for _, rec := range records {
		job, err := jobFromRecord(rec)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func jobFromRecord(rec store.Record) (types.Job, error) {
	createdAt, err := asTime(field(rec, "created_at"))
	if err != nil {
		return types.Job{}, fmt.Errorf("decode job: %w", err)
	}
	return types.Job{
		ID:          asString(field(rec, "id")),
		Title:       asString(field(rec, "title")),
		Company:     asString(field(rec, "company")),
		Location:    asString(field(rec, "location")),
		Salary:      asNullString(field(rec, "salary")),
		Description: asString(field(rec, "description")),
		Published:   asBool(field(rec, "published")),
		CreatedAt:   createdAt,
	}, nil
}

// optional trims s and maps blank values to nil.
func optional(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
