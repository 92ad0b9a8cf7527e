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

const cvListLimit = 100

// CVService stores CVs with their content encrypted at rest. Content is
// encrypted before every write and decrypted after single-CV reads.
type CVService struct {
	store  RecordStore
	codec  ContentCodec
	events Emitter
	log    logrus.FieldLogger
}

func NewCVService(store RecordStore, codec ContentCodec, emitter Emitter, log logrus.FieldLogger) *CVService {
	return &CVService{
		store:  store,
		codec:  codec,
		events: emitterOrDiscard(emitter),
		log:    log,
	}
}

// Upload encrypts and stores a CV. The returned CV carries no content.
// ErrUnknownUser is returned when the owner does not exist.
func (s *CVService) Upload(ctx context.Context, in types.NewCV) (types.CV, error) {
	encrypted, err := s.codec.EncryptString(in.Content)
	if err != nil {
		return types.CV{}, fmt.Errorf("encrypt cv: %w", err)
	}

	id, err := s.codec.GenerateID()
	if err != nil {
		return types.CV{}, fmt.Errorf("generate cv id: %w", err)
	}

	cv := types.CV{
		ID:         id,
		UserID:     strings.TrimSpace(in.UserID),
		Filename:   strings.TrimSpace(in.Filename),
		UploadedAt: now(),
	}
	rec := store.NewRecord(5).
		With("id", cv.ID).
		With("user_id", cv.UserID).
		With("filename", cv.Filename).
		With("content", encrypted).
		With("uploaded_at", cv.UploadedAt)

	if _, err := s.store.Insert(ctx, "cvs", rec); err != nil {
		if store.IsForeignKeyViolation(err) {
			return types.CV{}, ErrUnknownUser
		}
		return types.CV{}, fmt.Errorf("upload cv: %w", err)
	}

	s.log.WithFields(logrus.Fields{"cv_id": cv.ID, "user_id": cv.UserID}).Info("cv uploaded")
	s.events.Emit(ctx, events.CVUploaded, cv.ID)
	return cv, nil
}

// GetByID returns the CV with its content decrypted, or nil when it does not
// exist.
func (s *CVService) GetByID(ctx context.Context, id string) (*types.CV, error) {
	const query = `
		SELECT id, user_id, filename, content, uploaded_at
		FROM cvs
		WHERE id = ?`
	rec, err := s.store.FetchOne(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("get cv: %w", err)
	}
	if rec == nil {
		return nil, nil
	}
	cv, err := s.decode(rec, true)
	if err != nil {
		return nil, err
	}
	return &cv, nil
}

// ListByUser returns a user's CVs, newest first, with content decrypted.
func (s *CVService) ListByUser(ctx context.Context, userID string) ([]types.CV, error) {
	const query = `
		SELECT id, user_id, filename, content, uploaded_at
		FROM cvs
		WHERE user_id = ?
		ORDER BY uploaded_at DESC
		LIMIT ?`
	return s.fetchAll(ctx, true, query, userID, cvListLimit)
}

// List returns CV metadata, newest first. Content is never selected.
func (s *CVService) List(ctx context.Context) ([]types.CV, error) {
	const query = `
		SELECT id, user_id, filename, uploaded_at
		FROM cvs
		ORDER BY uploaded_at DESC
		LIMIT ?`
	return s.fetchAll(ctx, false, query, cvListLimit)
}

// Delete removes the CV and reports whether it existed.
func (s *CVService) Delete(ctx context.Context, id string) (bool, error) {
	n, err := s.store.Delete(ctx, "cvs", "id = ?", id)
	if err != nil {
		return false, fmt.Errorf("delete cv: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	s.log.WithField("cv_id", id).Info("cv deleted")
	s.events.Emit(ctx, events.CVDeleted, id)
	return true, nil
}

func (s *CVService) fetchAll(ctx context.Context, withContent bool, query string, args ...any) ([]types.CV, error) {
	records, err := s.store.FetchAll(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list cvs: %w", err)
	}

	cvs := make([]types.CV, 0, len(records))
	for _, rec := range records {
		cv, err := s.decode(rec, withContent)
		if err != nil {
			return nil, err
		}
		cvs = append(cvs, cv)
	}
	return cvs, nil
}

func (s *CVService) decode(rec store.Record, withContent bool) (types.CV, error) {
	uploadedAt, err := asTime(field(rec, "uploaded_at"))
	if err != nil {
		return types.CV{}, fmt.Errorf("decode cv: %w", err)
	}
	cv := types.CV{
		ID:         asString(field(rec, "id")),
		UserID:     asString(field(rec, "user_id")),
		Filename:   asString(field(rec, "filename")),
		UploadedAt: uploadedAt,
	}
	if !withContent {
		return cv, nil
	}

	content, err := s.codec.DecryptString(asString(field(rec, "content")))
	if err != nil {
		s.log.WithError(err).WithField("cv_id", cv.ID).Error("failed to decrypt cv content")
		return types.CV{}, fmt.Errorf("decrypt cv %s: %w", cv.ID, err)
	}
	cv.Content = content
	return cv, nil
}
