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

const userListLimit = 100

// UserService encapsulates user use-cases.
type UserService struct {
	store  TxRecordStore
	ids    IDGenerator
	events Emitter
	log    logrus.FieldLogger
}

func NewUserService(store TxRecordStore, ids IDGenerator, emitter Emitter, log logrus.FieldLogger) *UserService {
	return &UserService{
		store:  store,
		ids:    ids,
		events: emitterOrDiscard(emitter),
		log:    log,
	}
}

// Create registers a new user. It returns ErrDuplicate when the email is
// already taken, whether found up front or rejected by the unique index.
func (s *UserService) Create(ctx context.Context, in types.NewUser) (types.User, error) {
	email := strings.TrimSpace(in.Email)

	existing, err := s.GetByEmail(ctx, email)
	if err != nil {
		return types.User{}, err
	}
	if existing != nil {
		return types.User{}, ErrDuplicate
	}

	id, err := s.ids.GenerateID()
	if err != nil {
		return types.User{}, fmt.Errorf("generate user id: %w", err)
	}

	user := types.User{
		ID:        id,
		Email:     email,
		Name:      strings.TrimSpace(in.Name),
		CreatedAt: now(),
	}
	rec := store.NewRecord(4).
		With("id", user.ID).
		With("email", user.Email).
		With("name", user.Name).
		With("created_at", user.CreatedAt)

	if _, err := s.store.Insert(ctx, "users", rec); err != nil {
		if store.IsUniqueViolation(err) {
			return types.User{}, ErrDuplicate
		}
		return types.User{}, fmt.Errorf("create user: %w", err)
	}

	s.log.WithField("user_id", user.ID).Info("user created")
	s.events.Emit(ctx, events.UserCreated, user.ID)
	return user, nil
}

// GetByID returns the user or nil when it does not exist.
func (s *UserService) GetByID(ctx context.Context, id string) (*types.User, error) {
	const query = `
		SELECT id, email, name, created_at
		FROM users
		WHERE id = ?`
	return s.fetchOne(ctx, query, id)
}

// GetByEmail returns the user or nil when it does not exist.
func (s *UserService) GetByEmail(ctx context.Context, email string) (*types.User, error) {
	const query = `
		SELECT id, email, name, created_at
		FROM users
		WHERE email = ?`
	return s.fetchOne(ctx, query, email)
}

// List returns the most recently created users first.
func (s *UserService) List(ctx context.Context) ([]types.User, error) {
	const query = `
		SELECT id, email, name, created_at
		FROM users
		ORDER BY created_at DESC
		LIMIT ?`
	records, err := s.store.FetchAll(ctx, query, userListLimit)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	users := make([]types.User, 0, len(records))
	for _, rec := range records {
		user, err := userFromRecord(rec)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

// Delete removes the user's CVs and then the user in one transaction. It
// reports whether the user existed.
func (s *UserService) Delete(ctx context.Context, id string) (bool, error) {
	var removed int64
	err := s.store.InTx(ctx, func(tx RecordStore) error {
		cvs, err := tx.Delete(ctx, "cvs", "user_id = ?", id)
		if err != nil {
			return err
		}
		removed, err = tx.Delete(ctx, "users", "id = ?", id)
		if err != nil {
			return err
		}
		if cvs > 0 {
			s.log.WithFields(logrus.Fields{"user_id": id, "cvs": cvs}).Debug("removed user cvs")
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("delete user: %w", err)
	}
	if removed == 0 {
		return false, nil
	}

	s.log.WithField("user_id", id).Info("user deleted")
	s.events.Emit(ctx, events.UserDeleted, id)
	return true, nil
}

// Stats counts users, CVs and jobs.
func (s *UserService) Stats(ctx context.Context) (types.Stats, error) {
	var stats types.Stats
	counts := []struct {
		query string
		dest  *int64
	}{
		{`SELECT COUNT(*) AS count FROM users`, &stats.TotalUsers},
		{`SELECT COUNT(*) AS count FROM cvs`, &stats.TotalCVs},
		{`SELECT COUNT(*) AS count FROM jobs`, &stats.TotalJobs},
	}
	for _, c := range counts {
		rec, err := s.store.FetchOne(ctx, c.query)
		if err != nil {
			return types.Stats{}, fmt.Errorf("stats: %w", err)
		}
		if rec != nil {
			*c.dest = asInt64(field(rec, "count"))
		}
	}
	return stats, nil
}

func (s *UserService) fetchOne(ctx context.Context, query string, args ...any) (*types.User, error) {
	rec, err := s.store.FetchOne(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if rec == nil {
		return nil, nil
	}
	user, err := userFromRecord(rec)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func userFromRecord(rec store.Record) (types.User, error) {
	createdAt, err := asTime(field(rec, "created_at"))
	if err != nil {
		return types.User{}, fmt.Errorf("decode user: %w", err)
	}
	return types.User{
		ID:        asString(field(rec, "id")),
		Email:     asString(field(rec, "email")),
		Name:      asString(field(rec, "name")),
		CreatedAt: createdAt,
	}, nil
}
