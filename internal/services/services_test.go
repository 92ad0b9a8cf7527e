package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/tutrabajo/apiserver/config"
	"github.com/tutrabajo/apiserver/internal/crypto"
	"github.com/tutrabajo/apiserver/internal/db"
	"github.com/tutrabajo/apiserver/internal/store"
	"github.com/tutrabajo/apiserver/types"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

type recordedEvent struct {
	Type     string
	EntityID string
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recordingEmitter) Emit(_ context.Context, eventType, entityID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{Type: eventType, EntityID: entityID})
}

func (r *recordingEmitter) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

type testEnv struct {
	store  *store.RecordStore
	codec  *crypto.Codec
	events *recordingEmitter
	users  *UserService
	jobs   *JobService
	cvs    *CVService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := config.Config{
		Database: config.DatabaseConfig{
			Driver: db.DriverSQLite,
			Path:   filepath.Join(t.TempDir(), "services.db"),
		},
	}
	require.NoError(t, db.MigrateUp(cfg.Database))

	conn, err := db.Open(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	codec, err := crypto.NewCodec(testKey, true)
	require.NoError(t, err)

	log, _ := logtest.NewNullLogger()
	rs := store.New(conn, store.DialectQuestion)
	emitter := &recordingEmitter{}

	return &testEnv{
		store:  rs,
		codec:  codec,
		events: emitter,
		users:  NewUserService(rs, codec, emitter, log),
		jobs:   NewJobService(rs, codec, emitter, log),
		cvs:    NewCVService(rs, codec, emitter, log),
	}
}

func (e *testEnv) createUser(t *testing.T, email string) types.User {
	t.Helper()
	user, err := e.users.Create(context.Background(), types.NewUser{Email: email, Name: "Test User"})
	require.NoError(t, err)
	return user
}

func (e *testEnv) count(t *testing.T, table string) int64 {
	t.Helper()
	rec, err := e.store.FetchOne(context.Background(), "SELECT COUNT(*) AS count FROM "+table)
	require.NoError(t, err)
	return asInt64(field(rec, "count"))
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }
