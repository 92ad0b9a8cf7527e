package services

import (
	"context"
	"regexp"
	"strings"
	"testing"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/tutrabajo/apiserver/internal/crypto"
	"github.com/tutrabajo/apiserver/internal/events"
	"github.com/tutrabajo/apiserver/internal/store"
	"github.com/tutrabajo/apiserver/types"
)

var ciphertextPattern = regexp.MustCompile(`^[0-9a-f]{32}:[0-9a-f]+$`)

func TestCVContentIsEncryptedAtRest(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	user := env.createUser(t, "cv@example.com")
	const plaintext = "Experienced engineer"

	cv, err := env.cvs.Upload(ctx, types.NewCV{UserID: user.ID, Filename: "cv.pdf", Content: plaintext})
	require.NoError(t, err)
	require.Empty(t, cv.Content)
	require.Equal(t, "cv.pdf", cv.Filename)
	require.False(t, cv.UploadedAt.IsZero())

	raw, err := env.store.FetchOne(ctx, "SELECT content FROM cvs WHERE id = ?", cv.ID)
	require.NoError(t, err)
	stored := asString(field(raw, "content"))
	require.Regexp(t, ciphertextPattern, stored)
	require.NotContains(t, stored, plaintext)

	got, err := env.cvs.GetByID(ctx, cv.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, plaintext, got.Content)
	require.Equal(t, user.ID, got.UserID)

	require.Equal(t, []string{events.UserCreated, events.CVUploaded}, env.events.types())
}

func TestCVUploadUnknownUser(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	_, err := env.cvs.Upload(context.Background(), types.NewCV{
		UserID:   "00000000-0000-4000-8000-000000000000",
		Filename: "cv.pdf",
		Content:  "x",
	})
	require.ErrorIs(t, err, ErrUnknownUser)
	require.Zero(t, env.count(t, "cvs"))
}

func TestCVListings(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	ana := env.createUser(t, "ana@example.com")
	bea := env.createUser(t, "bea@example.com")

	first, err := env.cvs.Upload(ctx, types.NewCV{UserID: ana.ID, Filename: "old.pdf", Content: "old"})
	require.NoError(t, err)
	second, err := env.cvs.Upload(ctx, types.NewCV{UserID: ana.ID, Filename: "new.pdf", Content: "new"})
	require.NoError(t, err)
	_, err = env.cvs.Upload(ctx, types.NewCV{UserID: bea.ID, Filename: "bea.pdf", Content: "bea"})
	require.NoError(t, err)

	mine, err := env.cvs.ListByUser(ctx, ana.ID)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	require.Equal(t, second.ID, mine[0].ID)
	require.Equal(t, "new", mine[0].Content)
	require.Equal(t, first.ID, mine[1].ID)
	require.Equal(t, "old", mine[1].Content)

	all, err := env.cvs.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for _, cv := range all {
		require.Empty(t, cv.Content)
		require.NotEmpty(t, cv.Filename)
	}

	none, err := env.cvs.ListByUser(ctx, "00000000-0000-4000-8000-000000000000")
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestCVDeleteIsIdempotent(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	user := env.createUser(t, "del@example.com")
	cv, err := env.cvs.Upload(ctx, types.NewCV{UserID: user.ID, Filename: "cv.pdf", Content: "x"})
	require.NoError(t, err)

	deleted, err := env.cvs.Delete(ctx, cv.ID)
	require.NoError(t, err)
	require.True(t, deleted)

	for i := 0; i < 2; i++ {
		deleted, err = env.cvs.Delete(ctx, cv.ID)
		require.NoError(t, err)
		require.False(t, deleted)
	}
}

func TestCVCorruptContentFailsRead(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	user := env.createUser(t, "corrupt@example.com")
	cv, err := env.cvs.Upload(ctx, types.NewCV{UserID: user.ID, Filename: "cv.pdf", Content: "secret"})
	require.NoError(t, err)

	_, err = env.store.Update(ctx, "cvs", store.NewRecord(1).With("content", "not-a-ciphertext"), "id = ?", cv.ID)
	require.NoError(t, err)

	_, err = env.cvs.GetByID(ctx, cv.ID)
	require.ErrorIs(t, err, crypto.ErrFormat)
}

func TestCVReadWithWrongKeyFails(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	user := env.createUser(t, "rotated@example.com")
	cv, err := env.cvs.Upload(ctx, types.NewCV{UserID: user.ID, Filename: "cv.pdf", Content: "secret"})
	require.NoError(t, err)

	otherCodec, err := crypto.NewCodec(strings.Repeat("ab", 32), true)
	require.NoError(t, err)
	log, _ := logtest.NewNullLogger()
	rotated := NewCVService(env.store, otherCodec, nil, log)

	_, err = rotated.GetByID(ctx, cv.ID)
	require.ErrorIs(t, err, crypto.ErrDecryption)

	_, err = rotated.ListByUser(ctx, user.ID)
	require.ErrorIs(t, err, crypto.ErrDecryption)

	listing, err := rotated.List(ctx)
	require.NoError(t, err)
	require.Len(t, listing, 1)
}
