package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func serveAdmin(t *testing.T, secret, header string) (*httptest.ResponseRecorder, string) {
	t.Helper()

	var subject string
	handler := RequireAdmin(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject = adminSubject(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/admin/stats", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, subject
}

func TestRequireAdmin(t *testing.T) {
	t.Parallel()

	const secret = "s3cret"

	token, err := IssueAdminToken(secret, "ops@example.com", time.Hour)
	require.NoError(t, err)

	rec, subject := serveAdmin(t, secret, "Bearer "+token)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "ops@example.com", subject)

	rec, _ = serveAdmin(t, secret, "bearer "+token)
	require.Equal(t, http.StatusNoContent, rec.Code)

	for name, header := range map[string]string{
		"missing":      "",
		"basic":        "Basic abc",
		"empty bearer": "Bearer ",
		"garbage":      "Bearer not-a-jwt",
	} {
		rec, _ := serveAdmin(t, secret, header)
		require.Equal(t, http.StatusUnauthorized, rec.Code, name)
	}

	other, err := IssueAdminToken("other", "ops", time.Hour)
	require.NoError(t, err)
	rec, _ = serveAdmin(t, secret, "Bearer "+other)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAdminRejectsExpiredAndNonAdmin(t *testing.T) {
	t.Parallel()

	const secret = "s3cret"
	sign := func(claims AdminClaims) string {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		require.NoError(t, err)
		return token
	}

	expired := sign(AdminClaims{
		Role: adminRole,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "ops",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	rec, _ := serveAdmin(t, secret, "Bearer "+expired)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	noExpiry := sign(AdminClaims{
		Role:             adminRole,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "ops"},
	})
	rec, _ = serveAdmin(t, secret, "Bearer "+noExpiry)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	user := sign(AdminClaims{
		Role: "user",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "someone",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	rec, _ = serveAdmin(t, secret, "Bearer "+user)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestIssueAdminTokenRequiresInputs(t *testing.T) {
	t.Parallel()

	_, err := IssueAdminToken("", "ops", time.Hour)
	require.Error(t, err)
	_, err = IssueAdminToken("secret", " ", time.Hour)
	require.Error(t, err)

	token, err := IssueAdminToken("secret", "ops", 0)
	require.NoError(t, err)
	claims, err := parseAdminToken(token, []byte("secret"))
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(defaultTokenTTL), claims.ExpiresAt.Time, time.Minute)
}
