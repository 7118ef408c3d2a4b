package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSRFTokenLifecycle(t *testing.T) {
	m := NewCSRFManager("csrf-secret")
	ctx := context.Background()
	sess := &Session{ID: "abc"}

	token, err := m.EnsureToken(ctx, sess)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	again, err := m.EnsureToken(ctx, sess)
	require.NoError(t, err)
	require.Equal(t, token, again)

	require.NoError(t, m.VerifyToken(ctx, sess, token))
	require.ErrorIs(t, m.VerifyToken(ctx, sess, "nope"), ErrCSRFTokenMismatch)
	require.ErrorIs(t, m.VerifyToken(ctx, sess, ""), ErrCSRFTokenMissing)
	require.ErrorIs(t, m.VerifyToken(ctx, nil, token), ErrCSRFTokenMissing)

	rotated := m.Rotate(sess)
	require.NotEqual(t, token, rotated)
	require.ErrorIs(t, m.VerifyToken(ctx, sess, token), ErrCSRFTokenMismatch)
}

func TestCSRFTokenIsBoundToSession(t *testing.T) {
	m := NewCSRFManager("csrf-secret")
	ctx := context.Background()
	victim := &Session{ID: "victim"}
	token, err := m.EnsureToken(ctx, victim)
	require.NoError(t, err)

	// A token planted in another session does not verify there.
	attacker := &Session{ID: "attacker"}
	attacker.Set(CSRFSessionKey, token)
	assert.ErrorIs(t, m.VerifyToken(ctx, attacker, token), ErrCSRFTokenMismatch)

	// A renewed session id gets a fresh token.
	victim.ID = "renewed"
	fresh, err := m.EnsureToken(ctx, victim)
	require.NoError(t, err)
	assert.NotEqual(t, token, fresh)
	assert.NoError(t, m.VerifyToken(ctx, victim, fresh))

	other := NewCSRFManager("other-secret")
	assert.ErrorIs(t, other.VerifyToken(ctx, victim, fresh), ErrCSRFTokenMismatch)
}

func TestTokenFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(url.Values{CSRFFormField: {"form"}}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	assert.Equal(t, "form", TokenFromRequest(req))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"purpose":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(CSRFHeader, "header")
	assert.Equal(t, "header", TokenFromRequest(req))
}
