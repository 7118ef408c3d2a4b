package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestSessions(t *testing.T) (*SessionManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, "pf_session", "secret", time.Hour, false), mr
}

func TestSessionRoundTripKeepsIdentity(t *testing.T) {
	sm, _ := newTestSessions(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	require.NoError(t, err)
	require.False(t, sess.Authenticated())

	sess.SetIdentity(Identity{UserID: 42, Email: "req@procureflow.local", Role: RoleRequestor})
	sess.AddFlash(FlashMessage{Kind: "success", Message: "hi"})
	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, req, sess))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.AddCookie(cookies[0])
	loaded, err := sm.Load(ctx, next)
	require.NoError(t, err)
	require.Equal(t, sess.ID, loaded.ID)
	require.Equal(t, "42", loaded.User())
	require.Equal(t, "req@procureflow.local", loaded.Identity().Email)
	flash := loaded.PopFlash()
	require.NotNil(t, flash)
	require.Equal(t, "hi", flash.Message)
	require.Nil(t, loaded.PopFlash())
}

func TestSessionRejectsTamperedCookie(t *testing.T) {
	sm, _ := newTestSessions(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	require.NoError(t, err)
	sess.SetIdentity(Identity{UserID: 1, Role: RoleSuperadmin})
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), req, sess))

	forged := httptest.NewRequest(http.MethodGet, "/", nil)
	forged.AddCookie(&http.Cookie{Name: sm.CookieName(), Value: sess.ID + ".bogus"})
	loaded, err := sm.Load(ctx, forged)
	require.NoError(t, err)
	require.NotEqual(t, sess.ID, loaded.ID)
	require.False(t, loaded.Authenticated())
}

func TestSessionDestroyAndRenew(t *testing.T) {
	sm, mr := newTestSessions(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	require.NoError(t, err)
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), req, sess))
	oldID := sess.ID
	require.True(t, mr.Exists("session:"+oldID))

	sess.isNew = false
	require.NoError(t, sm.Renew(ctx, sess))
	require.NotEqual(t, oldID, sess.ID)
	require.False(t, mr.Exists("session:"+oldID))
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), req, sess))

	sm.Destroy(sess)
	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, req, sess))
	require.False(t, mr.Exists("session:"+sess.ID))
	require.Equal(t, -1, rec.Result().Cookies()[0].MaxAge)
}

func TestIdentityFromContext(t *testing.T) {
	_, ok := IdentityFromContext(context.Background())
	require.False(t, ok)

	sess := &Session{}
	sess.SetIdentity(Identity{UserID: 9, Role: RoleRequestor})
	id, ok := IdentityFromContext(ContextWithSession(context.Background(), sess))
	require.True(t, ok)
	require.Equal(t, int64(9), id.UserID)
}
