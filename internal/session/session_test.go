package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uconnect/internal/access"
)

func newManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(Config{Secret: "0123456789abcdef0123"})
	require.NoError(t, err)
	return m
}

func TestNewManager(t *testing.T) {
	_, err := NewManager(Config{Secret: "short"})
	assert.Error(t, err)

	m := newManager(t)
	assert.Equal(t, DefaultMaxAge, m.maxAge)
}

func TestManager_EncodeDecode(t *testing.T) {
	m := newManager(t)
	viewer := access.Viewer{StudentID: 3, Email: "a@uni.edu", FirstName: "A", LastName: "B", SchoolID: 9, SchoolDomain: "uni.edu"}

	raw, err := m.Encode(FromViewer(viewer))
	require.NoError(t, err)

	d, err := m.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, viewer, d.Viewer())

	t.Run("tampered", func(t *testing.T) {
		_, err := m.Decode(raw + "x")
		assert.ErrorIs(t, err, ErrInvalidSession)
	})

	t.Run("other secret", func(t *testing.T) {
		other, err := NewManager(Config{Secret: "another-secret-of-length"})
		require.NoError(t, err)
		_, err = other.Decode(raw)
		assert.ErrorIs(t, err, ErrInvalidSession)
	})

	t.Run("expired", func(t *testing.T) {
		m.now = func() time.Time { return time.Now().Add(8 * 24 * time.Hour) }
		defer func() { m.now = time.Now }()
		_, err := m.Decode(raw)
		assert.ErrorIs(t, err, ErrInvalidSession)
	})
}

func TestManager_Cookie(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := newManager(t)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	require.NoError(t, m.Commit(c, Data{ID: 1, School: "uni.edu", SchoolID: 2}))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	ck := cookies[0]
	assert.Equal(t, CookieName, ck.Name)
	assert.True(t, ck.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, ck.SameSite)
	assert.Equal(t, int(DefaultMaxAge/time.Second), ck.MaxAge)

	rec2 := httptest.NewRecorder()
	c2, _ := gin.CreateTestContext(rec2)
	c2.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c2.Request.AddCookie(ck)
	d, ok := m.Load(c2)
	require.True(t, ok)
	assert.Equal(t, int64(1), d.ID)

	m.Destroy(c2)
	out := rec2.Result().Cookies()
	require.Len(t, out, 1)
	assert.True(t, out[0].MaxAge < 0)
}

func TestViewerFrom(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	assert.False(t, ViewerFrom(c).IsAuthenticated())
	SetViewer(c, access.Viewer{StudentID: 5})
	assert.Equal(t, int64(5), ViewerFrom(c).StudentID)
}
