// Package session keeps the signed-in student in an HS256-signed cookie.
package session

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"uconnect/internal/access"
)

const (
	CookieName    = "__uconnect_session"
	DefaultMaxAge = 7 * 24 * time.Hour

	viewerKey = "uconnect.viewer"
)

var ErrInvalidSession = errors.New("invalid session")

type Config struct {
	Secret string
	MaxAge time.Duration
	// Secure marks the cookie HTTPS-only. It is set in production.
	Secure bool
}

// Data is what the cookie carries about the student.
type Data struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	SchoolID  int64  `json:"school_id"`
	School    string `json:"school"`
}

func FromViewer(v access.Viewer) Data {
	return Data{
		ID:        v.StudentID,
		Email:     v.Email,
		FirstName: v.FirstName,
		LastName:  v.LastName,
		SchoolID:  v.SchoolID,
		School:    v.SchoolDomain,
	}
}

func (d Data) Viewer() access.Viewer {
	return access.Viewer{
		StudentID:    d.ID,
		Email:        d.Email,
		FirstName:    d.FirstName,
		LastName:     d.LastName,
		SchoolID:     d.SchoolID,
		SchoolDomain: d.School,
	}
}

type claims struct {
	Data
	jwt.RegisteredClaims
}

type Manager struct {
	secret []byte
	maxAge time.Duration
	secure bool
	now    func() time.Time
}

func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) < 16 {
		return nil, fmt.Errorf("session secret must be at least 16 bytes")
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = DefaultMaxAge
	}
	return &Manager{
		secret: []byte(cfg.Secret),
		maxAge: cfg.MaxAge,
		secure: cfg.Secure,
		now:    time.Now,
	}, nil
}

func (m *Manager) Encode(d Data) (string, error) {
	now := m.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Data: d,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(d.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.maxAge)),
		},
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	return signed, nil
}

func (m *Manager) Decode(raw string) (Data, error) {
	var c claims
	_, err := jwt.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return Data{}, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if c.Data.ID == 0 {
		return Data{}, ErrInvalidSession
	}
	return c.Data, nil
}

// Commit writes the session cookie with a fresh expiry.
func (m *Manager) Commit(c *gin.Context, d Data) error {
	value, err := m.Encode(d)
	if err != nil {
		return err
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, value, int(m.maxAge/time.Second), "/", "", m.secure, true)
	return nil
}

func (m *Manager) Destroy(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, "", -1, "/", "", m.secure, true)
}

// Load reads the session cookie of the request. ok is false for a missing,
// expired or tampered cookie.
func (m *Manager) Load(c *gin.Context) (Data, bool) {
	raw, err := c.Cookie(CookieName)
	if err != nil || raw == "" {
		return Data{}, false
	}
	d, err := m.Decode(raw)
	if err != nil {
		return Data{}, false
	}
	return d, true
}

// SetViewer stores the request's viewer for handlers.
func SetViewer(c *gin.Context, v access.Viewer) {
	c.Set(viewerKey, v)
}

// ViewerFrom returns the viewer stored by SetViewer, or an anonymous one.
func ViewerFrom(c *gin.Context) access.Viewer {
	if v, ok := c.Get(viewerKey); ok {
		if viewer, ok := v.(access.Viewer); ok {
			return viewer
		}
	}
	return access.Viewer{}
}
