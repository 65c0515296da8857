package vsphere

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opslynx/patchlynx/pkg/models"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "administrator@vsphere.local",
		"exp": exp.Unix(),
	})
	s, err := tok.SignedString([]byte("test-key"))
	require.NoError(t, err)
	return s
}

func TestCheckTokenExpired(t *testing.T) {
	s := NewSession(models.ConnectionConfig{Server: "https://vc.example"}, logrus.New())

	err := s.checkToken(signedToken(t, time.Now().Add(-time.Hour)))
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestCheckTokenValid(t *testing.T) {
	s := NewSession(models.ConnectionConfig{Server: "https://vc.example"}, logrus.New())

	err := s.checkToken(signedToken(t, time.Now().Add(time.Hour)))
	assert.NoError(t, err)
}

func TestCheckTokenGarbage(t *testing.T) {
	s := NewSession(models.ConnectionConfig{Server: "https://vc.example"}, logrus.New())

	err := s.checkToken("not-a-jwt")
	assert.Error(t, err)
}

func TestSessionInactiveByDefault(t *testing.T) {
	s := NewSession(models.ConnectionConfig{Server: "https://vc.example"}, logrus.New())
	assert.False(t, s.Active())
}
