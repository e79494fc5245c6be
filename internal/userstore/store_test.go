package userstore

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craftdesk/mailroom/internal/config"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	db, err := Open(filepath.Join(t.TempDir(), "users.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewStore(db, logger)
}

func TestUpsertAndGetUser(t *testing.T) {
	s := testStore(t)

	rec := &config.UserRecord{
		ID:           "u1",
		Email:        "u1@example.com",
		SMTPHost:     "smtp.example.com",
		SMTPUser:     "u1@example.com",
		SMTPPassword: "secret",
		SMTPEnabled:  true,
	}
	require.NoError(t, s.UpsertUser(rec))

	got, err := s.GetUserByID("u1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec.SMTPHost, got.SMTPHost)
	assert.Equal(t, rec.SMTPPassword, got.SMTPPassword)
	assert.True(t, got.SMTPEnabled)
}

func TestUpsertUpdatesExisting(t *testing.T) {
	s := testStore(t)

	rec := &config.UserRecord{ID: "u1", SMTPHost: "smtp.old.example", SMTPEnabled: true}
	require.NoError(t, s.UpsertUser(rec))

	rec.SMTPHost = "smtp.new.example"
	rec.SMTPEnabled = false
	require.NoError(t, s.UpsertUser(rec))

	got, err := s.GetUserByID("u1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "smtp.new.example", got.SMTPHost)
	assert.False(t, got.SMTPEnabled)
}

func TestGetUserByID_Missing(t *testing.T) {
	s := testStore(t)

	got, err := s.GetUserByID("nobody")
	require.NoError(t, err)
	assert.Nil(t, got)
}
