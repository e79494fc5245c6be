package simstore

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craftdesk/mailroom/pkg/types"
)

func testStore() *Store {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewWithSeed(logger, 1)
}

func TestGetOrInit_SpamDataset(t *testing.T) {
	s := testStore()

	msgs := s.GetOrInit("u1", types.FolderSpam)
	require.Len(t, msgs, spamSeedCount)

	withAttachment := 0
	for _, m := range msgs {
		assert.NotEmpty(t, m.Subject)
		assert.NotEmpty(t, m.From)
		assert.False(t, m.Date.IsZero())
		assert.True(t, m.IsSpam)
		if m.HasAttachments {
			withAttachment++
		}
	}
	assert.Equal(t, spamSeedCount/spamAttachmentEvery, withAttachment)
}

func TestGetOrInit_DeterministicWithSeed(t *testing.T) {
	a := testStore().GetOrInit("u1", types.FolderSpam)
	b := testStore().GetOrInit("u1", types.FolderSpam)

	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].ID, b[i].ID)
		assert.Equal(t, a[i].Subject, b[i].Subject)
		assert.Equal(t, a[i].Date, b[i].Date)
		assert.Equal(t, a[i].IsRead, b[i].IsRead)
		assert.Equal(t, a[i].HasAttachments, b[i].HasAttachments)
	}

	// Canned folders reproduce too, ids included.
	assert.Equal(t,
		testStore().GetOrInit("u1", types.FolderInbox)[0].ID,
		testStore().GetOrInit("u1", types.FolderInbox)[0].ID)
}

func TestGetOrInit_SeedsPerFolder(t *testing.T) {
	s := testStore()

	assert.NotEmpty(t, s.GetOrInit("u1", types.FolderInbox))
	assert.NotEmpty(t, s.GetOrInit("u1", types.FolderSent))
	assert.NotEmpty(t, s.GetOrInit("u1", types.FolderTrash))

	// Folder matching is case-insensitive: same entry, not a re-seed.
	upper := s.GetOrInit("u1", "inbox")
	lower := s.GetOrInit("u1", "INBOX")
	require.Equal(t, len(upper), len(lower))
	assert.Equal(t, upper[0].ID, lower[0].ID)
}

func TestMarkRead_Idempotent(t *testing.T) {
	s := testStore()
	msgs := s.GetOrInit("u1", types.FolderInbox)
	target := msgs[0]

	require.True(t, s.MarkRead("u1", types.FolderInbox, target.ID, true))
	require.True(t, s.MarkRead("u1", types.FolderInbox, target.ID, true))

	assert.True(t, target.IsRead)
	assert.True(t, target.HasFlag(seenFlag))

	require.True(t, s.MarkRead("u1", types.FolderInbox, target.ID, false))
	assert.False(t, target.IsRead)
	assert.False(t, target.HasFlag(seenFlag))
}

func TestMarkRead_NotFound(t *testing.T) {
	s := testStore()
	assert.False(t, s.MarkRead("u1", types.FolderInbox, "no-such-id", true))
}

func TestMove_RoundTrip(t *testing.T) {
	s := testStore()
	original := s.GetOrInit("u1", types.FolderInbox)[0]
	text, html, subject := original.Text, original.HTML, original.Subject

	require.True(t, s.Move("u1", types.FolderInbox, original.ID, types.FolderTrash))

	trash := s.GetOrInit("u1", types.FolderTrash)
	// Moved messages surface newest-first.
	require.NotEmpty(t, trash)
	assert.Equal(t, original.ID, trash[0].ID)

	require.True(t, s.Move("u1", types.FolderTrash, original.ID, types.FolderInbox))

	inbox := s.GetOrInit("u1", types.FolderInbox)
	require.Equal(t, original.ID, inbox[0].ID)
	assert.Equal(t, text, inbox[0].Text)
	assert.Equal(t, html, inbox[0].HTML)
	assert.Equal(t, subject, inbox[0].Subject)
}

func TestMove_NotFoundInSource(t *testing.T) {
	s := testStore()
	assert.False(t, s.Move("u1", types.FolderInbox, "missing", types.FolderTrash))
}

func TestDelete_SoftThenHard(t *testing.T) {
	s := testStore()
	target := s.GetOrInit("u1", types.FolderInbox)[0]

	// Soft delete: gone from inbox, present in trash.
	require.True(t, s.Delete("u1", types.FolderInbox, target.ID))
	for _, m := range s.GetOrInit("u1", types.FolderInbox) {
		assert.NotEqual(t, target.ID, m.ID)
	}
	assert.Equal(t, target.ID, s.GetOrInit("u1", types.FolderTrash)[0].ID)

	// Hard delete from trash: gone everywhere.
	require.True(t, s.Delete("u1", types.FolderTrash, target.ID))
	for _, folder := range []string{types.FolderInbox, types.FolderSent, types.FolderSpam, types.FolderTrash} {
		for _, m := range s.GetOrInit("u1", folder) {
			assert.NotEqual(t, target.ID, m.ID)
		}
	}
}

func TestGetContent_MarksRead(t *testing.T) {
	s := testStore()

	var unread *types.EmailMessage
	for _, m := range s.GetOrInit("u1", types.FolderInbox) {
		if !m.IsRead {
			unread = m
			break
		}
	}
	require.NotNil(t, unread, "inbox seed should contain an unread message")

	got := s.GetContent("u1", types.FolderInbox, unread.ID)
	require.NotNil(t, got)
	assert.True(t, got.IsRead)
	assert.True(t, got.HasFlag(seenFlag))

	// Visible to subsequent reads.
	again := s.GetContent("u1", types.FolderInbox, unread.ID)
	require.NotNil(t, again)
	assert.True(t, again.IsRead)
}

func TestGetContent_NotFound(t *testing.T) {
	s := testStore()
	assert.Nil(t, s.GetContent("u1", types.FolderInbox, "missing"))
}

func TestMutationsIsolatedPerUser(t *testing.T) {
	s := testStore()

	u1 := s.GetOrInit("u1", types.FolderInbox)
	require.True(t, s.Delete("u1", types.FolderInbox, u1[0].ID))

	u2 := s.GetOrInit("u2", types.FolderInbox)
	assert.Len(t, u2, len(u1))
}
