package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heilo27/rightrudder/internal/pkg/apperrors"
)

func TestCreateShareSetsUpZoneAndShareInfo(t *testing.T) {
	f := newServiceFixture(t)
	student := f.createStudent(t, "Amelia", "Reed")

	share, err := f.shares.CreateShare(f.ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, f.sync.ZoneForStudent(student.ID), share.Zone)
	assert.Equal(t, student.ID.String(), share.RootRecordID)

	// The root record was pushed before the share was created.
	record, err := f.store.FetchRecord(f.ctx, share.Zone, student.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "Amelia", record.Fields["firstName"])

	reloaded, err := f.students.GetByID(f.ctx, student.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.HasActiveShare())
	require.NotNil(t, reloaded.RemoteRecordID)
	assert.Equal(t, student.ID.String(), *reloaded.RemoteRecordID)
}

func TestCreateShareIsIdempotent(t *testing.T) {
	f := newServiceFixture(t)
	student := f.createStudent(t, "Amelia", "Reed")

	first, err := f.shares.CreateShare(f.ctx, student.ID)
	require.NoError(t, err)
	second, err := f.shares.CreateShare(f.ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestCreateShareFailsOffline(t *testing.T) {
	f := newServiceFixture(t)
	student := f.createStudent(t, "Amelia", "Reed")

	f.store.SetAvailable(false)
	_, err := f.shares.CreateShare(f.ctx, student.ID)
	assert.ErrorIs(t, err, apperrors.ErrRemoteUnavailable)

	// Nothing was recorded locally; the share is all or nothing.
	reloaded, err := f.students.GetByID(f.ctx, student.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.HasActiveShare())
}

func TestRevokeShareKeepsRemoteRecordLink(t *testing.T) {
	f := newServiceFixture(t)
	student := f.createStudent(t, "Amelia", "Reed")

	_, err := f.shares.CreateShare(f.ctx, student.ID)
	require.NoError(t, err)
	require.NoError(t, f.shares.RevokeShare(f.ctx, student.ID))

	reloaded, err := f.students.GetByID(f.ctx, student.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.HasActiveShare())
	// The record link survives so a future share does not re-push everything.
	assert.NotNil(t, reloaded.RemoteRecordID)

	_, err = f.shares.GetShare(f.ctx, student.ID)
	assert.ErrorIs(t, err, apperrors.ErrShareNotFound)
}

func TestRevokeShareWithoutActiveShare(t *testing.T) {
	f := newServiceFixture(t)
	student := f.createStudent(t, "Amelia", "Reed")

	err := f.shares.RevokeShare(f.ctx, student.ID)
	assert.ErrorIs(t, err, apperrors.ErrShareNotFound)
}
