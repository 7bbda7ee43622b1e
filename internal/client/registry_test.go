package client

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilofleet/sentinel/internal/xmlsnapshot"
)

func TestRegistry_PutGetRemove(t *testing.T) {
	reg := NewRegistry()
	id := uuid.New().String()
	rimp := sampleRIMP(id)

	c, err := NewUnauthenticatedClient("10.0.0.5", rimp, &fakeFetcher{rimp: rimp})
	require.NoError(t, err)

	reg.PutUnauthenticated(c)
	assert.Equal(t, 1, reg.Count())

	got, ok := reg.Unauthenticated(c.UUID)
	require.True(t, ok)
	assert.Equal(t, c.Address, got.Address)

	reg.Remove(c.UUID)
	_, ok = reg.Unauthenticated(c.UUID)
	assert.False(t, ok)
	assert.Equal(t, 0, reg.Count())
}

func TestRegistry_SnapshotIsolation(t *testing.T) {
	reg := NewRegistry()
	for i := 0; i < 3; i++ {
		id := uuid.New().String()
		rimp := &xmlsnapshot.RIMP{}
		rimp.HSI.UUID = id
		c, err := NewUnauthenticatedClient("10.0.0.5", rimp, &fakeFetcher{rimp: rimp})
		require.NoError(t, err)
		reg.PutUnauthenticated(c)
	}

	snap := reg.UnauthenticatedSnapshot()
	assert.Len(t, snap, 3)
}
