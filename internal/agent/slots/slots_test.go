package slots

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDefs() []Definition {
	return []Definition{
		{ID: "last_spray_date", Description: "When did the farmer last spray?"},
		{ID: "location", Description: "Where is the farm?"},
		{ID: "potato_variety", Description: "Which variety?"},
	}
}

func TestFillThenValue(t *testing.T) {
	s := NewStore(testDefs())

	require.NoError(t, s.Fill("location", "Musanze"))
	v, ok, err := s.Value("location")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Musanze", v)

	// later extractions may overwrite
	require.NoError(t, s.Fill("location", "Kigali"))
	v, ok, err = s.Value("location")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Kigali", v)
}

func TestUnsetValue(t *testing.T) {
	s := NewStore(testDefs())

	v, ok, err := s.Value("potato_variety")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, v)
}

func TestUnknownSlotIsHardFailure(t *testing.T) {
	s := NewStore(testDefs())

	for _, id := range []string{"", "soil_type", "LOCATION", "location "} {
		err := s.Fill(id, "x")
		require.Error(t, err, "fill %q", id)
		var unknown *UnknownSlotError
		require.ErrorAs(t, err, &unknown)
		assert.Equal(t, id, unknown.ID)

		_, _, err = s.Value(id)
		require.ErrorAs(t, err, &unknown)
	}
}

func TestAllFilled(t *testing.T) {
	s := NewStore(testDefs())
	assert.False(t, s.AllFilled())

	require.NoError(t, s.Fill("last_spray_date", "2024-01-01"))
	require.NoError(t, s.Fill("location", "Musanze"))
	assert.False(t, s.AllFilled(), "one slot still unset")

	require.NoError(t, s.Fill("potato_variety", "Ndamira"))
	assert.True(t, s.AllFilled())
}

func TestSnapshotIsIndependent(t *testing.T) {
	s := NewStore(testDefs())
	require.NoError(t, s.Fill("location", "Musanze"))

	snap := s.Snapshot()
	require.NoError(t, s.Fill("location", "Kigali"))
	require.NoError(t, s.Fill("potato_variety", "Ndamira"))

	require.Len(t, snap, 3)
	assert.Equal(t, "last_spray_date", snap[0].ID)
	assert.Nil(t, snap[0].Value)
	require.NotNil(t, snap[1].Value)
	assert.Equal(t, "Musanze", *snap[1].Value)
	assert.Nil(t, snap[2].Value, "snapshot must not see later fills")
}

func TestCloneIsIndependent(t *testing.T) {
	s := NewStore(testDefs())
	require.NoError(t, s.Fill("location", "Musanze"))

	c := s.Clone()
	require.NoError(t, c.Fill("potato_variety", "Ndamira"))

	_, ok, err := s.Value("potato_variety")
	require.NoError(t, err)
	assert.False(t, ok, "clone fills must not leak into the source store")

	v, ok, err := c.Value("location")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Musanze", v)
}

func TestDefaultDefinitions(t *testing.T) {
	defs := DefaultDefinitions()
	require.Len(t, defs, 3)

	ids := make([]string, 0, len(defs))
	for _, d := range defs {
		ids = append(ids, d.ID)
		assert.NotEmpty(t, d.Description)
	}
	assert.Equal(t, []string{"last_spray_date", "location", "potato_variety"}, ids)
}

func TestUnknownSlotErrorMessage(t *testing.T) {
	err := error(&UnknownSlotError{ID: "soil_type"})
	assert.Equal(t, `unknown slot id "soil_type"`, err.Error())
	assert.False(t, errors.Is(err, &UnknownSlotError{ID: "other"}))
}
