package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChange_State(t *testing.T) {
	ts := time.Date(2021, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		change Change
		want   ChangeState
	}{
		{"merged wins", Change{OpenedAt: &ts, ClosedAt: &ts, MergedAt: &ts}, StateMerged},
		{"closed without merge", Change{OpenedAt: &ts, ClosedAt: &ts}, StateClosed},
		{"open", Change{OpenedAt: &ts}, StateOpen},
		{"no timestamps", Change{}, StateClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.change.State())
		})
	}
}

func TestChangeKey(t *testing.T) {
	assert.Equal(t, "GH-12345", ChangeKey(12345))

	id, err := ParseChangeKey("GH-42")
	require.NoError(t, err)
	assert.Equal(t, PRID(42), id)

	for _, key := range []string{"42", "GH-", "GH-abc", "GH-0", "bpo-42"} {
		_, err := ParseChangeKey(key)
		assert.Error(t, err, key)
	}
}

func TestChange_AddContributor(t *testing.T) {
	var c Change

	assert.True(t, c.AddContributor("alice"))
	assert.False(t, c.AddContributor("alice"))
	assert.False(t, c.AddContributor(NoUser))
	assert.Equal(t, []User{"alice"}, c.Contributors.Sorted())
}

func TestSet_JSON(t *testing.T) {
	s := NewSet[Label]("type-bug", "expert-asyncio", "type-bug")

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `["expert-asyncio","type-bug"]`, string(data))

	var decoded Set[Label]
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, s, decoded)

	var empty Set[User]
	data, err = json.Marshal(empty)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestChange_JSONNilSets(t *testing.T) {
	data, err := json.Marshal(&Change{Title: "no contributors yet"})
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, field := range []string{"contributors", "authors", "labels"} {
		assert.Equal(t, []any{}, raw[field], field)
	}
}
