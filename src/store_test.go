package taleweave

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.json")

	fs, err := NewFileStore(path)
	require.NoError(t, err)

	choice := "Open the letter"
	state := SessionState{
		ID:          "s1",
		CurrentTurn: 4,
		MaxTurns:    MaxTurns,
		Genre:       "Gothic Horror",
		Phase:       PhasePlaying,
		Narrative:   "The candle guttered.",
		Choices:     []string{"a", "b", "c"},
		History: []TurnRecord{
			{TurnNumber: 1, Narrative: "It began with a letter.", ChoiceMade: &choice},
		},
	}
	require.NoError(t, fs.Save(state))

	// A fresh store reading the same file sees the session.
	fs2, err := NewFileStore(path)
	require.NoError(t, err)
	loaded, ok, err := fs2.Load("s1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, state.Narrative, loaded.Narrative)
	require.Len(t, loaded.History, 1)
	require.NotNil(t, loaded.History[0].ChoiceMade)
	assert.Equal(t, choice, *loaded.History[0].ChoiceMade)

	require.NoError(t, fs2.Delete("s1"))
	_, ok, err = fs2.Load("s1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStoreMissingFile(t *testing.T) {
	fs, err := NewFileStore(filepath.Join(t.TempDir(), "nested", "sessions.json"))
	require.NoError(t, err)
	_, ok, err := fs.Load("nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	defer store.Close()

	state := SessionState{ID: "s2", CurrentTurn: 2, MaxTurns: MaxTurns, Phase: PhasePlaying, Narrative: "n"}
	require.NoError(t, store.Save(state))

	// Upsert replaces, not duplicates.
	state.Narrative = "updated"
	require.NoError(t, store.Save(state))

	loaded, ok, err := store.Load("s2")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "updated", loaded.Narrative)

	require.NoError(t, store.Delete("s2"))
	_, ok, err = store.Load("s2")
	require.NoError(t, err)
	assert.False(t, ok)
}
