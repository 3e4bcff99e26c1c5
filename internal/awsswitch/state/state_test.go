package state

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/aws-credentials-switcher/internal/awsswitch/storage"
)

func TestLoad_MissingFile(t *testing.T) {
	store := New(storage.New(afero.NewMemMapFs()), "/home/test/.aws-switch/state.toml")

	st, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, SwitchState{}, st)
}

func TestSaveLoad(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := New(storage.New(fs), "/home/test/.aws-switch/state.toml")

	want := SwitchState{
		Alternative: "v2",
		SwitchedAt:  time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Profiles:    []string{"default", "work"},
	}
	require.NoError(t, store.Save(want))

	data, err := afero.ReadFile(fs, store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "alternative = ")
	assert.Contains(t, string(data), "v2")

	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, want.Alternative, got.Alternative)
	assert.True(t, want.SwitchedAt.Equal(got.SwitchedAt))
	assert.Equal(t, want.Profiles, got.Profiles)
}

func TestLoad_CorruptFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := New(storage.New(fs), "/state.toml")
	require.NoError(t, afero.WriteFile(fs, "/state.toml", []byte("alternative = [unterminated"), 0o600))

	_, err := store.Load()
	assert.Error(t, err)
}
