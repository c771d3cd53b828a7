package credentials

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testConfig() *UserConfig {
	return &UserConfig{
		EmployeeID:         42,
		Email:              "kari@blank.no",
		Name:               "Kari Nordmann",
		AccessToken:        "at1",
		AccessTokenExpires: time.Date(2026, 10, 18, 12, 30, 0, 0, time.UTC),
		RefreshToken:       "rt1",
	}
}

func TestStore_LoadMissingFile(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "missing", "user-config.toml"))

	cfg, err := store.Load()
	require.NoError(t, err)
	require.Nil(t, cfg)
}

func TestStore_SaveCreatesDirectoryAndLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".floq", "user-config.toml")
	store := NewStore(path)

	want := testConfig()
	require.NoError(t, store.Save(want))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, want.EmployeeID, got.EmployeeID)
	require.Equal(t, want.Email, got.Email)
	require.Equal(t, want.Name, got.Name)
	require.Equal(t, want.AccessToken, got.AccessToken)
	require.Equal(t, want.RefreshToken, got.RefreshToken)
	require.True(t, want.AccessTokenExpires.Equal(got.AccessTokenExpires),
		"expiry %v != %v", got.AccessTokenExpires, want.AccessTokenExpires)

	_, err = os.Stat(path + ".lock")
	require.True(t, os.IsNotExist(err), "lock file left behind")
	_, err = os.Stat(path + ".tmp")
	require.True(t, os.IsNotExist(err), "temp file left behind")
}

func TestStore_FileUsesTOMLKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user-config.toml")
	require.NoError(t, NewStore(path).Save(testConfig()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	for _, key := range []string{
		"employee_id", "email", "name", "access_token", "access_token_expires", "refresh_token",
	} {
		require.True(t, strings.Contains(string(data), key+" ="), "missing key %s in:\n%s", key, data)
	}
}

func TestStore_SaveOverwrites(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "user-config.toml"))

	cfg := testConfig()
	require.NoError(t, store.Save(cfg))

	cfg.AccessToken = "at2"
	require.NoError(t, store.Save(cfg))

	got, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, "at2", got.AccessToken)
	require.Equal(t, "rt1", got.RefreshToken)
}

func TestStore_LoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user-config.toml")
	require.NoError(t, os.WriteFile(path, []byte("employee_id = [not toml"), 0o600))

	_, err := NewStore(path).Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), path)
}

func TestStore_Delete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user-config.toml")
	store := NewStore(path)

	require.NoError(t, store.Delete(), "deleting a missing file")

	require.NoError(t, store.Save(testConfig()))
	require.NoError(t, store.Delete())

	cfg, err := store.Load()
	require.NoError(t, err)
	require.Nil(t, cfg)
}

func TestDefaultPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path, err := DefaultPath()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".floq", "user-config.toml"), path)
}
