package settings

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaishaku/cli/cmd/kaishaku/cli/kerrors"
)

func TestDefaults(t *testing.T) {
	t.Parallel()
	assert.Equal(t, Config{ConfirmExit: true, AutoStash: false, AutoSave: false}, Defaults())
}

func TestParseKey(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in      string
		want    Key
		wantErr bool
	}{
		{in: "confirm.exit", want: KeyConfirmExit},
		{in: "kaishaku.auto.stash", want: KeyAutoStash},
		{in: " auto.save ", want: KeyAutoSave},
		{in: "auto_save", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKey(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, kerrors.ErrInvalid)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseValue(t *testing.T) {
	t.Parallel()
	for _, s := range []string{"1", "true", "YES", "on"} {
		v, err := ParseValue(s)
		require.NoError(t, err, s)
		assert.True(t, v, s)
	}
	for _, s := range []string{"0", "false", "no", "Off"} {
		v, err := ParseValue(s)
		require.NoError(t, err, s)
		assert.False(t, v, s)
	}
	_, err := ParseValue("maybe")
	require.ErrorIs(t, err, kerrors.ErrInvalid)
}

func TestConfig_GetWith(t *testing.T) {
	t.Parallel()
	cfg := Defaults().With(KeyAutoSave, true).With(KeyConfirmExit, false)
	assert.True(t, cfg.Get(KeyAutoSave))
	assert.False(t, cfg.Get(KeyConfirmExit))
	assert.False(t, cfg.Get(KeyAutoStash))
	assert.True(t, Defaults().ConfirmExit, "With does not mutate the receiver")
}

func TestLoad_WritesMissingDefaults(t *testing.T) {
	t.Parallel()
	store := NewMemStore(map[Key]string{KeyAutoStash: "1"})

	cfg, err := Load(context.Background(), store)
	require.NoError(t, err)
	assert.Equal(t, Config{ConfirmExit: true, AutoStash: true}, cfg)

	v, ok, err := store.Get(KeyConfirmExit)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1", v)

	v, ok, err = store.Get(KeyAutoSave)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "0", v)
}

func TestLoad_UnparsableKeepsDefault(t *testing.T) {
	t.Parallel()
	store := NewMemStore(map[Key]string{KeyConfirmExit: "banana"})
	cfg, err := Load(context.Background(), store)
	require.NoError(t, err)
	assert.True(t, cfg.ConfirmExit)
}

func TestLoad_WriteFailureIsNotFatal(t *testing.T) {
	t.Parallel()
	store := NewMemStore(nil)
	store.SetErr = errors.New("read-only")
	cfg, err := Load(context.Background(), store)
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestGitConfigStore_RoundTrip(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	_, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	store, err := OpenGitConfigStore(dir)
	require.NoError(t, err)

	_, ok, err := store.Get(KeyConfirmExit)
	require.NoError(t, err)
	assert.False(t, ok)

	cfg, err := Load(context.Background(), store)
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)

	require.NoError(t, store.Set(KeyAutoSave, "1"))

	reopened, err := OpenGitConfigStore(dir)
	require.NoError(t, err)
	v, ok, err := reopened.Get(KeyAutoSave)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1", v)

	data, err := os.ReadFile(filepath.Join(dir, ".git", "config"))
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `[kaishaku "auto"]`), "config file:\n%s", data)
}

func TestGitConfigStore_ReadsGlobalWritesLocal(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", home)
	require.NoError(t, os.WriteFile(filepath.Join(home, ".gitconfig"),
		[]byte("[kaishaku \"auto\"]\n\tstash = 1\n"), 0o600))

	dir := t.TempDir()
	_, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	store, err := OpenGitConfigStore(dir)
	require.NoError(t, err)

	cfg, err := Load(context.Background(), store)
	require.NoError(t, err)
	assert.True(t, cfg.AutoStash, "global value applies")

	data, err := os.ReadFile(filepath.Join(dir, ".git", "config"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "stash", "a global value is not copied into the repository")
	assert.Contains(t, string(data), "exit = 1", "missing keys still get local defaults")

	require.NoError(t, store.Set(KeyAutoStash, "0"))
	v, ok, err := store.Get(KeyAutoStash)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "0", v, "local config wins over global")

	global, err := os.ReadFile(filepath.Join(home, ".gitconfig"))
	require.NoError(t, err)
	assert.Contains(t, string(global), "stash = 1", "writes never touch global config")
}
