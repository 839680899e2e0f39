// Package settings provides the kaishaku configuration and its storage in the
// repository-local git config under the "kaishaku." prefix.
//
// The configuration is loaded once per invocation and passed down
// explicitly; nothing in this package is global.
package settings

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kaishaku/cli/cmd/kaishaku/cli/kerrors"
	"github.com/kaishaku/cli/cmd/kaishaku/cli/logging"
)

// Section is the git config section holding every kaishaku key.
const Section = "kaishaku"

// Key names a configuration option, e.g. "confirm.exit".
type Key string

const (
	// KeyConfirmExit asks before discarding changes on exit.
	KeyConfirmExit Key = "confirm.exit"
	// KeyAutoStash stashes changes on exit unless --force is given.
	KeyAutoStash Key = "auto.stash"
	// KeyAutoSave commits changes on exit unless --no-save is given.
	KeyAutoSave Key = "auto.save"
)

// Keys lists every key in display order.
var Keys = []Key{KeyConfirmExit, KeyAutoStash, KeyAutoSave}

// ParseKey accepts a key with or without the "kaishaku." prefix.
func ParseKey(s string) (Key, error) {
	k := Key(strings.TrimPrefix(strings.TrimSpace(s), Section+"."))
	for _, known := range Keys {
		if k == known {
			return k, nil
		}
	}
	return "", kerrors.E(kerrors.Op("settings.ParseKey"), kerrors.KindInvalid, fmt.Sprintf("unknown config key '%s'", s))
}

// Config holds the three exit-policy switches.
type Config struct {
	ConfirmExit bool
	AutoStash   bool
	AutoSave    bool
}

// Defaults returns the compiled-in configuration.
func Defaults() Config {
	return Config{ConfirmExit: true}
}

// Get returns the value of key.
func (c Config) Get(key Key) bool {
	switch key {
	case KeyConfirmExit:
		return c.ConfirmExit
	case KeyAutoStash:
		return c.AutoStash
	case KeyAutoSave:
		return c.AutoSave
	}
	return false
}

// With returns a copy of c with key set to value.
func (c Config) With(key Key, value bool) Config {
	switch key {
	case KeyConfirmExit:
		c.ConfirmExit = value
	case KeyAutoStash:
		c.AutoStash = value
	case KeyAutoSave:
		c.AutoSave = value
	}
	return c
}

// ParseValue converts a user-supplied boolean. Stored values are "0"/"1".
func ParseValue(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	}
	return false, kerrors.E(kerrors.Op("settings.ParseValue"), kerrors.KindInvalid, fmt.Sprintf("invalid boolean value '%s' (use 0 or 1)", s))
}

// FormatValue renders a boolean the way it is stored.
func FormatValue(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

// Store reads and writes raw configuration values.
type Store interface {
	Get(key Key) (string, bool, error)
	Set(key Key, value string) error
}

// Load reads the configuration from store, starting from Defaults. Keys that
// are not configured yet are written back with their default value. A
// value that cannot be parsed keeps the default.
func Load(ctx context.Context, store Store) (Config, error) {
	ctx = logging.WithComponent(ctx, "settings")
	cfg := Defaults()

	for _, key := range Keys {
		raw, ok, err := store.Get(key)
		if err != nil {
			return cfg, fmt.Errorf("reading %s.%s: %w", Section, key, err)
		}
		if !ok {
			if err := store.Set(key, FormatValue(cfg.Get(key))); err != nil {
				logging.Warn(ctx, "failed to write default config value",
					slog.String("key", string(key)),
					slog.String("error", err.Error()),
				)
			}
			continue
		}
		v, err := ParseValue(raw)
		if err != nil {
			logging.Warn(ctx, "ignoring unparsable config value",
				slog.String("key", string(key)),
				slog.String("value", raw),
			)
			continue
		}
		cfg = cfg.With(key, v)
	}
	return cfg, nil
}
