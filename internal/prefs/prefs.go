// Package prefs holds the display preferences of the profile card: the
// built-in defaults, the merge of stored values over them, and the
// process-scoped store that persists every change.
package prefs

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"profilecard/internal/kv"
)

// StorageKey is the key the serialized record lives under.
const StorageKey = "pekora_ui_prefs_v1"

type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

func (t Theme) Valid() bool { return t == ThemeDark || t == ThemeLight }

// Preferences is the flat record of user options.
type Preferences struct {
	Theme            Theme `json:"theme"`
	AvatarSize       int   `json:"avatarSize"`
	Compact          bool  `json:"compact"`
	ShowCollectibles bool  `json:"showCollectibles"`
	FontSize         int   `json:"fontSize"`
}

// Defaults is the single source of default values.
var Defaults = Preferences{
	Theme:            ThemeDark,
	AvatarSize:       112,
	Compact:          false,
	ShowCollectibles: false,
	FontSize:         14,
}

// Upper bounds keep stored values within something a page can render.
const (
	maxAvatarSize = 512
	maxFontSize   = 48
)

// Merge returns defaults overlaid with the recognized keys of raw. Unknown
// keys are ignored; a recognized key holding an unusable value keeps the
// default.
func Merge(defaults Preferences, raw map[string]any) Preferences {
	out := defaults
	for key, val := range raw {
		switch key {
		case "theme":
			if s, ok := val.(string); ok && Theme(s).Valid() {
				out.Theme = Theme(s)
			}
		case "avatarSize":
			if n, ok := positiveInt(val, maxAvatarSize); ok {
				out.AvatarSize = n
			}
		case "fontSize":
			if n, ok := positiveInt(val, maxFontSize); ok {
				out.FontSize = n
			}
		case "compact":
			if b, ok := val.(bool); ok {
				out.Compact = b
			}
		case "showCollectibles":
			if b, ok := val.(bool); ok {
				out.ShowCollectibles = b
			}
		}
	}
	return out
}

func positiveInt(v any, max int) (int, bool) {
	f, ok := v.(float64)
	if !ok || f != math.Trunc(f) || f < 1 || f > float64(max) {
		return 0, false
	}
	return int(f), true
}

// Load reads the record from s. It never fails: absence, storage errors and
// corrupt data all yield Defaults.
func Load(ctx context.Context, s kv.Store, log *zap.Logger) Preferences {
	if log == nil {
		log = zap.NewNop()
	}
	raw, ok, err := s.Get(ctx, StorageKey)
	if err != nil {
		log.Debug("Unable to read preferences, using defaults", zap.Error(err))
		return Defaults
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return Defaults
	}
	var parsed map[string]any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		log.Debug("Stored preferences are corrupt, using defaults", zap.Error(err))
		return Defaults
	}
	return Merge(Defaults, parsed)
}

// Save writes p back synchronously.
func Save(ctx context.Context, s kv.Store, p Preferences) error {
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	if err := s.Set(ctx, StorageKey, string(b)); err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	return nil
}
