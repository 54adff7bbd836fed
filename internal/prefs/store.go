package prefs

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"profilecard/internal/kv"
)

// Store is the process-wide holder of the current preferences. It is loaded
// once by Open and changed only through Update.
type Store struct {
	kv  kv.Store
	log *zap.Logger

	mu  sync.RWMutex
	cur Preferences
}

func Open(ctx context.Context, s kv.Store, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{kv: s, log: log, cur: Load(ctx, s, log)}
}

// Current returns a copy of the active record.
func (s *Store) Current() Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

// Update applies settings overrides, persists the result and makes it
// current. Nothing changes when validation or persistence fails.
func (s *Store) Update(ctx context.Context, values url.Values) (Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := ApplyOverrides(s.cur, values)
	if err != nil {
		return s.cur, err
	}
	if err := Save(ctx, s.kv, next); err != nil {
		return s.cur, err
	}
	s.cur = next
	s.log.Info("Preferences updated",
		zap.String("theme", string(next.Theme)),
		zap.Int("avatarSize", next.AvatarSize),
		zap.Int("fontSize", next.FontSize),
		zap.Bool("compact", next.Compact),
		zap.Bool("showCollectibles", next.ShowCollectibles))
	return next, nil
}

// ApplyOverrides returns p with every option present in values replaced.
// Options missing from values keep their current value.
func ApplyOverrides(p Preferences, values url.Values) (Preferences, error) {
	if v := strings.TrimSpace(values.Get("theme")); v != "" {
		t := Theme(strings.ToLower(v))
		if !t.Valid() {
			return p, fmt.Errorf("theme: unsupported value %q", v)
		}
		p.Theme = t
	}
	if v := strings.TrimSpace(values.Get("avatarSize")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxAvatarSize {
			return p, fmt.Errorf("avatarSize: want 1..%d, got %q", maxAvatarSize, v)
		}
		p.AvatarSize = n
	}
	if v := strings.TrimSpace(values.Get("fontSize")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxFontSize {
			return p, fmt.Errorf("fontSize: want 1..%d, got %q", maxFontSize, v)
		}
		p.FontSize = n
	}
	if v := values.Get("compact"); v != "" {
		b, ok := ParseBool(v)
		if !ok {
			return p, fmt.Errorf("compact: not a boolean %q", v)
		}
		p.Compact = b
	}
	if v := values.Get("showCollectibles"); v != "" {
		b, ok := ParseBool(v)
		if !ok {
			return p, fmt.Errorf("showCollectibles: not a boolean %q", v)
		}
		p.ShowCollectibles = b
	}
	return p, nil
}

// ParseBool accepts the spellings HTML forms and command lines produce.
func ParseBool(v string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "yes":
		return true, true
	case "0", "false", "off", "no":
		return false, true
	}
	return false, false
}
