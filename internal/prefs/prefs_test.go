package prefs

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"profilecard/internal/kv"
)

func TestLoadFillsMissingKeys(t *testing.T) {
	cases := []struct {
		name string
		blob string
		want Preferences
	}{
		{"empty object", `{}`, Defaults},
		{"theme only", `{"theme":"light"}`, Preferences{Theme: ThemeLight, AvatarSize: 112, FontSize: 14}},
		{"sizes only", `{"avatarSize":64,"fontSize":16}`, Preferences{Theme: ThemeDark, AvatarSize: 64, FontSize: 16}},
		{"flags only", `{"compact":true,"showCollectibles":true}`, Preferences{Theme: ThemeDark, AvatarSize: 112, Compact: true, ShowCollectibles: true, FontSize: 14}},
		{"unknown keys ignored", `{"accent":"#fff","theme":"light"}`, Preferences{Theme: ThemeLight, AvatarSize: 112, FontSize: 14}},
		{"bad values keep defaults", `{"theme":"neon","avatarSize":-3,"fontSize":"big","compact":"yes"}`, Defaults},
		{"fractional size rejected", `{"avatarSize":12.5}`, Defaults},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := kv.NewMemory()
			if err := store.Set(context.Background(), StorageKey, tc.blob); err != nil {
				t.Fatal(err)
			}
			got := Load(context.Background(), store, nil)
			if got != tc.want {
				t.Fatalf("Load(%s) = %+v, want %+v", tc.blob, got, tc.want)
			}
		})
	}
}

func TestLoadCorruptYieldsDefaults(t *testing.T) {
	for _, blob := range []string{"", "   ", "{", "null", "[1,2]", `"dark"`, "\x00\x01"} {
		store := kv.NewMemory()
		_ = store.Set(context.Background(), StorageKey, blob)
		if got := Load(context.Background(), store, nil); got != Defaults {
			t.Fatalf("Load(%q) = %+v, want defaults", blob, got)
		}
	}
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("backend down")
}

func (failingStore) Set(context.Context, string, string) error {
	return errors.New("backend down")
}

func (failingStore) Close() error { return nil }

func TestLoadStorageErrorYieldsDefaults(t *testing.T) {
	if got := Load(context.Background(), failingStore{}, nil); got != Defaults {
		t.Fatalf("Load with failing backend = %+v", got)
	}
}

func TestSaveThenLoad(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	want := Preferences{Theme: ThemeLight, AvatarSize: 200, Compact: true, FontSize: 18}
	if err := Save(ctx, store, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if got := Load(ctx, store, nil); got != want {
		t.Fatalf("Load after Save = %+v, want %+v", got, want)
	}
}

func TestStoreUpdatePersists(t *testing.T) {
	ctx := context.Background()
	backend := kv.NewMemory()
	s := Open(ctx, backend, nil)
	if s.Current() != Defaults {
		t.Fatalf("fresh store should hold defaults")
	}

	got, err := s.Update(ctx, url.Values{"theme": {"LIGHT"}, "compact": {"on"}, "avatarSize": {"90"}})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Theme != ThemeLight || !got.Compact || got.AvatarSize != 90 || got.FontSize != 14 {
		t.Fatalf("unexpected record %+v", got)
	}
	if reloaded := Load(ctx, backend, nil); reloaded != got {
		t.Fatalf("persisted %+v, current %+v", reloaded, got)
	}
}

func TestStoreUpdateRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	s := Open(ctx, kv.NewMemory(), nil)
	for _, vals := range []url.Values{
		{"theme": {"sepia"}},
		{"avatarSize": {"0"}},
		{"fontSize": {"huge"}},
		{"compact": {"maybe"}},
	} {
		if _, err := s.Update(ctx, vals); err == nil {
			t.Fatalf("Update(%v) should fail", vals)
		}
	}
	if s.Current() != Defaults {
		t.Fatalf("failed updates must not change state, got %+v", s.Current())
	}
}

func TestStoreUpdateKeepsStateWhenSaveFails(t *testing.T) {
	s := Open(context.Background(), failingStore{}, nil)
	if _, err := s.Update(context.Background(), url.Values{"theme": {"light"}}); err == nil {
		t.Fatalf("expected save error")
	}
	if s.Current().Theme != ThemeDark {
		t.Fatalf("state changed despite save failure")
	}
}
