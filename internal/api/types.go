package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Profile is the remote account record. Everything except ID may be
// missing; values are untrusted.
type Profile struct {
	ID               ID       `json:"id"`
	Name             string   `json:"name"`
	DisplayName      string   `json:"displayName"`
	Created          string   `json:"created"`
	IsBanned         bool     `json:"isBanned"`
	IsStaff          bool     `json:"isStaff"`
	HasVerifiedBadge bool     `json:"hasVerifiedBadge"`
	Description      string   `json:"description"`
	InventoryRAP     *float64 `json:"inventory_rap"`

	// AvatarURL is filled by the client, the API does not return it.
	AvatarURL string `json:"-"`
}

// ID accepts both JSON numbers and digit strings.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	if _, err := strconv.ParseInt(n.String(), 10, 64); err != nil {
		return fmt.Errorf("id: not an integer %s", n)
	}
	*id = ID(n.String())
	return nil
}

// Collectible is one owned item.
type Collectible struct {
	AssetID   ID     `json:"assetId"`
	Name      string `json:"name"`
	Thumbnail string `json:"thumbnail"`
}

// Collectibles is the best-effort inventory enrichment.
type Collectibles struct {
	Items []Collectible
}

// UnmarshalJSON accepts a bare array or an object wrapping the array under
// one of the keys the endpoint has been seen to use.
func (c *Collectibles) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		return json.Unmarshal(b, &c.Items)
	}
	var wrapped struct {
		Data         []Collectible `json:"data"`
		Items        []Collectible `json:"items"`
		Collectibles []Collectible `json:"collectibles"`
	}
	if err := json.Unmarshal(b, &wrapped); err != nil {
		return err
	}
	switch {
	case wrapped.Data != nil:
		c.Items = wrapped.Data
	case wrapped.Items != nil:
		c.Items = wrapped.Items
	default:
		c.Items = wrapped.Collectibles
	}
	return nil
}

// UnmarshalJSON tolerates the alternative field names used for item
// thumbnails and ids.
func (c *Collectible) UnmarshalJSON(b []byte) error {
	var raw struct {
		AssetID      ID     `json:"assetId"`
		ID           ID     `json:"id"`
		Name         string `json:"name"`
		Thumbnail    string `json:"thumbnail"`
		ThumbnailURL string `json:"thumbnailUrl"`
		ImageURL     string `json:"imageUrl"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	c.AssetID = raw.AssetID
	if c.AssetID == "" {
		c.AssetID = raw.ID
	}
	c.Name = raw.Name
	c.Thumbnail = firstNonEmpty(raw.Thumbnail, raw.ThumbnailURL, raw.ImageURL)
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
