package models

import (
	"fmt"
	"strings"
)

// EntityType names a catalog entity kind. Its value doubles as the API path
// segment, the cache directory and the batch response key.
type EntityType string

const (
	Playlists  EntityType = "playlists"
	Tracks     EntityType = "tracks"
	Artists    EntityType = "artists"
	Albums     EntityType = "albums"
	Audiobooks EntityType = "audiobooks"
	Chapters   EntityType = "chapters"
	Genres     EntityType = "genres"
)

// maxBatch is the largest id list each batch endpoint accepts.
var maxBatch = map[EntityType]int{
	Tracks:     50,
	Artists:    50,
	Audiobooks: 50,
	Chapters:   50,
	Albums:     20,
}

// EntityTypes returns every known entity type in load order.
func EntityTypes() []EntityType {
	return []EntityType{Genres, Artists, Albums, Tracks, Audiobooks, Chapters, Playlists}
}

// ParseEntityType converts s into an [EntityType].
func ParseEntityType(s string) (EntityType, error) {
	e := EntityType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range EntityTypes() {
		if e == known {
			return e, nil
		}
	}
	return "", fmt.Errorf("unknown entity type %q", s)
}

func (e EntityType) String() string { return string(e) }

// Fetchable reports whether the catalog API serves this entity directly.
// Genres only exist as labels on artists and albums.
func (e EntityType) Fetchable() bool {
	return e != Genres && e != ""
}

// MaxBatch returns the batch endpoint's id limit, 0 when the entity has no batch endpoint.
func (e EntityType) MaxBatch() int {
	return maxBatch[e]
}

// SupportsBatch reports whether ids of this entity can be fetched several at a time.
func (e EntityType) SupportsBatch() bool {
	return e.MaxBatch() > 0
}

// Record is a parsed artifact ready to be loaded.
type Record interface {
	// Key returns the natural key rows are deduplicated on.
	Key() string
	// Validate checks the fields the loader depends on.
	Validate() error
}

// Genre is a free-text genre label.
type Genre struct {
	Name string
}

func (g Genre) Key() string { return g.Name }

func (g Genre) Validate() error {
	if g.Name == "" {
		return fmt.Errorf("genre name is required")
	}
	return nil
}

// Artist is a catalog artist.
type Artist struct {
	SpotifyID   string
	Name        string
	Followers   int
	Popularity  int
	ExternalURL string
	Href        string
	URI         string
	Genres      []string
}

func (a Artist) Key() string { return a.SpotifyID }

func (a Artist) Validate() error {
	return requireIDAndName("artist", a.SpotifyID, a.Name)
}

// Album is a catalog album.
type Album struct {
	SpotifyID   string
	Name        string
	TotalTracks int
	Popularity  int
	ReleaseDate string
	Label       string
	ExternalURL string
	Href        string
	Type        string
	Genres      []string
	ArtistIDs   []string
}

func (a Album) Key() string { return a.SpotifyID }

func (a Album) Validate() error {
	return requireIDAndName("album", a.SpotifyID, a.Name)
}

// Audio holds the columns shared by tracks and audiobooks.
type Audio struct {
	SpotifyID   string
	Name        string
	URI         string
	Href        string
	ExternalURL string
	Explicit    bool
}

func (a Audio) Key() string { return a.SpotifyID }

func (a Audio) Validate() error {
	return requireIDAndName("audio", a.SpotifyID, a.Name)
}

// Track extends [Audio] with track columns.
type Track struct {
	Audio
	Popularity int
	Type       string
	DurationMS int
	IsPlayable *bool
	PreviewURL *string
	DiscNumber int
	AlbumID    string
	ArtistIDs  []string
}

// Audiobook extends [Audio] with audiobook columns.
type Audiobook struct {
	Audio
	Description   string
	Edition       string
	Publisher     string
	TotalChapters int
	MediaType     string
}

// Chapter is one chapter of an audiobook.
type Chapter struct {
	SpotifyID       string
	Name            string
	AudioPreviewURL *string
	ChapterNumber   int
	Description     string
	DurationMS      int
	Explicit        bool
	ExternalURL     string
	Href            string
	Type            string
	URI             string
	ReleaseDate     string
	AudiobookID     string
}

func (c Chapter) Key() string { return c.SpotifyID }

func (c Chapter) Validate() error {
	return requireIDAndName("chapter", c.SpotifyID, c.Name)
}

// Playlist is a catalog playlist.
type Playlist struct {
	SpotifyID     string
	Name          string
	Description   *string
	Followers     int
	Collaborative bool
	SnapshotID    string
	Href          string
	ExternalURL   string
	URI           string
	TrackIDs      []string
}

func (p Playlist) Key() string { return p.SpotifyID }

func (p Playlist) Validate() error {
	return requireIDAndName("playlist", p.SpotifyID, p.Name)
}

// Link is a junction candidate between two natural keys, Left and Right in
// the order of the junction table's columns.
type Link struct {
	Left  string
	Right string
}

func (l Link) Key() string { return l.Left + "|" + l.Right }

func (l Link) Validate() error {
	if l.Left == "" || l.Right == "" {
		return fmt.Errorf("link requires both endpoints, got %q and %q", l.Left, l.Right)
	}
	return nil
}

func requireIDAndName(kind, id, name string) error {
	if id == "" {
		return fmt.Errorf("%s spotify id is required", kind)
	}
	if name == "" {
		return fmt.Errorf("%s %s has no name", kind, id)
	}
	return nil
}
