// Package parser turns cached catalog artifacts into [models] records.
//
// Artifacts are decoded into the [services] object types and projected onto the
// record fields the relational schema stores. Missing optional fields decode to
// zero values; an artifact without an id or name fails validation.
package parser

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/services"
)

// Refs are the identifiers a playlist artifact points at.
type Refs struct {
	Tracks  []string
	Albums  []string
	Artists []string
}

func decode(data []byte, v any) error {
	if len(bytes.TrimSpace(data)) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return fmt.Errorf("empty artifact")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode artifact: %w", err)
	}
	return nil
}

// ObjectID returns the "id" field of a raw catalog object.
func ObjectID(data []byte) (string, error) {
	var obj struct {
		ID string `json:"id"`
	}
	if err := decode(data, &obj); err != nil {
		return "", err
	}
	if obj.ID == "" {
		return "", fmt.Errorf("object has no id")
	}
	return obj.ID, nil
}

// Artist decodes an artist artifact.
func Artist(data []byte) (models.Artist, error) {
	var a services.SpotifyArtist
	if err := decode(data, &a); err != nil {
		return models.Artist{}, err
	}

	rec := models.Artist{
		SpotifyID:   a.ID,
		Name:        a.Name,
		Followers:   a.Followers.Total,
		Popularity:  a.Popularity,
		ExternalURL: a.ExternalURLs.Spotify,
		Href:        a.Href,
		URI:         a.URI,
		Genres:      a.Genres,
	}
	return rec, rec.Validate()
}

// Album decodes an album artifact.
func Album(data []byte) (models.Album, error) {
	var a services.SpotifyAlbum
	if err := decode(data, &a); err != nil {
		return models.Album{}, err
	}

	rec := models.Album{
		SpotifyID:   a.ID,
		Name:        a.Name,
		TotalTracks: a.TotalTracks,
		Popularity:  a.Popularity,
		ReleaseDate: a.ReleaseDate,
		Label:       a.Label,
		ExternalURL: a.ExternalURLs.Spotify,
		Href:        a.Href,
		Type:        a.AlbumType,
		Genres:      a.Genres,
		ArtistIDs:   artistIDs(a.Artists),
	}
	return rec, rec.Validate()
}

// Track decodes a track artifact.
func Track(data []byte) (models.Track, error) {
	var t services.SpotifyTrack
	if err := decode(data, &t); err != nil {
		return models.Track{}, err
	}
	rec := trackRecord(t)
	return rec, rec.Validate()
}

func trackRecord(t services.SpotifyTrack) models.Track {
	rec := models.Track{
		Audio: models.Audio{
			SpotifyID:   t.ID,
			Name:        t.Name,
			URI:         t.URI,
			Href:        t.Href,
			ExternalURL: t.ExternalURLs.Spotify,
			Explicit:    t.Explicit,
		},
		Popularity: t.Popularity,
		Type:       t.Type,
		DurationMS: t.DurationMS,
		IsPlayable: t.IsPlayable,
		PreviewURL: t.PreviewURL,
		DiscNumber: t.DiscNumber,
		ArtistIDs:  artistIDs(t.Artists),
	}
	if t.Album != nil {
		rec.AlbumID = t.Album.ID
	}
	return rec
}

// Audiobook decodes an audiobook artifact.
func Audiobook(data []byte) (models.Audiobook, error) {
	var a services.SpotifyAudiobook
	if err := decode(data, &a); err != nil {
		return models.Audiobook{}, err
	}

	rec := models.Audiobook{
		Audio: models.Audio{
			SpotifyID:   a.ID,
			Name:        a.Name,
			URI:         a.URI,
			Href:        a.Href,
			ExternalURL: a.ExternalURLs.Spotify,
			Explicit:    a.Explicit,
		},
		Description:   a.Description,
		Edition:       a.Edition,
		Publisher:     a.Publisher,
		TotalChapters: a.TotalChapters,
		MediaType:     a.MediaType,
	}
	return rec, rec.Validate()
}

// Chapter decodes a chapter artifact.
func Chapter(data []byte) (models.Chapter, error) {
	var c services.SpotifyChapter
	if err := decode(data, &c); err != nil {
		return models.Chapter{}, err
	}

	rec := models.Chapter{
		SpotifyID:       c.ID,
		Name:            c.Name,
		AudioPreviewURL: c.AudioPreviewURL,
		ChapterNumber:   c.ChapterNumber,
		Description:     c.Description,
		DurationMS:      c.DurationMS,
		Explicit:        c.Explicit,
		ExternalURL:     c.ExternalURLs.Spotify,
		Href:            c.Href,
		Type:            c.Type,
		URI:             c.URI,
		ReleaseDate:     c.ReleaseDate,
	}
	if c.Audiobook != nil {
		rec.AudiobookID = c.Audiobook.ID
	}
	return rec, rec.Validate()
}

// Playlist decodes a playlist artifact.
func Playlist(data []byte) (models.Playlist, error) {
	var p services.SpotifyPlaylist
	if err := decode(data, &p); err != nil {
		return models.Playlist{}, err
	}

	rec := models.Playlist{
		SpotifyID:     p.ID,
		Name:          p.Name,
		Description:   p.Description,
		Followers:     p.Followers.Total,
		Collaborative: p.Collaborative,
		SnapshotID:    p.SnapshotID,
		Href:          p.Href,
		ExternalURL:   p.ExternalURLs.Spotify,
		URI:           p.URI,
	}
	for _, item := range p.Tracks.Items {
		if item.Track != nil && item.Track.ID != "" {
			rec.TrackIDs = append(rec.TrackIDs, item.Track.ID)
		}
	}
	return rec, rec.Validate()
}

// PlaylistRefs collects the track, album and artist ids embedded in a playlist artifact.
// Album artists and track artists both count. Ids are returned in order of appearance, duplicates included.
func PlaylistRefs(data []byte) (Refs, error) {
	var p services.SpotifyPlaylist
	if err := decode(data, &p); err != nil {
		return Refs{}, err
	}

	var refs Refs
	for _, item := range p.Tracks.Items {
		t := item.Track
		if t == nil || t.ID == "" {
			continue
		}
		refs.Tracks = append(refs.Tracks, t.ID)
		if t.Album != nil {
			if t.Album.ID != "" {
				refs.Albums = append(refs.Albums, t.Album.ID)
			}
			refs.Artists = append(refs.Artists, artistIDs(t.Album.Artists)...)
		}
		refs.Artists = append(refs.Artists, artistIDs(t.Artists)...)
	}
	return refs, nil
}

// ArtistRefs returns the artist ids credited on a track or album artifact.
func ArtistRefs(data []byte) ([]string, error) {
	var obj struct {
		Artists []services.SpotifyArtist `json:"artists"`
		Album   *struct {
			Artists []services.SpotifyArtist `json:"artists"`
		} `json:"album"`
	}
	if err := decode(data, &obj); err != nil {
		return nil, err
	}

	ids := artistIDs(obj.Artists)
	if obj.Album != nil {
		ids = append(ids, artistIDs(obj.Album.Artists)...)
	}
	return ids, nil
}

// Chapters splits an audiobook artifact into standalone chapter artifacts keyed by chapter id.
// Each chapter gains an "audiobook" field holding the audiobook without its chapter list,
// matching the shape of a chapter fetched from the API.
func Chapters(data []byte) (ids []string, artifacts map[string][]byte, err error) {
	var book map[string]json.RawMessage
	if err := decode(data, &book); err != nil {
		return nil, nil, err
	}

	var page struct {
		Items []map[string]json.RawMessage `json:"items"`
	}
	if raw, ok := book["chapters"]; ok {
		if err := json.Unmarshal(raw, &page); err != nil {
			return nil, nil, fmt.Errorf("failed to decode chapters: %w", err)
		}
	}
	delete(book, "chapters")

	ref, err := json.Marshal(book)
	if err != nil {
		return nil, nil, err
	}

	artifacts = make(map[string][]byte, len(page.Items))
	for _, item := range page.Items {
		var id string
		if raw, ok := item["id"]; !ok || json.Unmarshal(raw, &id) != nil || id == "" {
			continue
		}
		item["audiobook"] = ref

		out, err := json.Marshal(item)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to encode chapter %s: %w", id, err)
		}
		if _, seen := artifacts[id]; !seen {
			ids = append(ids, id)
		}
		artifacts[id] = out
	}
	return ids, artifacts, nil
}

func artistIDs(artists []services.SpotifyArtist) []string {
	var ids []string
	for _, a := range artists {
		if a.ID != "" {
			ids = append(ids, a.ID)
		}
	}
	return ids
}
