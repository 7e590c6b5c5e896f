// Spotify Web API object types
//
// Based on https://developer.spotify.com/documentation/web-api/reference/
package services

type followers struct {
	Total int `json:"total"`
}

type externalURLs struct {
	Spotify string `json:"spotify"`
}

type paging struct {
	Href     string  `json:"href"`
	Limit    int     `json:"limit"`
	Next     *string `json:"next"`
	Offset   int     `json:"offset"`
	Previous *string `json:"previous"`
	Total    int     `json:"total"`
}

// SpotifyTrackPage is a page of tracks embedded in an album.
type SpotifyTrackPage struct {
	paging
	Items []SpotifyTrack `json:"items"`
}

// SpotifyPlaylistTrackPage is a page of playlist items.
type SpotifyPlaylistTrackPage struct {
	paging
	Items []SpotifyPlaylistTrack `json:"items"`
}

// SpotifyChapterPage is a page of chapters embedded in an audiobook.
type SpotifyChapterPage struct {
	paging
	Items []SpotifyChapter `json:"items"`
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyArtist represents a Spotify artist. Artists embedded in tracks and albums only carry the simplified fields.
type SpotifyArtist struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Genres       []string       `json:"genres"`
	Followers    followers      `json:"followers"`
	Popularity   int            `json:"popularity"`
	Images       []SpotifyImage `json:"images"`
	ExternalURLs externalURLs   `json:"external_urls"`
	Href         string         `json:"href"`
	URI          string         `json:"uri"`
	Type         string         `json:"type"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	AlbumType    string           `json:"album_type"`
	Artists      []SpotifyArtist  `json:"artists"`
	Genres       []string         `json:"genres"`
	Label        string           `json:"label"`
	Popularity   int              `json:"popularity"`
	ReleaseDate  string           `json:"release_date"`
	TotalTracks  int              `json:"total_tracks"`
	Tracks       SpotifyTrackPage `json:"tracks"`
	Images       []SpotifyImage   `json:"images"`
	ExternalURLs externalURLs     `json:"external_urls"`
	Href         string           `json:"href"`
	URI          string           `json:"uri"`
	Type         string           `json:"type"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Artists      []SpotifyArtist `json:"artists"`
	Album        *SpotifyAlbum   `json:"album"`
	DiscNumber   int             `json:"disc_number"`
	DurationMS   int             `json:"duration_ms"`
	Explicit     bool            `json:"explicit"`
	IsPlayable   *bool           `json:"is_playable"`
	Popularity   int             `json:"popularity"`
	PreviewURL   *string         `json:"preview_url"`
	ExternalURLs externalURLs    `json:"external_urls"`
	Href         string          `json:"href"`
	URI          string          `json:"uri"`
	Type         string          `json:"type"`
}

// SpotifyPlaylistTrack represents a track within a playlist context. Track is nil for removed or local items.
type SpotifyPlaylistTrack struct {
	AddedAt string        `json:"added_at"`
	Track   *SpotifyTrack `json:"track"`
}

// SpotifyPlaylist represents a Spotify playlist.
type SpotifyPlaylist struct {
	ID            string                   `json:"id"`
	Name          string                   `json:"name"`
	Description   *string                  `json:"description"`
	Collaborative bool                     `json:"collaborative"`
	Followers     followers                `json:"followers"`
	SnapshotID    string                   `json:"snapshot_id"`
	Tracks        SpotifyPlaylistTrackPage `json:"tracks"`
	Images        []SpotifyImage           `json:"images"`
	ExternalURLs  externalURLs             `json:"external_urls"`
	Href          string                   `json:"href"`
	URI           string                   `json:"uri"`
}

// SpotifyAuthor names an audiobook author.
type SpotifyAuthor struct {
	Name string `json:"name"`
}

// SpotifyAudiobook represents a Spotify audiobook.
type SpotifyAudiobook struct {
	ID            string             `json:"id"`
	Name          string             `json:"name"`
	Authors       []SpotifyAuthor    `json:"authors"`
	Description   string             `json:"description"`
	Edition       string             `json:"edition"`
	Explicit      bool               `json:"explicit"`
	MediaType     string             `json:"media_type"`
	Publisher     string             `json:"publisher"`
	TotalChapters int                `json:"total_chapters"`
	Chapters      SpotifyChapterPage `json:"chapters"`
	ExternalURLs  externalURLs       `json:"external_urls"`
	Href          string             `json:"href"`
	URI           string             `json:"uri"`
	Type          string             `json:"type"`
}

// SpotifyChapter represents an audiobook chapter. Audiobook is set on chapter objects
// fetched directly and on chapters split out of a cached audiobook.
type SpotifyChapter struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	AudioPreviewURL *string           `json:"audio_preview_url"`
	ChapterNumber   int               `json:"chapter_number"`
	Description     string            `json:"description"`
	DurationMS      int               `json:"duration_ms"`
	Explicit        bool              `json:"explicit"`
	ReleaseDate     string            `json:"release_date"`
	Audiobook       *SpotifyAudiobook `json:"audiobook,omitempty"`
	ExternalURLs    externalURLs      `json:"external_urls"`
	Href            string            `json:"href"`
	URI             string            `json:"uri"`
	Type            string            `json:"type"`
}
