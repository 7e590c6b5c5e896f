package repositories

import (
	"context"
	"fmt"

	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/parser"
	"github.com/desertthunder/spx/internal/shared"
)

// Key lookups from a natural key to a surrogate key, one per junction endpoint.
const (
	genreKey     = `SELECT genre_id FROM genres WHERE genre_name = ?`
	artistKey    = `SELECT artist_id FROM artists WHERE spotify_id = ?`
	albumKey     = `SELECT album_id FROM albums WHERE spotify_id = ?`
	playlistKey  = `SELECT playlist_id FROM playlists WHERE spotify_id = ?`
	chapterKey   = `SELECT chapter_id FROM chapters WHERE spotify_id = ?`
	trackKey     = `SELECT t.track_id FROM tracks t JOIN audio a ON a.audio_id = t.track_id WHERE a.spotify_id = ?`
	audiobookKey = `SELECT b.audiobook_id FROM audiobooks b JOIN audio a ON a.audio_id = b.audiobook_id WHERE a.spotify_id = ?`
)

// endpoint is one side of a junction table.
type endpoint struct {
	column string
	lookup string
}

type junction struct {
	table  string
	source models.EntityType
	left   endpoint
	right  endpoint
	links  func(data []byte) ([]models.Link, error)
}

func junctionStrategies() []*Strategy {
	junctions := []junction{
		{
			table:  "artists_genres",
			source: models.Artists,
			left:   endpoint{"artist_id", artistKey},
			right:  endpoint{"genre_id", genreKey},
			links: func(data []byte) ([]models.Link, error) {
				a, err := parser.Artist(data)
				if err != nil {
					return nil, err
				}
				return fanOut(a.SpotifyID, a.Genres), nil
			},
		},
		{
			table:  "albums_genres",
			source: models.Albums,
			left:   endpoint{"album_id", albumKey},
			right:  endpoint{"genre_id", genreKey},
			links: func(data []byte) ([]models.Link, error) {
				a, err := parser.Album(data)
				if err != nil {
					return nil, err
				}
				return fanOut(a.SpotifyID, a.Genres), nil
			},
		},
		{
			table:  "albums_artists",
			source: models.Albums,
			left:   endpoint{"album_id", albumKey},
			right:  endpoint{"artist_id", artistKey},
			links: func(data []byte) ([]models.Link, error) {
				a, err := parser.Album(data)
				if err != nil {
					return nil, err
				}
				return fanOut(a.SpotifyID, a.ArtistIDs), nil
			},
		},
		{
			table:  "tracks_artists",
			source: models.Tracks,
			left:   endpoint{"track_id", trackKey},
			right:  endpoint{"artist_id", artistKey},
			links: func(data []byte) ([]models.Link, error) {
				t, err := parser.Track(data)
				if err != nil {
					return nil, err
				}
				return fanOut(t.SpotifyID, t.ArtistIDs), nil
			},
		},
		{
			table:  "albums_tracks",
			source: models.Tracks,
			left:   endpoint{"album_id", albumKey},
			right:  endpoint{"track_id", trackKey},
			links: func(data []byte) ([]models.Link, error) {
				t, err := parser.Track(data)
				if err != nil {
					return nil, err
				}
				if t.AlbumID == "" {
					return nil, nil
				}
				return []models.Link{{Left: t.AlbumID, Right: t.SpotifyID}}, nil
			},
		},
		{
			table:  "playlists_tracks",
			source: models.Playlists,
			left:   endpoint{"playlist_id", playlistKey},
			right:  endpoint{"track_id", trackKey},
			links: func(data []byte) ([]models.Link, error) {
				p, err := parser.Playlist(data)
				if err != nil {
					return nil, err
				}
				return fanOut(p.SpotifyID, p.TrackIDs), nil
			},
		},
		{
			table:  "audiobooks_chapters",
			source: models.Chapters,
			left:   endpoint{"audiobook_id", audiobookKey},
			right:  endpoint{"chapter_id", chapterKey},
			links: func(data []byte) ([]models.Link, error) {
				ch, err := parser.Chapter(data)
				if err != nil {
					return nil, err
				}
				if ch.AudiobookID == "" {
					return nil, nil
				}
				return []models.Link{{Left: ch.AudiobookID, Right: ch.SpotifyID}}, nil
			},
		},
	}

	strategies := make([]*Strategy, 0, len(junctions))
	for _, j := range junctions {
		strategies = append(strategies, j.strategy())
	}
	return strategies
}

// fanOut pairs left with every non-empty right.
func fanOut(left string, rights []string) []models.Link {
	links := make([]models.Link, 0, len(rights))
	for _, r := range rights {
		if r != "" {
			links = append(links, models.Link{Left: left, Right: r})
		}
	}
	return links
}

func (j junction) strategy() *Strategy {
	exists := `SELECT EXISTS(SELECT 1 FROM ` + j.table + ` WHERE ` + j.left.column + ` = ? AND ` + j.right.column + ` = ?)`
	insert := `INSERT INTO ` + j.table + ` (` + j.left.column + `, ` + j.right.column + `) VALUES (?, ?)`

	return &Strategy{
		Name:     j.table,
		Sources:  []models.EntityType{j.source},
		Table:    j.table,
		Junction: true,
		Parse: func(_ models.EntityType, data []byte) ([]models.Record, error) {
			links, err := j.links(data)
			if err != nil {
				return nil, err
			}
			records := make([]models.Record, len(links))
			for i, l := range links {
				records[i] = l
			}
			return records, nil
		},
		Load: func(ctx context.Context, c *Conn, rec models.Record) (Outcome, error) {
			l, ok := rec.(models.Link)
			if !ok {
				return unexpectedRecord(j.table, rec)
			}

			leftID, found, err := c.LookupID(ctx, j.left.lookup, l.Left)
			if err != nil {
				return Failed, storeFailure("resolve "+j.left.column, err)
			}
			if !found {
				return Unresolved, fmt.Errorf("%w: %s %s", shared.ErrUnresolvedReference, j.left.column, l.Left)
			}

			rightID, found, err := c.LookupID(ctx, j.right.lookup, l.Right)
			if err != nil {
				return Failed, storeFailure("resolve "+j.right.column, err)
			}
			if !found {
				return Unresolved, fmt.Errorf("%w: %s %s", shared.ErrUnresolvedReference, j.right.column, l.Right)
			}

			found, err = c.Exists(ctx, exists, leftID, rightID)
			if err != nil {
				return Failed, storeFailure("check "+j.table, err)
			}
			if found {
				return Existing, nil
			}

			if err := c.Exec(ctx, insert, leftID, rightID); err != nil {
				if shared.IsUniqueViolation(err) {
					return Existing, nil
				}
				return Failed, storeFailure("insert "+j.table, err)
			}
			return Inserted, nil
		},
	}
}
