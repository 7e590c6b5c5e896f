package repositories

import (
	"context"
	"fmt"

	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/parser"
	"github.com/desertthunder/spx/internal/shared"
)

func entityStrategies() []*Strategy {
	return []*Strategy{
		{
			Name:    string(models.Genres),
			Sources: []models.EntityType{models.Artists, models.Albums},
			Table:   "genres",
			Parse:   parseGenres,
			Load:    loadGenre,
		},
		{
			Name:    string(models.Artists),
			Sources: []models.EntityType{models.Artists},
			Table:   "artists",
			Parse:   single(parser.Artist),
			Load:    loadArtist,
		},
		{
			Name:    string(models.Albums),
			Sources: []models.EntityType{models.Albums},
			Table:   "albums",
			Parse:   single(parser.Album),
			Load:    loadAlbum,
		},
		{
			Name:    string(models.Tracks),
			Sources: []models.EntityType{models.Tracks},
			Table:   "tracks",
			Parse:   single(parser.Track),
			Load:    loadTrack,
		},
		{
			Name:    string(models.Audiobooks),
			Sources: []models.EntityType{models.Audiobooks},
			Table:   "audiobooks",
			Parse:   single(parser.Audiobook),
			Load:    loadAudiobook,
		},
		{
			Name:    string(models.Chapters),
			Sources: []models.EntityType{models.Chapters},
			Table:   "chapters",
			Parse:   single(parser.Chapter),
			Load:    loadChapter,
		},
		{
			Name:    string(models.Playlists),
			Sources: []models.EntityType{models.Playlists},
			Table:   "playlists",
			Parse:   single(parser.Playlist),
			Load:    loadPlaylist,
		},
	}
}

// single adapts a one-record parser to [Strategy.Parse].
func single[R models.Record](parse func([]byte) (R, error)) func(models.EntityType, []byte) ([]models.Record, error) {
	return func(_ models.EntityType, data []byte) ([]models.Record, error) {
		rec, err := parse(data)
		if err != nil {
			return nil, err
		}
		return []models.Record{rec}, nil
	}
}

// parseGenres collects the genre labels of an artist or album artifact.
func parseGenres(source models.EntityType, data []byte) ([]models.Record, error) {
	var labels []string
	switch source {
	case models.Artists:
		a, err := parser.Artist(data)
		if err != nil {
			return nil, err
		}
		labels = a.Genres
	case models.Albums:
		a, err := parser.Album(data)
		if err != nil {
			return nil, err
		}
		labels = a.Genres
	default:
		return nil, fmt.Errorf("%w: genres cannot be read from %s", shared.ErrInvalidArgument, source)
	}

	records := make([]models.Record, 0, len(labels))
	for _, name := range labels {
		if name != "" {
			records = append(records, models.Genre{Name: name})
		}
	}
	return records, nil
}

// insertOnce checks exists, then runs insert. A unique violation on insert means a
// concurrent worker won the race and the row counts as existing.
func insertOnce(ctx context.Context, c *Conn, table string, exists string, key any, insert string, args ...any) (Outcome, error) {
	found, err := c.Exists(ctx, exists, key)
	if err != nil {
		return Failed, storeFailure("check "+table, err)
	}
	if found {
		return Existing, nil
	}

	if err := c.Exec(ctx, insert, args...); err != nil {
		if shared.IsUniqueViolation(err) {
			return Existing, nil
		}
		return Failed, storeFailure("insert "+table, err)
	}
	return Inserted, nil
}

func loadGenre(ctx context.Context, c *Conn, rec models.Record) (Outcome, error) {
	g, ok := rec.(models.Genre)
	if !ok {
		return unexpectedRecord("genres", rec)
	}
	return insertOnce(ctx, c, "genres",
		`SELECT EXISTS(SELECT 1 FROM genres WHERE genre_name = ?)`, g.Name,
		`INSERT INTO genres (genre_name) VALUES (?)`, g.Name)
}

func loadArtist(ctx context.Context, c *Conn, rec models.Record) (Outcome, error) {
	a, ok := rec.(models.Artist)
	if !ok {
		return unexpectedRecord("artists", rec)
	}
	return insertOnce(ctx, c, "artists",
		`SELECT EXISTS(SELECT 1 FROM artists WHERE spotify_id = ?)`, a.SpotifyID,
		`INSERT INTO artists (spotify_id, artist_name, nb_followers, popularity, external_url, href, uri)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.SpotifyID, a.Name, a.Followers, a.Popularity, a.ExternalURL, a.Href, a.URI)
}

func loadAlbum(ctx context.Context, c *Conn, rec models.Record) (Outcome, error) {
	a, ok := rec.(models.Album)
	if !ok {
		return unexpectedRecord("albums", rec)
	}
	return insertOnce(ctx, c, "albums",
		`SELECT EXISTS(SELECT 1 FROM albums WHERE spotify_id = ?)`, a.SpotifyID,
		`INSERT INTO albums (spotify_id, album_name, total_tracks, popularity, release_date, label, external_url, href, type)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.SpotifyID, a.Name, a.TotalTracks, a.Popularity, a.ReleaseDate, a.Label, a.ExternalURL, a.Href, a.Type)
}

func loadChapter(ctx context.Context, c *Conn, rec models.Record) (Outcome, error) {
	ch, ok := rec.(models.Chapter)
	if !ok {
		return unexpectedRecord("chapters", rec)
	}
	return insertOnce(ctx, c, "chapters",
		`SELECT EXISTS(SELECT 1 FROM chapters WHERE spotify_id = ?)`, ch.SpotifyID,
		`INSERT INTO chapters (spotify_id, chapter_name, audio_preview_url, chapter_number, description,
			duration_ms, explicit, external_url, href, type, uri, release_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ch.SpotifyID, ch.Name, ch.AudioPreviewURL, ch.ChapterNumber, ch.Description,
		ch.DurationMS, ch.Explicit, ch.ExternalURL, ch.Href, ch.Type, ch.URI, ch.ReleaseDate)
}

func loadPlaylist(ctx context.Context, c *Conn, rec models.Record) (Outcome, error) {
	p, ok := rec.(models.Playlist)
	if !ok {
		return unexpectedRecord("playlists", rec)
	}
	return insertOnce(ctx, c, "playlists",
		`SELECT EXISTS(SELECT 1 FROM playlists WHERE spotify_id = ?)`, p.SpotifyID,
		`INSERT INTO playlists (spotify_id, playlist_name, description, nb_followers, collaborative,
			snapshot_id, href, external_url, uri)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.SpotifyID, p.Name, p.Description, p.Followers, p.Collaborative,
		p.SnapshotID, p.Href, p.ExternalURL, p.URI)
}

func loadTrack(ctx context.Context, c *Conn, rec models.Record) (Outcome, error) {
	t, ok := rec.(models.Track)
	if !ok {
		return unexpectedRecord("tracks", rec)
	}
	return loadAudio(ctx, c, t.Audio, "tracks", "track_id",
		`INSERT INTO tracks (track_id, popularity, type, duration_ms, is_playable, preview_url, disc_number)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.Popularity, t.Type, t.DurationMS, t.IsPlayable, t.PreviewURL, t.DiscNumber)
}

func loadAudiobook(ctx context.Context, c *Conn, rec models.Record) (Outcome, error) {
	b, ok := rec.(models.Audiobook)
	if !ok {
		return unexpectedRecord("audiobooks", rec)
	}
	return loadAudio(ctx, c, b.Audio, "audiobooks", "audiobook_id",
		`INSERT INTO audiobooks (audiobook_id, description, edition, publisher, total_chapters, media_type)
		VALUES (?, ?, ?, ?, ?, ?)`,
		b.Description, b.Edition, b.Publisher, b.TotalChapters, b.MediaType)
}

// loadAudio writes the shared audio row and then the extension row keyed by its audio_id.
// extInsert takes the audio_id followed by extArgs. The record is existing only
// when both rows were already present.
func loadAudio(ctx context.Context, c *Conn, a models.Audio, table, keyColumn, extInsert string, extArgs ...any) (Outcome, error) {
	audioID, found, err := c.LookupID(ctx, `SELECT audio_id FROM audio WHERE spotify_id = ?`, a.SpotifyID)
	if err != nil {
		return Failed, storeFailure("lookup audio", err)
	}

	if !found {
		audioID, err = c.InsertID(ctx,
			`INSERT INTO audio (spotify_id, audio_name, uri, href, external_url, explicit)
			VALUES (?, ?, ?, ?, ?, ?) RETURNING audio_id`,
			a.SpotifyID, a.Name, a.URI, a.Href, a.ExternalURL, a.Explicit)
		if shared.IsUniqueViolation(err) {
			audioID, found, err = c.LookupID(ctx, `SELECT audio_id FROM audio WHERE spotify_id = ?`, a.SpotifyID)
			if err == nil && !found {
				err = fmt.Errorf("audio %s vanished after a duplicate insert", a.SpotifyID)
			}
		}
		if err != nil {
			return Failed, storeFailure("insert audio", err)
		}
	}

	extOutcome, err := insertOnce(ctx, c, table,
		`SELECT EXISTS(SELECT 1 FROM `+table+` WHERE `+keyColumn+` = ?)`, audioID,
		extInsert, append([]any{audioID}, extArgs...)...)
	if err != nil {
		return Failed, err
	}
	if extOutcome == Existing && !found {
		return Inserted, nil
	}
	return extOutcome, nil
}
