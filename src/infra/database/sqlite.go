package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"playtrace/src/stream"

	"github.com/mattn/go-sqlite3"
)

// SqliteStore is a SQLite implementation of the stream.Store interface.
type SqliteStore struct {
	db *sql.DB
}

// NewSqliteStore opens (and migrates) the database at path.
func NewSqliteStore(path string) (*SqliteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	if err := createTables(db); err != nil {
		return nil, err
	}

	return &SqliteStore{db: db}, nil
}

// Close closes the underlying database handle.
func (d *SqliteStore) Close() error {
	return d.db.Close()
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS artists (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL UNIQUE
		);

		CREATE TABLE IF NOT EXISTS albums (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			artist_id INTEGER NOT NULL,
			UNIQUE(name, artist_id),
			FOREIGN KEY (artist_id) REFERENCES artists(id)
		);

		CREATE TABLE IF NOT EXISTS tracks (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			album_id INTEGER NOT NULL,
			uri TEXT UNIQUE,
			duration_ms INTEGER,
			UNIQUE(name, album_id),
			FOREIGN KEY (album_id) REFERENCES albums(id)
		);

		CREATE TABLE IF NOT EXISTS shows (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL UNIQUE
		);

		CREATE TABLE IF NOT EXISTS episodes (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			show_id INTEGER NOT NULL,
			uri TEXT UNIQUE,
			UNIQUE(name, show_id),
			FOREIGN KEY (show_id) REFERENCES shows(id)
		);

		CREATE TABLE IF NOT EXISTS audiobooks (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			uri TEXT UNIQUE
		);

		CREATE TABLE IF NOT EXISTS profiles (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			created_at TEXT NOT NULL,
			last_import TEXT,
			statistics TEXT
		);

		CREATE TABLE IF NOT EXISTS plays (
			id INTEGER PRIMARY KEY,
			profile_id INTEGER,
			track_id INTEGER NOT NULL,
			timestamp TEXT NOT NULL,
			ms_played INTEGER NOT NULL,
			platform TEXT,
			country TEXT,
			username TEXT,
			ip_addr TEXT,
			user_agent TEXT,
			reason_start TEXT,
			reason_end TEXT,
			shuffle BOOLEAN DEFAULT FALSE,
			skipped BOOLEAN DEFAULT FALSE,
			offline BOOLEAN DEFAULT FALSE,
			incognito BOOLEAN DEFAULT FALSE,
			offline_timestamp TEXT,
			FOREIGN KEY (profile_id) REFERENCES profiles(id),
			FOREIGN KEY (track_id) REFERENCES tracks(id)
		);

		CREATE TABLE IF NOT EXISTS podcast_plays (
			id INTEGER PRIMARY KEY,
			profile_id INTEGER,
			episode_id INTEGER NOT NULL,
			timestamp TEXT NOT NULL,
			ms_played INTEGER NOT NULL,
			platform TEXT,
			country TEXT,
			username TEXT,
			ip_addr TEXT,
			user_agent TEXT,
			reason_start TEXT,
			reason_end TEXT,
			shuffle BOOLEAN DEFAULT FALSE,
			skipped BOOLEAN DEFAULT FALSE,
			offline BOOLEAN DEFAULT FALSE,
			incognito BOOLEAN DEFAULT FALSE,
			offline_timestamp TEXT,
			FOREIGN KEY (profile_id) REFERENCES profiles(id),
			FOREIGN KEY (episode_id) REFERENCES episodes(id)
		);

		CREATE TABLE IF NOT EXISTS audiobook_plays (
			id INTEGER PRIMARY KEY,
			profile_id INTEGER,
			audiobook_id INTEGER NOT NULL,
			chapter_title TEXT,
			chapter_uri TEXT,
			timestamp TEXT NOT NULL,
			ms_played INTEGER NOT NULL,
			platform TEXT,
			country TEXT,
			username TEXT,
			ip_addr TEXT,
			user_agent TEXT,
			reason_start TEXT,
			reason_end TEXT,
			shuffle BOOLEAN DEFAULT FALSE,
			skipped BOOLEAN DEFAULT FALSE,
			offline BOOLEAN DEFAULT FALSE,
			incognito BOOLEAN DEFAULT FALSE,
			offline_timestamp TEXT,
			FOREIGN KEY (profile_id) REFERENCES profiles(id),
			FOREIGN KEY (audiobook_id) REFERENCES audiobooks(id)
		);

		CREATE TABLE IF NOT EXISTS daily_stats (
			id INTEGER PRIMARY KEY,
			profile_id INTEGER NOT NULL,
			date TEXT NOT NULL,
			total_plays INTEGER NOT NULL,
			total_minutes INTEGER NOT NULL,
			unique_tracks INTEGER NOT NULL,
			UNIQUE(profile_id, date),
			FOREIGN KEY (profile_id) REFERENCES profiles(id)
		);

		CREATE TABLE IF NOT EXISTS yearly_stats (
			id INTEGER PRIMARY KEY,
			profile_id INTEGER NOT NULL,
			year INTEGER NOT NULL,
			total_plays INTEGER NOT NULL,
			total_minutes INTEGER NOT NULL,
			unique_tracks INTEGER NOT NULL,
			UNIQUE(profile_id, year),
			FOREIGN KEY (profile_id) REFERENCES profiles(id)
		);

		CREATE TABLE IF NOT EXISTS country_stats (
			id INTEGER PRIMARY KEY,
			profile_id INTEGER NOT NULL,
			country TEXT NOT NULL,
			total_plays INTEGER NOT NULL,
			total_minutes INTEGER NOT NULL,
			UNIQUE(profile_id, country),
			FOREIGN KEY (profile_id) REFERENCES profiles(id)
		);

		CREATE TABLE IF NOT EXISTS artist_stats (
			id INTEGER PRIMARY KEY,
			profile_id INTEGER NOT NULL,
			artist_id INTEGER NOT NULL,
			total_plays INTEGER NOT NULL,
			total_minutes INTEGER NOT NULL,
			UNIQUE(profile_id, artist_id),
			FOREIGN KEY (profile_id) REFERENCES profiles(id),
			FOREIGN KEY (artist_id) REFERENCES artists(id)
		);

		CREATE INDEX IF NOT EXISTS idx_albums_artist ON albums(artist_id);
		CREATE INDEX IF NOT EXISTS idx_tracks_album ON tracks(album_id);
		CREATE INDEX IF NOT EXISTS idx_episodes_show ON episodes(show_id);
		CREATE INDEX IF NOT EXISTS idx_plays_profile ON plays(profile_id);
		CREATE INDEX IF NOT EXISTS idx_plays_track ON plays(track_id);
		CREATE INDEX IF NOT EXISTS idx_podcast_plays_profile ON podcast_plays(profile_id);
		CREATE INDEX IF NOT EXISTS idx_audiobook_plays_profile ON audiobook_plays(profile_id);
	`)
	return err
}

// wrapConflict maps a sqlite uniqueness violation onto stream.ErrConflict so
// callers can recover from creation races by re-reading.
func wrapConflict(err error) error {
	if err == nil {
		return nil
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return fmt.Errorf("%w: %v", stream.ErrConflict, err)
	}
	return err
}

// ---- Artists ----

// AddArtist inserts the artist and sets its id.
func (d *SqliteStore) AddArtist(ctx context.Context, artist *stream.Artist) error {
	if err := artist.Validate(); err != nil {
		return err
	}
	res, err := d.db.ExecContext(ctx, `INSERT INTO artists (name) VALUES (?)`, artist.Name)
	if err != nil {
		return wrapConflict(err)
	}
	artist.ID, err = res.LastInsertId()
	return err
}

// GetArtist returns the artist by id, nil when absent.
func (d *SqliteStore) GetArtist(ctx context.Context, id int64) (*stream.Artist, error) {
	var a stream.Artist
	err := d.db.QueryRowContext(ctx, `SELECT id, name FROM artists WHERE id = ?`, id).Scan(&a.ID, &a.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetArtistByName returns the artist by exact name, nil when absent.
func (d *SqliteStore) GetArtistByName(ctx context.Context, name string) (*stream.Artist, error) {
	var a stream.Artist
	err := d.db.QueryRowContext(ctx, `SELECT id, name FROM artists WHERE name = ?`, name).Scan(&a.ID, &a.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetArtistsPaginated returns a page of artists, optionally filtered by a
// case-insensitive substring query.
func (d *SqliteStore) GetArtistsPaginated(ctx context.Context, query string, limit, offset int) ([]*stream.Artist, error) {
	var rows *sql.Rows
	var err error
	if query == "" {
		rows, err = d.db.QueryContext(ctx, `SELECT id, name FROM artists ORDER BY name LIMIT ? OFFSET ?`, limit, offset)
	} else {
		rows, err = d.db.QueryContext(ctx,
			`SELECT id, name FROM artists WHERE name LIKE '%' || ? || '%' COLLATE NOCASE ORDER BY name LIMIT ? OFFSET ?`,
			query, limit, offset)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var artists []*stream.Artist
	for rows.Next() {
		var a stream.Artist
		if err := rows.Scan(&a.ID, &a.Name); err != nil {
			return nil, err
		}
		artists = append(artists, &a)
	}
	return artists, rows.Err()
}

// GetArtistsCount returns the number of artists matching the query.
func (d *SqliteStore) GetArtistsCount(ctx context.Context, query string) (int, error) {
	var count int
	var err error
	if query == "" {
		err = d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM artists`).Scan(&count)
	} else {
		err = d.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM artists WHERE name LIKE '%' || ? || '%' COLLATE NOCASE`, query).Scan(&count)
	}
	return count, err
}

// ---- Albums ----

// AddAlbum inserts the album and sets its id.
func (d *SqliteStore) AddAlbum(ctx context.Context, album *stream.Album) error {
	if err := album.Validate(); err != nil {
		return err
	}
	res, err := d.db.ExecContext(ctx, `INSERT INTO albums (name, artist_id) VALUES (?, ?)`, album.Name, album.ArtistID)
	if err != nil {
		return wrapConflict(err)
	}
	album.ID, err = res.LastInsertId()
	return err
}

// GetAlbumByName returns the album by (name, artist), nil when absent.
func (d *SqliteStore) GetAlbumByName(ctx context.Context, name string, artistID int64) (*stream.Album, error) {
	var a stream.Album
	err := d.db.QueryRowContext(ctx,
		`SELECT id, name, artist_id FROM albums WHERE name = ? AND artist_id = ?`, name, artistID).
		Scan(&a.ID, &a.Name, &a.ArtistID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ---- Tracks ----

// AddTrack inserts the track and sets its id.
func (d *SqliteStore) AddTrack(ctx context.Context, track *stream.Track) error {
	if err := track.Validate(); err != nil {
		return err
	}
	res, err := d.db.ExecContext(ctx,
		`INSERT INTO tracks (name, album_id, uri, duration_ms) VALUES (?, ?, ?, ?)`,
		track.Name, track.AlbumID, nullString(track.URI), track.DurationMs)
	if err != nil {
		return wrapConflict(err)
	}
	track.ID, err = res.LastInsertId()
	return err
}

func (d *SqliteStore) scanTrack(row *sql.Row) (*stream.Track, error) {
	var t stream.Track
	var uri sql.NullString
	err := row.Scan(&t.ID, &t.Name, &t.AlbumID, &uri, &t.DurationMs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	t.URI = uri.String
	return &t, nil
}

// GetTrackByURI returns the track by its external URI, nil when absent.
func (d *SqliteStore) GetTrackByURI(ctx context.Context, uri string) (*stream.Track, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT id, name, album_id, uri, duration_ms FROM tracks WHERE uri = ?`, uri)
	return d.scanTrack(row)
}

// GetTrackByName returns the track by (name, album), nil when absent.
func (d *SqliteStore) GetTrackByName(ctx context.Context, name string, albumID int64) (*stream.Track, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT id, name, album_id, uri, duration_ms FROM tracks WHERE name = ? AND album_id = ?`, name, albumID)
	return d.scanTrack(row)
}

// SetTrackURI backfills the URI onto a track that lacks one. A URI already
// set is never overwritten.
func (d *SqliteStore) SetTrackURI(ctx context.Context, id int64, uri string) error {
	_, err := d.db.ExecContext(ctx, `UPDATE tracks SET uri = ? WHERE id = ? AND uri IS NULL`, uri, id)
	return wrapConflict(err)
}

// ---- Shows ----

// AddShow inserts the show and sets its id.
func (d *SqliteStore) AddShow(ctx context.Context, show *stream.Show) error {
	if err := show.Validate(); err != nil {
		return err
	}
	res, err := d.db.ExecContext(ctx, `INSERT INTO shows (name) VALUES (?)`, show.Name)
	if err != nil {
		return wrapConflict(err)
	}
	show.ID, err = res.LastInsertId()
	return err
}

// GetShowByName returns the show by name, nil when absent.
func (d *SqliteStore) GetShowByName(ctx context.Context, name string) (*stream.Show, error) {
	var s stream.Show
	err := d.db.QueryRowContext(ctx, `SELECT id, name FROM shows WHERE name = ?`, name).Scan(&s.ID, &s.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ---- Episodes ----

// AddEpisode inserts the episode and sets its id.
func (d *SqliteStore) AddEpisode(ctx context.Context, episode *stream.Episode) error {
	if err := episode.Validate(); err != nil {
		return err
	}
	res, err := d.db.ExecContext(ctx,
		`INSERT INTO episodes (name, show_id, uri) VALUES (?, ?, ?)`,
		episode.Name, episode.ShowID, nullString(episode.URI))
	if err != nil {
		return wrapConflict(err)
	}
	episode.ID, err = res.LastInsertId()
	return err
}

func (d *SqliteStore) scanEpisode(row *sql.Row) (*stream.Episode, error) {
	var e stream.Episode
	var uri sql.NullString
	err := row.Scan(&e.ID, &e.Name, &e.ShowID, &uri)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	e.URI = uri.String
	return &e, nil
}

// GetEpisodeByURI returns the episode by its external URI, nil when absent.
func (d *SqliteStore) GetEpisodeByURI(ctx context.Context, uri string) (*stream.Episode, error) {
	row := d.db.QueryRowContext(ctx, `SELECT id, name, show_id, uri FROM episodes WHERE uri = ?`, uri)
	return d.scanEpisode(row)
}

// GetEpisodeByName returns the episode by (name, show), nil when absent.
func (d *SqliteStore) GetEpisodeByName(ctx context.Context, name string, showID int64) (*stream.Episode, error) {
	row := d.db.QueryRowContext(ctx, `SELECT id, name, show_id, uri FROM episodes WHERE name = ? AND show_id = ?`, name, showID)
	return d.scanEpisode(row)
}

// SetEpisodeURI backfills the URI onto an episode that lacks one.
func (d *SqliteStore) SetEpisodeURI(ctx context.Context, id int64, uri string) error {
	_, err := d.db.ExecContext(ctx, `UPDATE episodes SET uri = ? WHERE id = ? AND uri IS NULL`, uri, id)
	return wrapConflict(err)
}

// ---- Audiobooks ----

// AddAudiobook inserts the audiobook and sets its id.
func (d *SqliteStore) AddAudiobook(ctx context.Context, audiobook *stream.Audiobook) error {
	if err := audiobook.Validate(); err != nil {
		return err
	}
	res, err := d.db.ExecContext(ctx,
		`INSERT INTO audiobooks (name, uri) VALUES (?, ?)`, audiobook.Name, nullString(audiobook.URI))
	if err != nil {
		return wrapConflict(err)
	}
	audiobook.ID, err = res.LastInsertId()
	return err
}

func (d *SqliteStore) scanAudiobook(row *sql.Row) (*stream.Audiobook, error) {
	var a stream.Audiobook
	var uri sql.NullString
	err := row.Scan(&a.ID, &a.Name, &uri)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	a.URI = uri.String
	return &a, nil
}

// GetAudiobookByURI returns the audiobook by URI, nil when absent.
func (d *SqliteStore) GetAudiobookByURI(ctx context.Context, uri string) (*stream.Audiobook, error) {
	row := d.db.QueryRowContext(ctx, `SELECT id, name, uri FROM audiobooks WHERE uri = ?`, uri)
	return d.scanAudiobook(row)
}

// GetAudiobookByName returns the audiobook by name, nil when absent.
func (d *SqliteStore) GetAudiobookByName(ctx context.Context, name string) (*stream.Audiobook, error) {
	row := d.db.QueryRowContext(ctx, `SELECT id, name, uri FROM audiobooks WHERE name = ?`, name)
	return d.scanAudiobook(row)
}

// SetAudiobookURI backfills the URI onto an audiobook that lacks one.
func (d *SqliteStore) SetAudiobookURI(ctx context.Context, id int64, uri string) error {
	_, err := d.db.ExecContext(ctx, `UPDATE audiobooks SET uri = ? WHERE id = ? AND uri IS NULL`, uri, id)
	return wrapConflict(err)
}

// ---- Profiles ----

// AddProfile inserts the profile and sets its id.
func (d *SqliteStore) AddProfile(ctx context.Context, profile *stream.Profile) error {
	if err := profile.Validate(); err != nil {
		return err
	}
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = time.Now().UTC()
	}
	statsJSON, err := json.Marshal(profile.Statistics)
	if err != nil {
		return err
	}
	res, err := d.db.ExecContext(ctx,
		`INSERT INTO profiles (name, created_at, statistics) VALUES (?, ?, ?)`,
		profile.Name, profile.CreatedAt.Format(time.RFC3339), string(statsJSON))
	if err != nil {
		return wrapConflict(err)
	}
	profile.ID, err = res.LastInsertId()
	return err
}

func scanProfile(scan func(dest ...any) error) (*stream.Profile, error) {
	var p stream.Profile
	var createdAt string
	var lastImport, statsJSON sql.NullString
	err := scan(&p.ID, &p.Name, &createdAt, &lastImport, &statsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if lastImport.Valid {
		if t, err := time.Parse(time.RFC3339, lastImport.String); err == nil {
			p.LastImport = &t
		}
	}
	if statsJSON.Valid && statsJSON.String != "" {
		if err := json.Unmarshal([]byte(statsJSON.String), &p.Statistics); err != nil {
			return nil, fmt.Errorf("failed to decode statistics for profile %d: %w", p.ID, err)
		}
	}
	return &p, nil
}

// GetProfile returns the profile by id, nil when absent.
func (d *SqliteStore) GetProfile(ctx context.Context, id int64) (*stream.Profile, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT id, name, created_at, last_import, statistics FROM profiles WHERE id = ?`, id)
	return scanProfile(row.Scan)
}

// GetProfileByName returns the profile by name, nil when absent.
func (d *SqliteStore) GetProfileByName(ctx context.Context, name string) (*stream.Profile, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT id, name, created_at, last_import, statistics FROM profiles WHERE name = ?`, name)
	return scanProfile(row.Scan)
}

// GetProfiles returns every profile ordered by name.
func (d *SqliteStore) GetProfiles(ctx context.Context) ([]*stream.Profile, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, name, created_at, last_import, statistics FROM profiles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []*stream.Profile
	for rows.Next() {
		p, err := scanProfile(rows.Scan)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// SetProfileLastImport stamps the profile's last import time with now.
func (d *SqliteStore) SetProfileLastImport(ctx context.Context, id int64) error {
	_, err := d.db.ExecContext(ctx,
		`UPDATE profiles SET last_import = ? WHERE id = ?`, time.Now().UTC().Format(time.RFC3339), id)
	return err
}

// SetProfileStatistics persists the summary counters blob.
func (d *SqliteStore) SetProfileStatistics(ctx context.Context, id int64, stats stream.Statistics) error {
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	_, err = d.db.ExecContext(ctx, `UPDATE profiles SET statistics = ? WHERE id = ?`, string(statsJSON), id)
	return err
}

// DeleteProfile removes the profile with all its facts and rollups in one
// transaction.
func (d *SqliteStore) DeleteProfile(ctx context.Context, id int64) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM plays WHERE profile_id = ?`,
		`DELETE FROM podcast_plays WHERE profile_id = ?`,
		`DELETE FROM audiobook_plays WHERE profile_id = ?`,
		`DELETE FROM daily_stats WHERE profile_id = ?`,
		`DELETE FROM yearly_stats WHERE profile_id = ?`,
		`DELETE FROM country_stats WHERE profile_id = ?`,
		`DELETE FROM artist_stats WHERE profile_id = ?`,
		`DELETE FROM profiles WHERE id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ---- Facts ----

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

// AddPlay inserts one music play event.
func (d *SqliteStore) AddPlay(ctx context.Context, play *stream.Play) error {
	res, err := d.db.ExecContext(ctx, `
		INSERT INTO plays (profile_id, track_id, timestamp, ms_played, platform, country,
			username, ip_addr, user_agent, reason_start, reason_end, shuffle, skipped,
			offline, incognito, offline_timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, play.ProfileID, play.TrackID, play.Timestamp.UTC().Format(time.RFC3339), play.MsPlayed,
		play.Platform, play.Country, play.Username, play.IPAddr, play.UserAgent,
		play.ReasonStart, play.ReasonEnd, play.Shuffle, play.Skipped,
		play.Offline, play.Incognito, nullTime(play.OfflineTimestamp))
	if err != nil {
		return err
	}
	play.ID, err = res.LastInsertId()
	return err
}

// AddPodcastPlay inserts one podcast play event.
func (d *SqliteStore) AddPodcastPlay(ctx context.Context, play *stream.PodcastPlay) error {
	res, err := d.db.ExecContext(ctx, `
		INSERT INTO podcast_plays (profile_id, episode_id, timestamp, ms_played, platform,
			country, username, ip_addr, user_agent, reason_start, reason_end, shuffle,
			skipped, offline, incognito, offline_timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, play.ProfileID, play.EpisodeID, play.Timestamp.UTC().Format(time.RFC3339), play.MsPlayed,
		play.Platform, play.Country, play.Username, play.IPAddr, play.UserAgent,
		play.ReasonStart, play.ReasonEnd, play.Shuffle, play.Skipped,
		play.Offline, play.Incognito, nullTime(play.OfflineTimestamp))
	if err != nil {
		return err
	}
	play.ID, err = res.LastInsertId()
	return err
}

// AddAudiobookPlay inserts one audiobook play event.
func (d *SqliteStore) AddAudiobookPlay(ctx context.Context, play *stream.AudiobookPlay) error {
	res, err := d.db.ExecContext(ctx, `
		INSERT INTO audiobook_plays (profile_id, audiobook_id, chapter_title, chapter_uri,
			timestamp, ms_played, platform, country, username, ip_addr, user_agent,
			reason_start, reason_end, shuffle, skipped, offline, incognito, offline_timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, play.ProfileID, play.AudiobookID, nullString(play.ChapterTitle), nullString(play.ChapterURI),
		play.Timestamp.UTC().Format(time.RFC3339), play.MsPlayed,
		play.Platform, play.Country, play.Username, play.IPAddr, play.UserAgent,
		play.ReasonStart, play.ReasonEnd, play.Shuffle, play.Skipped,
		play.Offline, play.Incognito, nullTime(play.OfflineTimestamp))
	if err != nil {
		return err
	}
	play.ID, err = res.LastInsertId()
	return err
}

// DeleteProfileFacts wipes every fact row for the profile in one
// transaction. Used before re-import (full replace).
func (d *SqliteStore) DeleteProfileFacts(ctx context.Context, profileID int64) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM plays WHERE profile_id = ?`,
		`DELETE FROM podcast_plays WHERE profile_id = ?`,
		`DELETE FROM audiobook_plays WHERE profile_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, profileID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetPlaysPaginated returns a page of the profile's plays joined to their
// track/album/artist names, newest first.
func (d *SqliteStore) GetPlaysPaginated(ctx context.Context, profileID int64, limit, offset int) ([]*stream.PlayListing, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT p.id, p.timestamp, p.ms_played, t.name, al.name, ar.name,
			COALESCE(p.country, ''), COALESCE(p.platform, '')
		FROM plays p
		JOIN tracks t ON p.track_id = t.id
		JOIN albums al ON t.album_id = al.id
		JOIN artists ar ON al.artist_id = ar.id
		WHERE p.profile_id = ?
		ORDER BY p.timestamp DESC
		LIMIT ? OFFSET ?
	`, profileID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var listings []*stream.PlayListing
	for rows.Next() {
		var l stream.PlayListing
		var ts string
		if err := rows.Scan(&l.ID, &ts, &l.MsPlayed, &l.TrackName, &l.AlbumName, &l.ArtistName, &l.Country, &l.Platform); err != nil {
			return nil, err
		}
		l.Timestamp, _ = time.Parse(time.RFC3339, ts)
		listings = append(listings, &l)
	}
	return listings, rows.Err()
}

// GetPlaysCount returns the number of plays for the profile.
func (d *SqliteStore) GetPlaysCount(ctx context.Context, profileID int64) (int, error) {
	var count int
	err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM plays WHERE profile_id = ?`, profileID).Scan(&count)
	return count, err
}

// ---- Statistics ----

// ComputeProfileStatistics derives the summary counters from the fact tables.
func (d *SqliteStore) ComputeProfileStatistics(ctx context.Context, profileID int64) (stream.Statistics, error) {
	var stats stream.Statistics

	err := d.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			CAST(ROUND(COALESCE(SUM(ms_played), 0) / 60000.0) AS INTEGER),
			COUNT(DISTINCT track_id)
		FROM plays WHERE profile_id = ?
	`, profileID).Scan(&stats.TotalPlays, &stats.TotalMinutes, &stats.UniqueTracks)
	if err != nil {
		return stats, err
	}

	err = d.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT al.artist_id), COUNT(DISTINCT t.album_id)
		FROM plays p
		JOIN tracks t ON p.track_id = t.id
		JOIN albums al ON t.album_id = al.id
		WHERE p.profile_id = ?
	`, profileID).Scan(&stats.UniqueArtists, &stats.UniqueAlbums)
	if err != nil {
		return stats, err
	}

	err = d.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			CAST(ROUND(COALESCE(SUM(pp.ms_played), 0) / 60000.0) AS INTEGER),
			COUNT(DISTINCT pp.episode_id),
			COUNT(DISTINCT e.show_id)
		FROM podcast_plays pp
		JOIN episodes e ON pp.episode_id = e.id
		WHERE pp.profile_id = ?
	`, profileID).Scan(&stats.TotalPodcastPlays, &stats.TotalPodcastMinutes, &stats.UniqueEpisodes, &stats.UniqueShows)
	if err != nil {
		return stats, err
	}

	err = d.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			CAST(ROUND(COALESCE(SUM(ms_played), 0) / 60000.0) AS INTEGER),
			COUNT(DISTINCT audiobook_id)
		FROM audiobook_plays WHERE profile_id = ?
	`, profileID).Scan(&stats.TotalAudiobookPlays, &stats.TotalAudiobookMinutes, &stats.UniqueAudiobooks)
	if err != nil {
		return stats, err
	}

	return stats, nil
}

// ---- Rollups ----

// rebuildRollup runs a delete-then-insert pair as one transaction so an
// interrupted rebuild never leaves a half-old/half-new category.
func (d *SqliteStore) rebuildRollup(ctx context.Context, profileID int64, deleteStmt, insertStmt string) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, deleteStmt, profileID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, insertStmt, profileID, profileID); err != nil {
		return err
	}
	return tx.Commit()
}

// RebuildDailyStats regroups the profile's plays by calendar date.
func (d *SqliteStore) RebuildDailyStats(ctx context.Context, profileID int64) error {
	return d.rebuildRollup(ctx, profileID,
		`DELETE FROM daily_stats WHERE profile_id = ?`,
		`INSERT INTO daily_stats (profile_id, date, total_plays, total_minutes, unique_tracks)
		 SELECT ?, date(timestamp), COUNT(*),
			CAST(ROUND(SUM(ms_played) / 60000.0) AS INTEGER),
			COUNT(DISTINCT track_id)
		 FROM plays WHERE profile_id = ?
		 GROUP BY date(timestamp)`)
}

// RebuildYearlyStats regroups the profile's plays by calendar year.
func (d *SqliteStore) RebuildYearlyStats(ctx context.Context, profileID int64) error {
	return d.rebuildRollup(ctx, profileID,
		`DELETE FROM yearly_stats WHERE profile_id = ?`,
		`INSERT INTO yearly_stats (profile_id, year, total_plays, total_minutes, unique_tracks)
		 SELECT ?, CAST(strftime('%Y', timestamp) AS INTEGER), COUNT(*),
			CAST(ROUND(SUM(ms_played) / 60000.0) AS INTEGER),
			COUNT(DISTINCT track_id)
		 FROM plays WHERE profile_id = ?
		 GROUP BY strftime('%Y', timestamp)`)
}

// RebuildCountryStats regroups the profile's plays by non-empty country.
func (d *SqliteStore) RebuildCountryStats(ctx context.Context, profileID int64) error {
	return d.rebuildRollup(ctx, profileID,
		`DELETE FROM country_stats WHERE profile_id = ?`,
		`INSERT INTO country_stats (profile_id, country, total_plays, total_minutes)
		 SELECT ?, country, COUNT(*),
			CAST(ROUND(SUM(ms_played) / 60000.0) AS INTEGER)
		 FROM plays WHERE profile_id = ? AND country IS NOT NULL AND country != ''
		 GROUP BY country`)
}

// RebuildArtistStats regroups the profile's plays by the artist reached via
// track, album.
func (d *SqliteStore) RebuildArtistStats(ctx context.Context, profileID int64) error {
	return d.rebuildRollup(ctx, profileID,
		`DELETE FROM artist_stats WHERE profile_id = ?`,
		`INSERT INTO artist_stats (profile_id, artist_id, total_plays, total_minutes)
		 SELECT ?, al.artist_id, COUNT(*),
			CAST(ROUND(SUM(p.ms_played) / 60000.0) AS INTEGER)
		 FROM plays p
		 JOIN tracks t ON p.track_id = t.id
		 JOIN albums al ON t.album_id = al.id
		 WHERE p.profile_id = ?
		 GROUP BY al.artist_id`)
}

// GetDailyStats returns the profile's daily rollups ordered by date.
func (d *SqliteStore) GetDailyStats(ctx context.Context, profileID int64) ([]*stream.DailyStats, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT profile_id, date, total_plays, total_minutes, unique_tracks
		FROM daily_stats WHERE profile_id = ? ORDER BY date
	`, profileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*stream.DailyStats
	for rows.Next() {
		var s stream.DailyStats
		if err := rows.Scan(&s.ProfileID, &s.Date, &s.TotalPlays, &s.TotalMinutes, &s.UniqueTracks); err != nil {
			return nil, err
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

// GetYearlyStats returns the profile's yearly rollups ordered by year.
func (d *SqliteStore) GetYearlyStats(ctx context.Context, profileID int64) ([]*stream.YearlyStats, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT profile_id, year, total_plays, total_minutes, unique_tracks
		FROM yearly_stats WHERE profile_id = ? ORDER BY year
	`, profileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*stream.YearlyStats
	for rows.Next() {
		var s stream.YearlyStats
		if err := rows.Scan(&s.ProfileID, &s.Year, &s.TotalPlays, &s.TotalMinutes, &s.UniqueTracks); err != nil {
			return nil, err
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

// GetCountryStats returns the profile's country rollups, most played first.
func (d *SqliteStore) GetCountryStats(ctx context.Context, profileID int64) ([]*stream.CountryStats, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT profile_id, country, total_plays, total_minutes
		FROM country_stats WHERE profile_id = ? ORDER BY total_plays DESC
	`, profileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*stream.CountryStats
	for rows.Next() {
		var s stream.CountryStats
		if err := rows.Scan(&s.ProfileID, &s.Country, &s.TotalPlays, &s.TotalMinutes); err != nil {
			return nil, err
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

// GetArtistStats returns the profile's artist rollups joined to artist
// names, most played first.
func (d *SqliteStore) GetArtistStats(ctx context.Context, profileID int64) ([]*stream.ArtistStats, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT s.profile_id, s.artist_id, a.name, s.total_plays, s.total_minutes
		FROM artist_stats s
		JOIN artists a ON s.artist_id = a.id
		WHERE s.profile_id = ?
		ORDER BY s.total_plays DESC
	`, profileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*stream.ArtistStats
	for rows.Next() {
		var s stream.ArtistStats
		if err := rows.Scan(&s.ProfileID, &s.ArtistID, &s.ArtistName, &s.TotalPlays, &s.TotalMinutes); err != nil {
			return nil, err
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

// DeleteProfileRollups clears every rollup row for the profile in one
// transaction.
func (d *SqliteStore) DeleteProfileRollups(ctx context.Context, profileID int64) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM daily_stats WHERE profile_id = ?`,
		`DELETE FROM yearly_stats WHERE profile_id = ?`,
		`DELETE FROM country_stats WHERE profile_id = ?`,
		`DELETE FROM artist_stats WHERE profile_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, profileID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ---- Orphan pruning ----

func (d *SqliteStore) pruneOrphans(ctx context.Context, stmt string) (int64, error) {
	res, err := d.db.ExecContext(ctx, stmt)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// PruneOrphanTracks removes tracks no profile's plays reference anymore.
func (d *SqliteStore) PruneOrphanTracks(ctx context.Context) (int64, error) {
	return d.pruneOrphans(ctx,
		`DELETE FROM tracks WHERE id NOT IN (SELECT DISTINCT track_id FROM plays)`)
}

// PruneOrphanAlbums removes albums with no remaining tracks.
func (d *SqliteStore) PruneOrphanAlbums(ctx context.Context) (int64, error) {
	return d.pruneOrphans(ctx,
		`DELETE FROM albums WHERE id NOT IN (SELECT DISTINCT album_id FROM tracks)`)
}

// PruneOrphanArtists removes artists with no remaining albums and no
// remaining artist rollups.
func (d *SqliteStore) PruneOrphanArtists(ctx context.Context) (int64, error) {
	return d.pruneOrphans(ctx,
		`DELETE FROM artists WHERE id NOT IN (SELECT DISTINCT artist_id FROM albums)
			AND id NOT IN (SELECT DISTINCT artist_id FROM artist_stats)`)
}

// PruneOrphanEpisodes removes episodes no podcast plays reference anymore.
func (d *SqliteStore) PruneOrphanEpisodes(ctx context.Context) (int64, error) {
	return d.pruneOrphans(ctx,
		`DELETE FROM episodes WHERE id NOT IN (SELECT DISTINCT episode_id FROM podcast_plays)`)
}

// PruneOrphanShows removes shows with no remaining episodes.
func (d *SqliteStore) PruneOrphanShows(ctx context.Context) (int64, error) {
	return d.pruneOrphans(ctx,
		`DELETE FROM shows WHERE id NOT IN (SELECT DISTINCT show_id FROM episodes)`)
}

// PruneOrphanAudiobooks removes audiobooks no plays reference anymore.
func (d *SqliteStore) PruneOrphanAudiobooks(ctx context.Context) (int64, error) {
	return d.pruneOrphans(ctx,
		`DELETE FROM audiobooks WHERE id NOT IN (SELECT DISTINCT audiobook_id FROM audiobook_plays)`)
}
