package stream

// Rollup rows are derived wholesale from the fact tables by the aggregator.
// They carry no independent lifecycle: a rebuild deletes and recreates every
// row for a profile within one category.

// DailyStats aggregates a profile's plays by calendar date (from the event
// timestamp, in UTC).
type DailyStats struct {
	ProfileID    int64  `json:"profileId"`
	Date         string `json:"date"` // YYYY-MM-DD
	TotalPlays   int    `json:"totalPlays"`
	TotalMinutes int    `json:"totalMinutes"`
	UniqueTracks int    `json:"uniqueTracks"`
}

// YearlyStats aggregates a profile's plays by calendar year.
type YearlyStats struct {
	ProfileID    int64 `json:"profileId"`
	Year         int   `json:"year"`
	TotalPlays   int   `json:"totalPlays"`
	TotalMinutes int   `json:"totalMinutes"`
	UniqueTracks int   `json:"uniqueTracks"`
}

// CountryStats aggregates a profile's plays by country code. Percentages are
// computed by the read layer, never stored.
type CountryStats struct {
	ProfileID    int64  `json:"profileId"`
	Country      string `json:"country"`
	TotalPlays   int    `json:"totalPlays"`
	TotalMinutes int    `json:"totalMinutes"`
}

// ArtistStats aggregates a profile's plays by the artist reached through the
// track's album.
type ArtistStats struct {
	ProfileID    int64  `json:"profileId"`
	ArtistID     int64  `json:"artistId"`
	ArtistName   string `json:"artistName"`
	TotalPlays   int    `json:"totalPlays"`
	TotalMinutes int    `json:"totalMinutes"`
}
