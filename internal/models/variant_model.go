package models

import (
	"database/sql"
	"time"
)

// Variant is one network-specific rendering of a Post.
type Variant struct {
	ID        int64          `db:"id" json:"id"`
	PostID    int64          `db:"post_id" json:"post_id"`
	Network   string         `db:"network" json:"network"`
	Text      string         `db:"text" json:"text"` // falls back to Post.Body when empty
	Status    string         `db:"status" json:"status"`
	URI       sql.NullString `db:"uri" json:"uri"`             // platform-native identifier
	Permalink sql.NullString `db:"permalink" json:"permalink"` // human-viewable URL
	DateSent  sql.NullTime   `db:"date_sent" json:"date_sent"`
	TimeSent  sql.NullTime   `db:"time_sent" json:"time_sent"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

const (
	NetworkBluesky   = "BLUESKY"
	NetworkInstagram = "INSTAGRAM"
	NetworkFacebook  = "FACEBOOK"
	NetworkTiktok    = "TIKTOK"
	NetworkTwitter   = "TWITTER"
)

var AllNetworks = []string{
	NetworkBluesky,
	NetworkInstagram,
	NetworkFacebook,
	NetworkTiktok,
	NetworkTwitter,
}

func IsKnownNetwork(network string) bool {
	for _, n := range AllNetworks {
		if n == network {
			return true
		}
	}
	return false
}

// CaptionFor returns the variant override text, falling back to the post body.
func (v *Variant) CaptionFor(post *Post) string {
	if v.Text != "" {
		return v.Text
	}
	return post.Body
}

// SplitInstant breaks one publish instant into the date and clock-time halves
// the variants table stores separately.
func SplitInstant(t time.Time) (time.Time, time.Time) {
	date := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	clock := time.Date(1970, time.January, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	return date, clock
}
