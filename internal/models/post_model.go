package models

import "time"

type Post struct {
	ID             int64     `db:"id" json:"id"`
	OrganizationID int64     `db:"organization_id" json:"organization_id"`
	AuthorID       int64     `db:"author_id" json:"author_id"`
	Title          string    `db:"title" json:"title"`
	Body           string    `db:"body" json:"body"`
	Category       string    `db:"category" json:"category"`
	IsPublic       bool      `db:"is_public" json:"is_public"`
	Status         string    `db:"status" json:"status"` // draft, scheduled, published
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

type Media struct {
	ID         int64     `db:"id" json:"id"`
	PostID     int64     `db:"post_id" json:"post_id"`
	MediaOrder int       `db:"media_order" json:"media_order"` // 1-based, contiguous
	Type       string    `db:"type" json:"type"`               // IMAGE, VIDEO
	Mime       string    `db:"mime" json:"mime"`
	SizeBytes  int64     `db:"size_bytes" json:"size_bytes"`
	URL        string    `db:"url" json:"url"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

type Schedule struct {
	ID        int64     `db:"id" json:"id"`
	PostID    int64     `db:"post_id" json:"post_id"`
	RunAt     time.Time `db:"run_at" json:"run_at"` // UTC instant, authoritative
	Timezone  string    `db:"timezone" json:"timezone"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

const (
	PostStatusDraft     = "DRAFT"
	PostStatusScheduled = "SCHEDULED"
	PostStatusPublished = "PUBLISHED"
)

const (
	MediaTypeImage = "IMAGE"
	MediaTypeVideo = "VIDEO"
)

// IsImage reports whether the media is an image, trusting the stored type
// first and the mime prefix as fallback (older rows have an empty type).
func (m *Media) IsImage() bool {
	return m.Type == MediaTypeImage || hasMimePrefix(m.Mime, "image/")
}

func (m *Media) IsVideo() bool {
	return m.Type == MediaTypeVideo || hasMimePrefix(m.Mime, "video/")
}

func hasMimePrefix(mime, prefix string) bool {
	if len(mime) < len(prefix) {
		return false
	}
	for i := 0; i < len(prefix); i++ {
		c := mime[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		if c != prefix[i] {
			return false
		}
	}
	return true
}
