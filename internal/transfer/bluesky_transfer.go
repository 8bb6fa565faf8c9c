package transfer

import "encoding/json"

type BlueskySession struct {
	AccessJwt  string `json:"accessJwt"`
	RefreshJwt string `json:"refreshJwt"`
	Handle     string `json:"handle"`
	Did        string `json:"did"`
}

type BlueskyError struct {
	ErrorName string `json:"error"`
	Message   string `json:"message"`
}

// BlueskyBlob keeps the uploaded blob reference opaque: createRecord must
// echo it back exactly as uploadBlob returned it.
type BlueskyBlob struct {
	Blob json.RawMessage `json:"blob"`
}

type BlueskyFacetIndex struct {
	ByteStart int `json:"byteStart"`
	ByteEnd   int `json:"byteEnd"`
}

type BlueskyFacetFeature struct {
	Type string `json:"$type"`
	Tag  string `json:"tag"`
}

type BlueskyFacet struct {
	Index    BlueskyFacetIndex     `json:"index"`
	Features []BlueskyFacetFeature `json:"features"`
}

type BlueskyImage struct {
	Image json.RawMessage `json:"image"`
	Alt   string          `json:"alt"`
}

type BlueskyImagesEmbed struct {
	Type   string         `json:"$type"`
	Images []BlueskyImage `json:"images"`
}

type BlueskyExternal struct {
	URI         string `json:"uri"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type BlueskyExternalEmbed struct {
	Type     string          `json:"$type"`
	External BlueskyExternal `json:"external"`
}

type BlueskyPostRecord struct {
	Type      string         `json:"$type"`
	Text      string         `json:"text"`
	CreatedAt string         `json:"createdAt"`
	Facets    []BlueskyFacet `json:"facets,omitempty"`
	Embed     any            `json:"embed,omitempty"`
}

type BlueskyCreateRecordRequest struct {
	Repo       string            `json:"repo"`
	Collection string            `json:"collection"`
	Record     BlueskyPostRecord `json:"record"`
}

type BlueskyCreateRecordResponse struct {
	URI string `json:"uri"`
	Cid string `json:"cid"`
}

type BlueskyFeedPost struct {
	URI         string `json:"uri"`
	Cid         string `json:"cid"`
	LikeCount   int64  `json:"likeCount"`
	ReplyCount  int64  `json:"replyCount"`
	RepostCount int64  `json:"repostCount"`
	QuoteCount  int64  `json:"quoteCount"`
	Record      struct {
		Text      string `json:"text"`
		CreatedAt string `json:"createdAt"`
	} `json:"record"`
}

type BlueskyFeedEntry struct {
	Post BlueskyFeedPost `json:"post"`
}

type BlueskyAuthorFeedResponse struct {
	Feed   []BlueskyFeedEntry `json:"feed"`
	Cursor string             `json:"cursor"`
}
