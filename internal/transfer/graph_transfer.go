package transfer

// Shared Graph API shapes used by the Instagram and Facebook adapters.

type GraphError struct {
	Error struct {
		Message      string `json:"message"`
		Type         string `json:"type"`
		Code         int    `json:"code"`
		ErrorSubcode int    `json:"error_subcode"`
		IsTransient  bool   `json:"is_transient"`
		FbtraceID    string `json:"fbtrace_id"`
	} `json:"error"`
}

type GraphID struct {
	ID string `json:"id"`
}

type GraphPage struct {
	ID                       string `json:"id"`
	Name                     string `json:"name"`
	AccessToken              string `json:"access_token"`
	InstagramBusinessAccount *struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"instagram_business_account"`
}

type GraphAccountsResponse struct {
	Data []GraphPage `json:"data"`
}

type GraphPermalinkResponse struct {
	Permalink string `json:"permalink"`
}

type InstagramMediaItem struct {
	ID            string `json:"id"`
	Caption       string `json:"caption"`
	Permalink     string `json:"permalink"`
	Timestamp     string `json:"timestamp"`
	LikeCount     int64  `json:"like_count"`
	CommentsCount int64  `json:"comments_count"`
	MediaType     string `json:"media_type"`
}

type InstagramMediaListResponse struct {
	Data []InstagramMediaItem `json:"data"`
}

type FacebookFeedItem struct {
	ID          string `json:"id"`
	CreatedTime string `json:"created_time"`
	Shares      struct {
		Count int64 `json:"count"`
	} `json:"shares"`
	Likes struct {
		Summary struct {
			TotalCount int64 `json:"total_count"`
		} `json:"summary"`
	} `json:"likes"`
	Comments struct {
		Summary struct {
			TotalCount int64 `json:"total_count"`
		} `json:"summary"`
	} `json:"comments"`
}

type FacebookFeedResponse struct {
	Data []FacebookFeedItem `json:"data"`
}
