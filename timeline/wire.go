package timeline

import "encoding/json"

// The structs in this file mirror the raw GraphQL JSON shape closely
// enough to decode it; they are never exposed outside this package. Field
// names follow Twitter's own JSON keys so the json tags stay mechanical
// and easy to audit against a captured response.

type wireTimelineResponse struct {
	Timeline struct {
		Instructions []wireInstruction `json:"instructions"`
	} `json:"timeline"`
}

type wireInstruction struct {
	Type    string      `json:"type"`
	Entries []wireEntry `json:"entries"`
	// Entry is used by PinEntry, which carries a single entry rather than
	// an array.
	Entry *wireEntry `json:"entry"`
	// EntryIDToReplace + Entry are used by ReplaceEntry.
	EntryIDToReplace string `json:"entryIdToReplace"`
}

type wireEntry struct {
	EntryID string      `json:"entryId"`
	Content wireContent `json:"content"`
}

type wireContent struct {
	EntryType string `json:"entryType"`

	// TimelineTimelineItem
	ItemContent *wireItemContent `json:"itemContent"`

	// TimelineTimelineModule
	Items []struct {
		EntryID string `json:"entryId"`
		Item    struct {
			ItemContent wireItemContent `json:"itemContent"`
		} `json:"item"`
	} `json:"items"`

	// TimelineTimelineCursor (when the cursor is the content itself)
	Value      string `json:"value"`
	CursorType string `json:"cursorType"`
}

type wireItemContent struct {
	ItemType string `json:"itemType"`

	TweetResults *struct {
		Result *json.RawMessage `json:"result"`
	} `json:"tweet_results"`

	UserResults *struct {
		Result *json.RawMessage `json:"result"`
	} `json:"user_results"`

	Value      string `json:"value"`
	CursorType string `json:"cursorType"`
}

// wireTypedResult is used to peek at __typename before deciding how (or
// whether) to decode the rest of a tweet_results.result /
// user_results.result payload.
type wireTypedResult struct {
	Typename string `json:"__typename"`
	// TweetWithVisibilityResults wraps the real tweet one level deeper.
	Tweet *json.RawMessage `json:"tweet"`
}

type wireTweetResult struct {
	RestID string `json:"rest_id"`
	Core   struct {
		UserResults struct {
			Result struct {
				Core struct {
					ScreenName string `json:"screen_name"`
				} `json:"core"`
				IsBlueVerified bool `json:"is_blue_verified"`
			} `json:"result"`
		} `json:"user_results"`
	} `json:"core"`
	Legacy struct {
		FullText             string `json:"full_text"`
		CreatedAt            string `json:"created_at"`
		UserIDStr            string `json:"user_id_str"`
		InReplyToStatusIDStr string `json:"in_reply_to_status_id_str"`
		IsQuoteStatus        bool   `json:"is_quote_status"`
		QuotedStatusIDStr    string `json:"quoted_status_id_str"`
		RetweetedStatusIDStr string `json:"retweeted_status_id_str"`
		FavoriteCount        int    `json:"favorite_count"`
		RetweetCount         int    `json:"retweet_count"`
		ReplyCount           int    `json:"reply_count"`
		QuoteCount            int    `json:"quote_count"`
		Entities             wireEntities `json:"entities"`
		ExtendedEntities      wireEntities `json:"extended_entities"`
	} `json:"legacy"`
	Views *struct {
		Count string `json:"count"`
	} `json:"views"`
	RetweetedStatusResult *struct {
		Result *json.RawMessage `json:"result"`
	} `json:"retweeted_status_result"`
	QuotedStatusResult *struct {
		Result *json.RawMessage `json:"result"`
	} `json:"quoted_status_result"`
}

type wireEntities struct {
	Hashtags []struct {
		Text string `json:"text"`
	} `json:"hashtags"`
	Urls []struct {
		URL         string `json:"url"`
		ExpandedURL string `json:"expanded_url"`
		DisplayURL  string `json:"display_url"`
	} `json:"urls"`
	UserMentions []struct {
		IDStr      string `json:"id_str"`
		ScreenName string `json:"screen_name"`
	} `json:"user_mentions"`
	Media []struct {
		MediaURLHTTPS string `json:"media_url_https"`
		Type          string `json:"type"`
		VideoInfo     *struct {
			Variants []struct {
				Bitrate     int    `json:"bitrate"`
				ContentType string `json:"content_type"`
				URL         string `json:"url"`
			} `json:"variants"`
		} `json:"video_info"`
	} `json:"media"`
}

type wireUserResult struct {
	RestID string `json:"rest_id"`
	Core   struct {
		Name       string `json:"name"`
		ScreenName string `json:"screen_name"`
		CreatedAt  string `json:"created_at"`
	} `json:"core"`
	Legacy struct {
		Description    string `json:"description"`
		FollowersCount int    `json:"followers_count"`
		FriendsCount   int    `json:"friends_count"`
		StatusesCount  int    `json:"statuses_count"`
		Protected      bool   `json:"protected"`
		Following      bool   `json:"following"`
		FollowedBy     bool   `json:"followed_by"`
		PinnedTweetIDsStr []string `json:"pinned_tweet_ids_str"`
	} `json:"legacy"`
	IsBlueVerified bool   `json:"is_blue_verified"`
	VerifiedType   string `json:"verified_type"`
}
