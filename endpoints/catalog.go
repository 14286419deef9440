// Package endpoints is the compile-time registry of GraphQL operations the
// client knows how to call. Each entry binds an operation name to its
// Twitter-assigned opaque query id and a default feature-flag set that
// must be sent verbatim or the server responds 400.
//
// Query ids and feature-flag sets are grounded on the GraphQL call shapes
// observed in the retrieval pack (UserByScreenName's query id and feature
// set follow 7f613c00_Davincible-xapi__client.go.go and
// c4168840_n0madic-twitter-timeline__twitter-timeline.go.go); the catalog
// pins one authoritative set per operation rather than letting individual
// call sites drift, per the open question on feature-flag drift.
package endpoints

import "github.com/xactions-go/core/internal/xerrors"

// Kind distinguishes read (idempotent) operations from mutations.
type Kind int

const (
	Query Kind = iota
	Mutation
)

// Descriptor is an immutable (query-id, operation-name, default feature
// flags) tuple.
type Descriptor struct {
	Operation string
	QueryID   string
	Kind      Kind
	// Features are sent verbatim as the GraphQL "features" parameter.
	Features map[string]bool
}

// defaultFeatures is the feature-flag set the current official web client
// is observed to send for timeline-shaped responses. Individual
// descriptors below start from this baseline and override only the flags
// that differ for their operation, keeping one authoritative source
// instead of each call site hand-rolling its own copy.
var defaultFeatures = map[string]bool{
	"responsive_web_graphql_exclude_directive_enabled":                  true,
	"verified_phone_label_enabled":                                      false,
	"creator_subscriptions_tweet_preview_api_enabled":                   true,
	"responsive_web_graphql_timeline_navigation_enabled":                true,
	"responsive_web_graphql_skip_user_profile_image_extensions_enabled": false,
	"communities_web_enable_tweet_community_results_fetch":              true,
	"c9s_tweet_anatomy_moderator_badge_enabled":                         true,
	"articles_preview_enabled":                                          true,
	"responsive_web_edit_tweet_api_enabled":                             true,
	"graphql_is_translatable_rweb_tweet_is_translatable_enabled":        true,
	"view_counts_everywhere_api_enabled":                                true,
	"longform_notetweets_consumption_enabled":                           true,
	"responsive_web_twitter_article_tweet_consumption_enabled":          true,
	"tweet_awards_web_tipping_enabled":                                  false,
	"creator_subscriptions_quote_tweet_preview_enabled":                 false,
	"freedom_of_speech_not_reach_fetch_enabled":                         true,
	"standardized_nudges_misinfo":                                       true,
	"tweet_with_visibility_results_prefer_gql_limited_actions_policy_enabled": true,
	"rweb_video_timestamps_enabled":                                     true,
	"longform_notetweets_rich_text_read_enabled":                        true,
	"longform_notetweets_inline_media_enabled":                          true,
	"responsive_web_enhance_cards_enabled":                              false,
}

func withOverrides(overrides map[string]bool) map[string]bool {
	merged := make(map[string]bool, len(defaultFeatures)+len(overrides))
	for k, v := range defaultFeatures {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}

// catalog is the exhaustive, compile-time-fixed set of supported
// operations, keyed by operation name.
var catalog = map[string]Descriptor{
	"UserByScreenName": {
		Operation: "UserByScreenName",
		QueryID:   "G3KGOASz96M-Qu0nwmGXNg",
		Kind:      Query,
		Features:  withOverrides(nil),
	},
	"UserTweets": {
		Operation: "UserTweets",
		QueryID:   "V7H0Ap3_Hh2FyS75OCDO3Q",
		Kind:      Query,
		Features:  withOverrides(nil),
	},
	"UserTweetsAndReplies": {
		Operation: "UserTweetsAndReplies",
		QueryID:   "E4wA5vo2sjVyvPliaUNDww",
		Kind:      Query,
		Features:  withOverrides(nil),
	},
	"UserMedia": {
		Operation: "UserMedia",
		QueryID:   "2tLOJWdkEsb1uoLsV6MgGA",
		Kind:      Query,
		Features:  withOverrides(nil),
	},
	"HomeTimeline": {
		Operation: "HomeTimeline",
		QueryID:   "HCosKfLNW664aPZOvUPkfg",
		Kind:      Query,
		Features:  withOverrides(map[string]bool{"rweb_lists_timeline_redesign_enabled": true}),
	},
	"Followers": {
		Operation: "Followers",
		QueryID:   "pd8Tt1qUz1YWrICegqZ8cw",
		Kind:      Query,
		Features:  withOverrides(nil),
	},
	"Following": {
		Operation: "Following",
		QueryID:   "iSicc7LrzWGBgDPL0tM_TQ",
		Kind:      Query,
		Features:  withOverrides(nil),
	},
	"BlueVerifiedFollowers": {
		Operation: "BlueVerifiedFollowers",
		QueryID:   "VmIlPJNPVReyk5cO7JfRGA",
		Kind:      Query,
		Features:  withOverrides(nil),
	},
	"ListMembers": {
		Operation: "ListMembers",
		QueryID:   "snESM0SPlZDRkcNCN5r2DA",
		Kind:      Query,
		Features:  withOverrides(nil),
	},
	"ListLatestTweetsTimeline": {
		Operation: "ListLatestTweetsTimeline",
		QueryID:   "HjsWc-nwwHKYwHenbHm-tw",
		Kind:      Query,
		Features:  withOverrides(nil),
	},
	"TweetDetail": {
		Operation: "TweetDetail",
		QueryID:   "xOhkmRac04YFZmOzU9PJSg",
		Kind:      Query,
		Features:  withOverrides(map[string]bool{"responsive_web_grok_analyze_button_fetch_trends_enabled": false}),
	},
	"SearchTimeline": {
		Operation: "SearchTimeline",
		QueryID:   "UN1i3zUiCWftzRwXYtyAtA",
		Kind:      Query,
		Features:  withOverrides(nil),
	},
	"Bookmarks": {
		Operation: "Bookmarks",
		QueryID:   "qToeLeMs43Q8cr7tRYbUzA",
		Kind:      Query,
		Features:  withOverrides(map[string]bool{"graphql_timeline_v2_bookmark_timeline": true}),
	},
	"Retweeters": {
		Operation: "Retweeters",
		QueryID:   "0BoJlKAxoNPQVwXVfRPMsg",
		Kind:      Query,
		Features:  withOverrides(nil),
	},
	"Favoriters": {
		Operation: "Favoriters",
		QueryID:   "XANAuBsAfzNAJfi64QBrAg",
		Kind:      Query,
		Features:  withOverrides(nil),
	},
	"FavoriteTweet": {
		Operation: "FavoriteTweet",
		QueryID:   "lI07N6Otwv1PhnEgXILM7A",
		Kind:      Mutation,
	},
	"UnfavoriteTweet": {
		Operation: "UnfavoriteTweet",
		QueryID:   "ZYKSe-w7KEslx3JhSIk5LA",
		Kind:      Mutation,
	},
	"CreateFollow": {
		Operation: "CreateFollow",
		QueryID:   "4oqbDZnv7WPtHgGgfPj9Ow",
		Kind:      Mutation,
	},
	"DestroyFollow": {
		Operation: "DestroyFollow",
		QueryID:   "wbSxSTZ9CGKfbnh6VLcPLQ",
		Kind:      Mutation,
	},
	"CreateTweet": {
		Operation: "CreateTweet",
		QueryID:   "znq7jUAqfmWhXrWDK5r9Nw",
		Kind:      Mutation,
		Features:  withOverrides(nil),
	},
	"DeleteTweet": {
		Operation: "DeleteTweet",
		QueryID:   "VaenaVgh5q5ih7kvyVjgtg",
		Kind:      Mutation,
	},
	"CreateRetweet": {
		Operation: "CreateRetweet",
		QueryID:   "ojPdsZsimiJrUGLR1sjUtA",
		Kind:      Mutation,
	},
	"DeleteRetweet": {
		Operation: "DeleteRetweet",
		QueryID:   "iQtK4dl5hBmXewYZuEOKVw",
		Kind:      Mutation,
	},
	"CreateBookmark": {
		Operation: "CreateBookmark",
		QueryID:   "aoDbu3RHznuiSkQ9aNM67Q",
		Kind:      Mutation,
	},
	"DeleteBookmark": {
		Operation: "DeleteBookmark",
		QueryID:   "Wlmlj2-xzyS1GN3a6cj-mQ",
		Kind:      Mutation,
	},
	"useSendMessageMutation": {
		Operation: "useSendMessageMutation",
		QueryID:   "MaxK2PKX1F9Z-RpZ8l5jpg",
		Kind:      Mutation,
	},
}

// Lookup returns the descriptor for operation, or an InvalidArgument error
// if the catalog has no entry for it.
func Lookup(operation string) (Descriptor, error) {
	d, ok := catalog[operation]
	if !ok {
		return Descriptor{}, xerrors.New(xerrors.InvalidArgument, "endpoints: unknown operation %q", operation)
	}
	return d, nil
}

// IsIdempotent reports whether operation may be safely retried: GET
// semantics (queries) are idempotent; mutations are not, per the Request
// Envelope idempotence rule.
func (d Descriptor) IsIdempotent() bool { return d.Kind == Query }
