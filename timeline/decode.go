package timeline

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/xactions-go/core/internal/xerrors"
)

// InstructionKind tags a decoded Timeline Instruction.
type InstructionKind int

const (
	AddEntries InstructionKind = iota
	AddToModule
	PinEntry
	ClearCache
	ReplaceEntry
	TerminateTimeline
	// UnknownInstruction keeps the decoder forward-compatible with new
	// instruction types the server may introduce: the raw tag and body
	// are preserved instead of failing the whole decode.
	UnknownInstruction
)

// Instruction is one decoded timeline directive.
type Instruction struct {
	Kind InstructionKind
	// Tag is the raw "type" string from the wire, always populated.
	Tag string
	// Entries holds the decoded entries for AddEntries/AddToModule/PinEntry.
	Entries []Entry
	// ReplacedEntryID and ReplacementEntry are populated for ReplaceEntry.
	ReplacedEntryID  string
	ReplacementEntry *Entry
}

// EntryKind tags a decoded timeline entry.
type EntryKind int

const (
	EntryTweet EntryKind = iota
	EntryUser
	EntryCursor
	EntryModule
	// EntryUnavailable marks a tombstone/unavailable placeholder that was
	// intentionally skipped; Tallied in Result.Unavailable.
	EntryUnavailable
)

// Entry is one leaf of an AddEntries/AddToModule instruction.
type Entry struct {
	ID     string
	Kind   EntryKind
	Tweet  *Tweet
	User   *UserSummary
	Cursor *Cursor
	// Module holds nested entries when Kind == EntryModule.
	Module []Entry
}

// Result is the outcome of decoding one response's instructions[] array:
// the order-preserving list of entries plus a tally of tombstone/unavailable
// variants. Unavailable entries of AddEntries/AddToModule are left out of
// the list; a module entry keeps its items nested in Entry.Module (an
// unavailable item there stays as an EntryUnavailable placeholder).
type Result struct {
	Entries     []Entry
	Unavailable int
}

// Decode parses a raw `{"timeline":{"instructions":[...]}}` fragment (the
// value found at data.user.result.timeline, data.search_by_raw_query...,
// or data.bookmark_timeline, depending on operation) into a Result.
func Decode(raw json.RawMessage) (Result, []Instruction, error) {
	var wire wireTimelineResponse
	if err := json.Unmarshal(raw, &wire); err != nil {
		return Result{}, nil, xerrors.Wrap(xerrors.Corrupted, err, "timeline: decode instructions")
	}

	var result Result
	instructions := make([]Instruction, 0, len(wire.Timeline.Instructions))

	for _, wi := range wire.Timeline.Instructions {
		inst := decodeInstruction(wi, &result)
		instructions = append(instructions, inst)
	}
	return result, instructions, nil
}

func decodeInstruction(wi wireInstruction, result *Result) Instruction {
	switch wi.Type {
	case "TimelineAddEntries":
		entries := decodeEntries(wi.Entries, result)
		result.Entries = append(result.Entries, entries...)
		return Instruction{Kind: AddEntries, Tag: wi.Type, Entries: entries}
	case "TimelineAddToModule":
		entries := decodeEntries(wi.Entries, result)
		result.Entries = append(result.Entries, entries...)
		return Instruction{Kind: AddToModule, Tag: wi.Type, Entries: entries}
	case "TimelinePinEntry":
		var entries []Entry
		if wi.Entry != nil {
			e := decodeEntry(*wi.Entry, result)
			entries = []Entry{e}
			result.Entries = append(result.Entries, e)
		}
		return Instruction{Kind: PinEntry, Tag: wi.Type, Entries: entries}
	case "TimelineClearCache":
		return Instruction{Kind: ClearCache, Tag: wi.Type}
	case "TimelineReplaceEntry":
		var replacement *Entry
		if wi.Entry != nil {
			e := decodeEntry(*wi.Entry, result)
			replacement = &e
		}
		return Instruction{Kind: ReplaceEntry, Tag: wi.Type, ReplacedEntryID: wi.EntryIDToReplace, ReplacementEntry: replacement}
	case "TimelineTerminateTimeline":
		return Instruction{Kind: TerminateTimeline, Tag: wi.Type}
	default:
		return Instruction{Kind: UnknownInstruction, Tag: wi.Type}
	}
}

func decodeEntries(wireEntries []wireEntry, result *Result) []Entry {
	out := make([]Entry, 0, len(wireEntries))
	for _, we := range wireEntries {
		e := decodeEntry(we, result)
		if e.Kind == EntryUnavailable {
			continue
		}
		out = append(out, e)
	}
	return out
}

func decodeEntry(we wireEntry, result *Result) Entry {
	content := we.Content

	// A TimelineTimelineModule entry carries a nested Items[] list; each
	// item recurses through the same itemContent dispatch as a top-level
	// TimelineTimelineItem.
	if content.EntryType == "TimelineTimelineModule" || len(content.Items) > 0 {
		var items []Entry
		for _, it := range content.Items {
			sub := decodeItemContent(it.EntryID, it.Item.ItemContent, result)
			items = append(items, sub)
		}
		return Entry{ID: we.EntryID, Kind: EntryModule, Module: items}
	}

	if content.EntryType == "TimelineTimelineCursor" && content.ItemContent == nil {
		pos := cursorPosition(content.CursorType)
		return Entry{ID: we.EntryID, Kind: EntryCursor, Cursor: &Cursor{Value: content.Value, Position: pos}}
	}

	if content.ItemContent != nil {
		return decodeItemContent(we.EntryID, *content.ItemContent, result)
	}

	return Entry{ID: we.EntryID, Kind: EntryUnavailable}
}

func decodeItemContent(entryID string, ic wireItemContent, result *Result) Entry {
	switch ic.ItemType {
	case "TimelineTweet":
		if ic.TweetResults == nil || ic.TweetResults.Result == nil {
			result.Unavailable++
			return Entry{ID: entryID, Kind: EntryUnavailable}
		}
		tw, ok, err := decodeTweetResult(*ic.TweetResults.Result, 1)
		if err != nil || !ok {
			result.Unavailable++
			return Entry{ID: entryID, Kind: EntryUnavailable}
		}
		return Entry{ID: entryID, Kind: EntryTweet, Tweet: tw}

	case "TimelineUser":
		if ic.UserResults == nil || ic.UserResults.Result == nil {
			result.Unavailable++
			return Entry{ID: entryID, Kind: EntryUnavailable}
		}
		u, ok, err := decodeUserResult(*ic.UserResults.Result)
		if err != nil || !ok {
			result.Unavailable++
			return Entry{ID: entryID, Kind: EntryUnavailable}
		}
		return Entry{ID: entryID, Kind: EntryUser, User: u}

	case "TimelineTimelineCursor":
		pos := cursorPosition(ic.CursorType)
		return Entry{ID: entryID, Kind: EntryCursor, Cursor: &Cursor{Value: ic.Value, Position: pos}}

	default:
		result.Unavailable++
		return Entry{ID: entryID, Kind: EntryUnavailable}
	}
}

func cursorPosition(cursorType string) CursorPosition {
	if strings.EqualFold(cursorType, "Top") {
		return Top
	}
	return Bottom
}

// decodeTweetResult unwraps __typename before parsing: Tweet decodes
// directly, TweetWithVisibilityResults unwraps one level, and
// TweetTombstone/TweetUnavailable are skipped (ok == false, err == nil).
// depth bounds how many more levels of quote/retweet embedding mergeTweet
// is allowed to recurse into; callers outside this file always pass 1, so
// a quote-of-a-quote is truncated after its first level.
func decodeTweetResult(raw json.RawMessage, depth int) (*Tweet, bool, error) {
	var typed wireTypedResult
	if err := json.Unmarshal(raw, &typed); err != nil {
		return nil, false, xerrors.Wrap(xerrors.Corrupted, err, "timeline: peek tweet __typename")
	}
	switch typed.Typename {
	case "TweetTombstone", "TweetUnavailable":
		return nil, false, nil
	case "TweetWithVisibilityResults":
		if typed.Tweet == nil {
			return nil, false, nil
		}
		return decodeTweetResult(*typed.Tweet, depth)
	default:
		var wt wireTweetResult
		if err := json.Unmarshal(raw, &wt); err != nil {
			return nil, false, xerrors.Wrap(xerrors.Corrupted, err, "timeline: decode tweet result")
		}
		return mergeTweet(wt, depth), true, nil
	}
}

func mergeTweet(wt wireTweetResult, depth int) *Tweet {
	t := &Tweet{
		ID:           wt.RestID,
		AuthorID:     wt.Legacy.UserIDStr,
		Text:         wt.Legacy.FullText,
		CreatedAt:    parseTwitterDate(wt.Legacy.CreatedAt),
		ReplyCount:   wt.Legacy.ReplyCount,
		RetweetCount: wt.Legacy.RetweetCount,
		LikeCount:    wt.Legacy.FavoriteCount,
		QuoteCount:   wt.Legacy.QuoteCount,
		IsReply:      wt.Legacy.InReplyToStatusIDStr != "",
		ReplyToID:    wt.Legacy.InReplyToStatusIDStr,
	}

	if wt.Views != nil {
		if n, err := strconv.ParseInt(wt.Views.Count, 10, 64); err == nil {
			t.ViewCount = &n
		}
	}

	t.Media = mergeMedia(wt.Legacy.Entities, wt.Legacy.ExtendedEntities)
	t.Hashtags, t.URLs, t.Mentions = mergeTextEntities(wt.Legacy.Entities)

	if wt.Legacy.RetweetedStatusIDStr != "" && wt.RetweetedStatusResult != nil && wt.RetweetedStatusResult.Result != nil && depth > 0 {
		if inner, ok, err := decodeTweetResult(*wt.RetweetedStatusResult.Result, depth-1); err == nil && ok {
			t.IsRetweet = true
			t.Retweeted = inner
		}
	}
	if wt.Legacy.IsQuoteStatus && wt.QuotedStatusResult != nil && wt.QuotedStatusResult.Result != nil && depth > 0 {
		if inner, ok, err := decodeTweetResult(*wt.QuotedStatusResult.Result, depth-1); err == nil && ok {
			t.Quoted = inner
		}
	}

	return t
}

// mergeMedia extracts media from both legacy.entities.media and
// legacy.extended_entities.media (the latter is preferred when present
// since it carries the fuller variant list). A photo's media_url_https is
// taken as given, with no size variant chosen; a video/gif resolves to its
// highest-bitrate MP4 variant.
func mergeMedia(entities, extended wireEntities) []Media {
	src := extended.Media
	if len(src) == 0 {
		src = entities.Media
	}
	out := make([]Media, 0, len(src))
	for _, m := range src {
		switch m.Type {
		case "photo":
			out = append(out, Media{Kind: Photo, URL: m.MediaURLHTTPS})
		case "video", "animated_gif":
			kind := Video
			if m.Type == "animated_gif" {
				kind = AnimatedGIF
			}
			best := Media{Kind: kind, Bitrate: 0}
			if m.VideoInfo != nil {
				for _, v := range m.VideoInfo.Variants {
					if v.ContentType != "video/mp4" {
						continue
					}
					if v.Bitrate >= best.Bitrate {
						best.Bitrate = v.Bitrate
						best.URL = v.URL
					}
				}
			}
			out = append(out, best)
		}
	}
	return out
}

func mergeTextEntities(e wireEntities) ([]Hashtag, []URLEntity, []Mention) {
	hashtags := make([]Hashtag, 0, len(e.Hashtags))
	for _, h := range e.Hashtags {
		hashtags = append(hashtags, Hashtag{Text: h.Text})
	}
	urls := make([]URLEntity, 0, len(e.Urls))
	for _, u := range e.Urls {
		urls = append(urls, URLEntity{Short: u.URL, Expanded: u.ExpandedURL, Display: u.DisplayURL})
	}
	mentions := make([]Mention, 0, len(e.UserMentions))
	for _, m := range e.UserMentions {
		mentions = append(mentions, Mention{ID: m.IDStr, Handle: m.ScreenName})
	}
	return hashtags, urls, mentions
}

// decodeUserResult unwraps __typename the same way decodeTweetResult does:
// User decodes directly, UserUnavailable is skipped.
func decodeUserResult(raw json.RawMessage) (*UserSummary, bool, error) {
	var typed wireTypedResult
	if err := json.Unmarshal(raw, &typed); err != nil {
		return nil, false, xerrors.Wrap(xerrors.Corrupted, err, "timeline: peek user __typename")
	}
	if typed.Typename == "UserUnavailable" {
		return nil, false, nil
	}
	var wu wireUserResult
	if err := json.Unmarshal(raw, &wu); err != nil {
		return nil, false, xerrors.Wrap(xerrors.Corrupted, err, "timeline: decode user result")
	}
	return &UserSummary{
		ID:            wu.RestID,
		Handle:        wu.Core.ScreenName,
		DisplayName:   wu.Core.Name,
		Bio:           wu.Legacy.Description,
		FollowerCount: wu.Legacy.FollowersCount,
		Verified:      wu.IsBlueVerified || wu.VerifiedType != "",
		FollowsYou:    wu.Legacy.FollowedBy,
		FollowedByYou: wu.Legacy.Following,
	}, true, nil
}

// ProfileFromUserResult parses a profile-lookup response's
// data.user.result payload (a superset of wireUserResult) into a Profile.
// Used directly by operations like UserByScreenName that return a single
// user rather than a timeline.
func ProfileFromUserResult(raw json.RawMessage) (*Profile, error) {
	var typed wireTypedResult
	if err := json.Unmarshal(raw, &typed); err != nil {
		return nil, xerrors.Wrap(xerrors.Corrupted, err, "timeline: peek profile __typename")
	}
	if typed.Typename == "UserUnavailable" {
		return nil, xerrors.New(xerrors.NotFound, "timeline: profile is unavailable")
	}
	var wu wireUserResult
	if err := json.Unmarshal(raw, &wu); err != nil {
		return nil, xerrors.Wrap(xerrors.Corrupted, err, "timeline: decode profile result")
	}
	var pinned string
	if len(wu.Legacy.PinnedTweetIDsStr) > 0 {
		pinned = wu.Legacy.PinnedTweetIDsStr[0]
	}
	return &Profile{
		ID:             wu.RestID,
		Handle:         wu.Core.ScreenName,
		DisplayName:    wu.Core.Name,
		Bio:            wu.Legacy.Description,
		FollowerCount:  wu.Legacy.FollowersCount,
		FollowingCount: wu.Legacy.FriendsCount,
		TweetCount:     wu.Legacy.StatusesCount,
		Verified:       wu.VerifiedType != "",
		BlueVerified:   wu.IsBlueVerified,
		Protected:      wu.Legacy.Protected,
		CreatedAt:      parseTwitterDate(wu.Core.CreatedAt),
		PinnedTweetID:  pinned,
	}, nil
}

// wireThreadedConversation mirrors a TweetDetail response's
// threaded_conversation_with_injections_v2 payload: unlike the other
// timeline-shaped responses, its instructions[] sit directly on the
// object with no surrounding "timeline" wrapper.
type wireThreadedConversation struct {
	Instructions []wireInstruction `json:"instructions"`
}

// DecodeThread parses a TweetDetail response's
// threaded_conversation_with_injections_v2 payload into a Thread: every
// concrete tweet found across all instructions, in server order, plus the
// root tweet's author (TweetDetail always orders the focal tweet first).
func DecodeThread(raw json.RawMessage) (Thread, error) {
	var wire wireThreadedConversation
	if err := json.Unmarshal(raw, &wire); err != nil {
		return Thread{}, xerrors.Wrap(xerrors.Corrupted, err, "timeline: decode thread instructions")
	}

	var result Result
	for _, wi := range wire.Instructions {
		decodeInstruction(wi, &result)
	}

	thread := Thread{}
	for _, t := range flattenTweetEntries(result.Entries) {
		thread.Tweets = append(thread.Tweets, *t)
	}
	thread.TotalCount = len(thread.Tweets)
	if author := threadRootAuthor(wire.Instructions); author != nil {
		thread.Author = *author
	}
	return thread, nil
}

// flattenTweetEntries walks entries depth-first, descending into modules,
// collecting every concrete tweet in encounter order.
func flattenTweetEntries(entries []Entry) []*Tweet {
	var out []*Tweet
	for _, e := range entries {
		if e.Kind == EntryTweet && e.Tweet != nil {
			out = append(out, e.Tweet)
		}
		if e.Kind == EntryModule {
			out = append(out, flattenTweetEntries(e.Module)...)
		}
	}
	return out
}

// unwrapTweetRaw peels TweetWithVisibilityResults the same way
// decodeTweetResult does, without merging the tweet into a domain Tweet;
// used by threadRootAuthor to reach the embedded author summary.
func unwrapTweetRaw(raw json.RawMessage) (json.RawMessage, bool) {
	var typed wireTypedResult
	if err := json.Unmarshal(raw, &typed); err != nil {
		return nil, false
	}
	switch typed.Typename {
	case "TweetTombstone", "TweetUnavailable":
		return nil, false
	case "TweetWithVisibilityResults":
		if typed.Tweet == nil {
			return nil, false
		}
		return unwrapTweetRaw(*typed.Tweet)
	default:
		return raw, true
	}
}

// threadRootAuthor locates the first concrete tweet in the raw
// instruction stream and extracts its embedded author summary.
func threadRootAuthor(instructions []wireInstruction) *UserSummary {
	for _, wi := range instructions {
		for _, we := range wi.Entries {
			ic := we.Content.ItemContent
			if ic == nil || ic.TweetResults == nil || ic.TweetResults.Result == nil {
				continue
			}
			unwrapped, ok := unwrapTweetRaw(*ic.TweetResults.Result)
			if !ok {
				continue
			}
			var wt wireTweetResult
			if err := json.Unmarshal(unwrapped, &wt); err != nil || wt.RestID == "" {
				continue
			}
			return &UserSummary{
				ID:       wt.Legacy.UserIDStr,
				Handle:   wt.Core.UserResults.Result.Core.ScreenName,
				Verified: wt.Core.UserResults.Result.IsBlueVerified,
			}
		}
	}
	return nil
}

// twitterDateLayout is Twitter's legacy created_at format: "EEE MMM dd
// HH:mm:ss ZZZ yyyy", e.g. "Wed Oct 10 20:19:24 +0000 2018".
const twitterDateLayout = "Mon Jan 02 15:04:05 -0700 2006"

func parseTwitterDate(raw string) time.Time {
	t, err := time.Parse(twitterDateLayout, raw)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
