package timeline

import (
	"encoding/json"
	"testing"
)

func tweetResultJSON(id, text string) string {
	return `{
		"__typename": "Tweet",
		"rest_id": "` + id + `",
		"core": {"user_results": {"result": {"core": {"screen_name": "jack"}, "is_blue_verified": true}}},
		"legacy": {
			"full_text": "` + text + `",
			"created_at": "Wed Oct 10 20:19:24 +0000 2018",
			"user_id_str": "111",
			"favorite_count": 5,
			"retweet_count": 2,
			"reply_count": 1,
			"quote_count": 0
		}
	}`
}

func entryWithTweet(entryID, id, text string) string {
	return `{
		"entryId": "` + entryID + `",
		"content": {
			"entryType": "TimelineTimelineItem",
			"itemContent": {
				"itemType": "TimelineTweet",
				"tweet_results": {"result": ` + tweetResultJSON(id, text) + `}
			}
		}
	}`
}

func entryWithTombstone(entryID string) string {
	return `{
		"entryId": "` + entryID + `",
		"content": {
			"entryType": "TimelineTimelineItem",
			"itemContent": {
				"itemType": "TimelineTweet",
				"tweet_results": {"result": {"__typename": "TweetTombstone"}}
			}
		}
	}`
}

func entryWithCursor(entryID, value, cursorType string) string {
	return `{
		"entryId": "` + entryID + `",
		"content": {
			"entryType": "TimelineTimelineCursor",
			"value": "` + value + `",
			"cursorType": "` + cursorType + `"
		}
	}`
}

// Scenario (e): Timeline with tombstones.
func TestDecodeTimelineWithTombstones(t *testing.T) {
	raw := `{"timeline":{"instructions":[
		{"type":"TimelineAddEntries","entries":[` +
		entryWithTweet("e1", "1", "hello") + "," +
		entryWithTweet("e2", "2", "world") + "," +
		entryWithTweet("e3", "3", "again") + "," +
		entryWithTombstone("e4") + "," +
		entryWithUnavailableTweet("e5") + "," +
		entryWithUnavailableTweet("e6") +
		`]}
	]}}`

	result, instructions, err := Decode(json.RawMessage(raw))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if len(instructions) != 1 || instructions[0].Kind != AddEntries {
		t.Fatalf("expected 1 AddEntries instruction, got %+v", instructions)
	}

	tweetCount := 0
	for _, e := range result.Entries {
		if e.Kind == EntryTweet {
			tweetCount++
		}
	}
	if tweetCount != 3 {
		t.Fatalf("expected 3 concrete tweets, got %d", tweetCount)
	}
	if result.Unavailable != 3 {
		t.Fatalf("expected unavailable tally of 3, got %d", result.Unavailable)
	}
}

func entryWithUnavailableTweet(entryID string) string {
	return `{
		"entryId": "` + entryID + `",
		"content": {
			"entryType": "TimelineTimelineItem",
			"itemContent": {
				"itemType": "TimelineTweet",
				"tweet_results": {"result": {"__typename": "TweetUnavailable"}}
			}
		}
	}`
}

func TestDecodeCursorEntries(t *testing.T) {
	raw := `{"timeline":{"instructions":[
		{"type":"TimelineAddEntries","entries":[` +
		entryWithCursor("top", "CUR_TOP", "Top") + "," +
		entryWithCursor("bottom", "CUR_BOTTOM", "Bottom") +
		`]}
	]}}`

	result, _, err := Decode(json.RawMessage(raw))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if len(result.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(result.Entries))
	}
	if result.Entries[0].Cursor.Position != Top {
		t.Fatal("first cursor should be Top")
	}
	if result.Entries[1].Cursor.Position != Bottom {
		t.Fatal("second cursor should be Bottom")
	}
}

func TestDecodeUnknownInstructionIsPreserved(t *testing.T) {
	raw := `{"timeline":{"instructions":[{"type":"TimelineShowAlert"}]}}`
	_, instructions, err := Decode(json.RawMessage(raw))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if len(instructions) != 1 || instructions[0].Kind != UnknownInstruction || instructions[0].Tag != "TimelineShowAlert" {
		t.Fatalf("unexpected instruction decode: %+v", instructions)
	}
}

func TestDecodeIsDeterministic(t *testing.T) {
	raw := json.RawMessage(`{"timeline":{"instructions":[
		{"type":"TimelineAddEntries","entries":[` + entryWithTweet("e1", "1", "hi") + `]}
	]}}`)

	r1, _, err1 := Decode(raw)
	r2, _, err2 := Decode(raw)
	if err1 != nil || err2 != nil {
		t.Fatalf("decode errors: %v %v", err1, err2)
	}
	if len(r1.Entries) != len(r2.Entries) || r1.Entries[0].Tweet.ID != r2.Entries[0].Tweet.ID {
		t.Fatal("decoding the same raw JSON twice produced different results")
	}
}

func TestMergeTweetRecognizesRetweet(t *testing.T) {
	inner := tweetResultJSON("10", "original")
	raw := `{
		"__typename": "Tweet",
		"rest_id": "20",
		"core": {"user_results": {"result": {"core": {"screen_name": "alice"}}}},
		"legacy": {
			"full_text": "RT @jack: original",
			"created_at": "Wed Oct 10 20:19:24 +0000 2018",
			"retweeted_status_id_str": "10"
		},
		"retweeted_status_result": {"result": ` + inner + `}
	}`
	tw, ok, err := decodeTweetResult(json.RawMessage(raw), 1)
	if err != nil || !ok {
		t.Fatalf("decode failed: ok=%v err=%v", ok, err)
	}
	if !tw.IsRetweet || tw.Retweeted == nil || tw.Retweeted.ID != "10" {
		t.Fatalf("retweet not parsed correctly: %+v", tw)
	}
}

func quotingTweetResultJSON(id, text, quotedID string, quoted string) string {
	return `{
		"__typename": "Tweet",
		"rest_id": "` + id + `",
		"core": {"user_results": {"result": {"core": {"screen_name": "jack"}}}},
		"legacy": {
			"full_text": "` + text + `",
			"created_at": "Wed Oct 10 20:19:24 +0000 2018",
			"is_quote_status": true,
			"quoted_status_id_str": "` + quotedID + `"
		},
		"quoted_status_result": {"result": ` + quoted + `}
	}`
}

// A quote of a quote is truncated after one level: the outer tweet's Quoted
// is populated, but that inner tweet's own Quoted stays nil.
func TestMergeTweetTruncatesNestedQuoteAtOneLevel(t *testing.T) {
	innermost := tweetResultJSON("1", "innermost")
	middle := quotingTweetResultJSON("2", "middle", "1", innermost)
	raw := quotingTweetResultJSON("3", "outer", "2", middle)

	tw, ok, err := decodeTweetResult(json.RawMessage(raw), 1)
	if err != nil || !ok {
		t.Fatalf("decode failed: ok=%v err=%v", ok, err)
	}
	if tw.Quoted == nil || tw.Quoted.ID != "2" {
		t.Fatalf("expected first-level quote to be embedded: %+v", tw)
	}
	if tw.Quoted.Quoted != nil {
		t.Fatalf("expected second-level quote to be truncated, got %+v", tw.Quoted.Quoted)
	}
}

func TestDecodeThreadAssemblesTweetsAndRootAuthor(t *testing.T) {
	raw := json.RawMessage(`{"instructions":[
		{"type":"TimelineAddEntries","entries":[` +
		entryWithTweet("root", "1", "root tweet") + "," +
		entryWithTweet("reply", "2", "a reply") +
		`]}
	]}`)

	thread, err := DecodeThread(raw)
	if err != nil {
		t.Fatalf("DecodeThread error: %v", err)
	}
	if thread.TotalCount != 2 || len(thread.Tweets) != 2 {
		t.Fatalf("expected 2 tweets, got %+v", thread)
	}
	if thread.Tweets[0].ID != "1" || thread.Tweets[1].ID != "2" {
		t.Fatalf("expected server order preserved, got %+v", thread.Tweets)
	}
	if thread.Author.Handle != "jack" {
		t.Fatalf("expected root author handle 'jack', got %+v", thread.Author)
	}
}

func TestProfileFromUserResult(t *testing.T) {
	raw := `{
		"__typename": "User",
		"rest_id": "99",
		"core": {"screen_name": "jack", "name": "Jack", "created_at": "Wed Oct 10 20:19:24 +0000 2018"},
		"legacy": {"description": "bio", "followers_count": 100, "friends_count": 10, "statuses_count": 5},
		"is_blue_verified": true
	}`
	p, err := ProfileFromUserResult(json.RawMessage(raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Handle != "jack" || p.ID != "99" || !p.BlueVerified {
		t.Fatalf("unexpected profile: %+v", p)
	}
}

func TestProfileFromUnavailableUser(t *testing.T) {
	_, err := ProfileFromUserResult(json.RawMessage(`{"__typename":"UserUnavailable"}`))
	if err == nil {
		t.Fatal("expected error for unavailable user")
	}
}
