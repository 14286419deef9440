package xclient

import (
	"encoding/json"
	"strconv"
	"time"
)

// parseRetryAfter parses an HTTP Retry-After header, which is either a
// delta-seconds integer or (per RFC 7231) an HTTP-date. Only the
// delta-seconds form appears in practice for the endpoints this client
// talks to, but the date form is handled for completeness.
func parseRetryAfter(raw string) (time.Duration, bool) {
	if secs, err := strconv.Atoi(raw); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	if when, err := time.Parse(time.RFC1123, raw); err == nil {
		if d := time.Until(when); d > 0 {
			return d, true
		}
		return 0, true
	}
	return 0, false
}

func parseUnixSeconds(raw string) (time.Time, bool) {
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(v, 0), true
}

// twitterErrorCode extracts the first errors[].code from a Twitter REST
// error body, if the body parses as one. Used to distinguish 403 causes
// (account locked vs. suspended) beyond the bare status code.
func twitterErrorCode(body []byte) (int, bool) {
	var envelope struct {
		Errors []struct {
			Code int `json:"code"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return 0, false
	}
	if len(envelope.Errors) == 0 {
		return 0, false
	}
	return envelope.Errors[0].Code, true
}
