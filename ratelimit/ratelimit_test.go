package ratelimit

import (
	"net/http"
	"strconv"
	"testing"
	"time"
)

func TestObserveAndGet(t *testing.T) {
	tr := New()
	h := make(http.Header)
	h.Set("x-rate-limit-limit", "100")
	h.Set("x-rate-limit-remaining", "5")
	h.Set("x-rate-limit-reset", "1700000000")
	tr.Observe("UserTweets", h)

	rec, ok := tr.Get("UserTweets")
	if !ok {
		t.Fatal("expected record to be present")
	}
	if rec.Limit != 100 || rec.Remaining != 5 {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestShouldThrottle(t *testing.T) {
	tr := New()
	h := make(http.Header)
	future := time.Now().Add(10 * time.Second)
	h.Set("x-rate-limit-remaining", "0")
	h.Set("x-rate-limit-reset", strconv.FormatInt(future.Unix(), 10))
	tr.Observe("Followers", h)

	wait, should := tr.ShouldThrottle("Followers", time.Now())
	if !should {
		t.Fatal("expected ShouldThrottle to report true when remaining is 0")
	}
	if wait <= 0 {
		t.Fatalf("expected positive wait, got %v", wait)
	}
}

func TestShouldThrottleFalseWhenRemainingPositive(t *testing.T) {
	tr := New()
	h := make(http.Header)
	h.Set("x-rate-limit-remaining", "10")
	tr.Observe("Followers", h)

	_, should := tr.ShouldThrottle("Followers", time.Now())
	if should {
		t.Fatal("expected ShouldThrottle false when remaining > 0")
	}
}
