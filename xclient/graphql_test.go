package xclient

import (
	"context"
	"net/http"
	"testing"

	"github.com/xactions-go/core/internal/xerrors"
	"github.com/xactions-go/core/jar"
)

// A GraphQL envelope can carry Twitter error code 89 ("Invalid or expired
// token") under a 200 status; housekeep never sees this since it only
// inspects the HTTP status code, so GraphQL itself must detect it.
func TestGraphQLDetectsCode89UnderHTTP200AsAuthRequired(t *testing.T) {
	doer := &fixtureDoer{respond: func(call int32) (*http.Response, error) {
		return newResponse(200, `{"data":null,"errors":[{"code":89,"message":"Invalid or expired token.","kind":"AuthorizationError"}]}`, nil), nil
	}}
	c := newTestClient(doer)
	c.Jar.Set(jar.Cookie{Name: "auth_token", Value: "old-token"})

	_, err := c.GraphQL(context.Background(), "UserByScreenName", map[string]any{"screen_name": "jack"}, true, "")
	if !xerrors.Of(err, xerrors.AuthRequired) {
		t.Fatalf("expected AuthRequired, got %v", err)
	}
	if c.Jar.Value("auth_token") != "" {
		t.Fatalf("expected auth_token cleared from jar after code 89")
	}
}

// A different error code with null data must still surface as TwitterApi:
// only code 89 is mapped to AuthRequired.
func TestGraphQLOtherErrorCodesStayTwitterApi(t *testing.T) {
	doer := &fixtureDoer{respond: func(call int32) (*http.Response, error) {
		return newResponse(200, `{"data":null,"errors":[{"code":144,"message":"No status found.","kind":"NotFoundError"}]}`, nil), nil
	}}
	c := newTestClient(doer)

	_, err := c.GraphQL(context.Background(), "UserByScreenName", map[string]any{"screen_name": "jack"}, true, "")
	if !xerrors.Of(err, xerrors.TwitterApi) {
		t.Fatalf("expected TwitterApi, got %v", err)
	}
}
