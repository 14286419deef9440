package xclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/xactions-go/core/endpoints"
	"github.com/xactions-go/core/internal/xerrors"
	"github.com/xactions-go/core/payload"
)

// graphqlEnvelope is the shape of every GraphQL response: data present with
// errors absent is success; data null with errors present is a hard
// failure (TwitterApi); both present is a partial result the caller
// receives alongside warnings.
type graphqlEnvelope struct {
	Data   json.RawMessage   `json:"data"`
	Errors []graphqlAPIError `json:"errors"`
}

type graphqlAPIError struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
	Kind    string `json:"kind"`
}

// GraphQLResult carries a successful or partial GraphQL response. On a
// partial result (errors alongside non-null data) GraphQL returns a nil
// error, Data holds the partial data and Warnings the errors' messages.
type GraphQLResult struct {
	Data     json.RawMessage
	Warnings []string
}

// GraphQL calls operation with variables and authenticated determining
// whether the auth manager's cached credentials or the guest token are
// attached. Queries are sent as idempotent GET requests; mutations are
// sent as non-idempotent POST requests, per the endpoint catalog's Kind.
func (c *Client) GraphQL(ctx context.Context, operation string, variables map[string]any, authenticated bool, guestToken string) (GraphQLResult, error) {
	desc, err := endpoints.Lookup(operation)
	if err != nil {
		return GraphQLResult{}, err
	}

	headers, err := c.Auth.Headers(authenticated, guestToken)
	if err != nil {
		return GraphQLResult{}, err
	}

	varsJSON, err := json.Marshal(variables)
	if err != nil {
		return GraphQLResult{}, xerrors.Wrap(xerrors.InvalidArgument, err, "xclient: encode variables for %s", operation)
	}
	featuresJSON, err := json.Marshal(desc.Features)
	if err != nil {
		return GraphQLResult{}, xerrors.Wrap(xerrors.InvalidArgument, err, "xclient: encode features for %s", operation)
	}

	base := fmt.Sprintf("https://api.x.com/graphql/%s/%s", desc.QueryID, desc.Operation)

	var env Envelope
	if desc.Kind == endpoints.Query {
		q := url.Values{}
		q.Set("variables", string(varsJSON))
		q.Set("features", string(featuresJSON))
		env = Envelope{
			Method:     "GET",
			URL:        base + "?" + q.Encode(),
			Headers:    headers,
			Idempotent: true,
		}
	} else {
		body, err := json.Marshal(map[string]json.RawMessage{
			"variables": varsJSON,
			"features":  featuresJSON,
		})
		if err != nil {
			return GraphQLResult{}, xerrors.Wrap(xerrors.InvalidArgument, err, "xclient: encode body for %s", operation)
		}
		headers["Content-Type"] = "application/json"
		env = Envelope{
			Method:     "POST",
			URL:        base,
			Headers:    headers,
			Body:       body,
			Idempotent: false,
		}
	}

	resp, err := c.Request(ctx, env)
	if err != nil {
		return GraphQLResult{}, err
	}

	var envelope graphqlEnvelope
	if err := json.Unmarshal(resp.Body, &envelope); err != nil {
		return GraphQLResult{}, xerrors.Wrap(xerrors.Corrupted, err, "xclient: decode GraphQL response for %s", operation)
	}

	if len(envelope.Errors) > 0 {
		msgs := make([]string, len(envelope.Errors))
		for i, e := range envelope.Errors {
			msgs[i] = e.Message
		}
		if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
			first := envelope.Errors[0]
			if first.Code == 89 {
				c.Jar.Remove("auth_token")
				c.incrAuthFailure()
				return GraphQLResult{}, xerrors.New(xerrors.AuthRequired, "xclient: %s: token invalid or expired (code 89)", operation).WithAPIError(first.Code, first.Kind)
			}
			return GraphQLResult{}, xerrors.New(xerrors.TwitterApi, "xclient: %s: %v", operation, msgs).WithAPIError(first.Code, first.Kind)
		}
		c.checkSchema(operation, envelope.Data)
		return GraphQLResult{Data: envelope.Data, Warnings: msgs}, nil
	}

	c.checkSchema(operation, envelope.Data)
	return GraphQLResult{Data: envelope.Data}, nil
}

// checkSchema runs the Response Parser's schema-drift detector against data
// when a Registry is configured, logging any mismatch non-fatally: drift
// never fails a request, it only surfaces a diagnostic.
func (c *Client) checkSchema(operation string, data []byte) {
	if c.Schemas == nil || len(data) == 0 {
		return
	}
	mismatches, err := c.Schemas.Validate(operation, data)
	if err != nil || len(mismatches) == 0 {
		return
	}
	c.incrSchemaDrift()
	c.logf("xclient: %s response schema drift:\n%s", operation, payload.FormatMismatches(mismatches))
}

// REST calls a non-GraphQL endpoint (onboarding/1.1 paths) with a raw JSON
// body and returns the raw response bytes for the caller to decode.
func (c *Client) REST(ctx context.Context, method, path string, body []byte, authenticated bool, guestToken string, idempotent bool) ([]byte, error) {
	headers, err := c.Auth.Headers(authenticated, guestToken)
	if err != nil {
		return nil, err
	}
	if body != nil {
		headers["Content-Type"] = "application/json"
	}
	env := Envelope{
		Method:     method,
		URL:        "https://api.x.com" + path,
		Headers:    headers,
		Body:       body,
		Idempotent: idempotent,
	}
	resp, err := c.Request(ctx, env)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}
