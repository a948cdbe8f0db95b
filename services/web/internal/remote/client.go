// Package remote is the stateless client for the catalog collections, the
// identity API and the serverless functions. The caller's session token travels
// in the context (see WithToken) and is attached to every call.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"knowhow/services/catalog-service/pkg/catalogpb"

	"google.golang.org/grpc/metadata"
)

type tokenKey struct{}

// WithToken attaches the session token used to authorize remote calls.
func WithToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, tokenKey{}, token)
}

func TokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

// Result of FetchCollection. Count is the row count, or the total when CountOnly was set.
type Result struct {
	Records []json.RawMessage
	Count   int64
}

type Client struct {
	collections  catalogpb.CollectionServiceClient
	functionsURL string
	anonKey      string
	httpClient   *http.Client
}

func NewClient(collections catalogpb.CollectionServiceClient, functionsURL, anonKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		collections:  collections,
		functionsURL: strings.TrimRight(functionsURL, "/"),
		anonKey:      anonKey,
		httpClient:   httpClient,
	}
}

func authorized(ctx context.Context) context.Context {
	if token := TokenFrom(ctx); token != "" {
		return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
	}
	return ctx
}

func (c *Client) FetchCollection(ctx context.Context, name string, q Query) (Result, error) {
	req := &catalogpb.SelectRequest{
		Collection: name,
		Filters:    toWire(q.Filters),
		AnyOf:      toWire(q.AnyOf),
		Limit:      int32(q.Limit),
		CountOnly:  q.CountOnly,
		Embed:      q.Embed,
	}
	for _, o := range q.Order {
		req.Order = append(req.Order, catalogpb.Order{Field: o.Field, Desc: o.Desc})
	}
	res, err := c.collections.Select(authorized(ctx), req)
	if err != nil {
		return Result{}, FromStatus("select", name, err)
	}
	return Result{Records: res.Records, Count: res.Count}, nil
}

// FetchSingle returns the one matching record; found is false when there is none.
// More than one match is ErrIntegrityViolation.
func (c *Client) FetchSingle(ctx context.Context, name string, filters ...Filter) (json.RawMessage, bool, error) {
	res, err := c.FetchCollection(ctx, name, Query{Filters: filters, Limit: 2})
	if err != nil {
		return nil, false, err
	}
	switch len(res.Records) {
	case 0:
		return nil, false, nil
	case 1:
		return res.Records[0], true, nil
	default:
		return nil, false, &Error{Op: "select", Target: name, Kind: ErrIntegrityViolation, Message: "expected at most one record"}
	}
}

func (c *Client) Insert(ctx context.Context, name string, record interface{}) (json.RawMessage, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("encode %s record: %w", name, err)
	}
	res, err := c.collections.Insert(authorized(ctx), &catalogpb.InsertRequest{Collection: name, Record: raw})
	if err != nil {
		return nil, FromStatus("insert", name, err)
	}
	return res.Record, nil
}

// Delete removes the matching rows and returns how many went away.
func (c *Client) Delete(ctx context.Context, name string, filters ...Filter) (int64, error) {
	res, err := c.collections.Delete(authorized(ctx), &catalogpb.DeleteRequest{Collection: name, Filters: toWire(filters)})
	if err != nil {
		return 0, FromStatus("delete", name, err)
	}
	return res.Deleted, nil
}

// InvokeRemoteProcedure posts payload to a serverless function and returns once it acknowledged.
func (c *Client) InvokeRemoteProcedure(ctx context.Context, name string, payload interface{}) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", name, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.functionsURL+"/"+name, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.anonKey != "" {
		req.Header.Set("apikey", c.anonKey)
	}
	bearer := TokenFrom(ctx)
	if bearer == "" {
		bearer = c.anonKey
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Op: "invoke", Target: name, Kind: ErrNetwork, Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &Error{Op: "invoke", Target: name, Kind: ErrNetwork, Message: err.Error()}
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return raw, nil
	}

	var failure struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(raw, &failure)
	if failure.Error == "" {
		failure.Error = resp.Status
	}
	var kind error
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		kind = ErrAuthorizationRequired
	case resp.StatusCode == http.StatusForbidden:
		kind = ErrForbidden
	case resp.StatusCode == http.StatusConflict:
		kind = ErrConflict
	case resp.StatusCode >= 500, resp.StatusCode == http.StatusTooManyRequests:
		kind = ErrNetwork
	default:
		kind = ErrConstraintViolation
	}
	return nil, &Error{Op: "invoke", Target: name, Kind: kind, Message: failure.Error}
}

// Decode unmarshals one record.
func Decode[T any](raw json.RawMessage) (T, error) {
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode record: %w", err)
	}
	return out, nil
}

func DecodeAll[T any](records []json.RawMessage) ([]T, error) {
	out := make([]T, 0, len(records))
	for _, raw := range records {
		v, err := Decode[T](raw)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
