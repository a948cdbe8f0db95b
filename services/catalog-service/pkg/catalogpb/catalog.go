// Package catalogpb holds the wire contract of the catalog service: request
// and response messages, the gRPC service descriptors and the JSON codec the
// messages travel with.
package catalogpb

import "encoding/json"

// Filter operators understood by CollectionService.Select and Delete.
const (
	OpEq    = "eq"
	OpILike = "ilike"
	OpIn    = "in"
)

// Procedures accepted by CollectionService.Call.
const (
	ProcedureSend = "send"
)

type Filter struct {
	Field  string   `json:"field"`
	Op     string   `json:"op"`
	Value  string   `json:"value,omitempty"`
	Values []string `json:"values,omitempty"`
}

type Order struct {
	Field string `json:"field"`
	Desc  bool   `json:"desc,omitempty"`
}

type SelectRequest struct {
	Collection string   `json:"collection"`
	Filters    []Filter `json:"filters,omitempty"`
	// AnyOf is one OR group, ANDed with Filters.
	AnyOf     []Filter `json:"any_of,omitempty"`
	Order     []Order  `json:"order,omitempty"`
	Limit     int32    `json:"limit,omitempty"`
	CountOnly bool     `json:"count_only,omitempty"`
	Embed     []string `json:"embed,omitempty"`
}

type SelectResponse struct {
	Records []json.RawMessage `json:"records,omitempty"`
	Count   int64             `json:"count"`
}

type InsertRequest struct {
	Collection string          `json:"collection"`
	Record     json.RawMessage `json:"record"`
}

type InsertResponse struct {
	Record json.RawMessage `json:"record"`
}

type DeleteRequest struct {
	Collection string   `json:"collection"`
	Filters    []Filter `json:"filters"`
}

type DeleteResponse struct {
	Deleted int64 `json:"deleted"`
}

type CallRequest struct {
	Procedure string          `json:"procedure"`
	Payload   json.RawMessage `json:"payload"`
}

type CallResponse struct {
	Result json.RawMessage `json:"result,omitempty"`
}

// SendPayload is the payload of the "send" procedure.
type SendPayload struct {
	QueueName string          `json:"queue_name"`
	Message   json.RawMessage `json:"message"`
}

type SendResult struct {
	MessageID string `json:"msg_id"`
}

type SignUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
}

type SignUpResponse struct {
	UserID string `json:"user_id"`
}

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignInResponse struct {
	AccessToken string `json:"access_token"`
	UserID      string `json:"user_id"`
	ExpiresAt   int64  `json:"expires_at"`
}

type SignOutRequest struct {
	AccessToken string `json:"access_token"`
}

type SignOutResponse struct{}

type ValidateRequest struct {
	AccessToken string `json:"access_token"`
}

type ValidateResponse struct {
	UserID string `json:"user_id"`
}
