package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"knowhow/services/catalog-service/pkg/catalogpb"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type row map[string]interface{}

// fakeCatalog is an in-memory catalog service: enough of the collection and
// identity APIs for the front end to run against.
type fakeCatalog struct {
	catalogpb.UnimplementedCollectionServiceServer
	catalogpb.UnimplementedAuthServiceServer

	mu      sync.Mutex
	nextID  int
	tables  map[string][]row
	selects int
}

var uniqueBy = map[string][]string{
	"saved_course":     {"user_id", "course_id"},
	"course_completed": {"user_id", "course_id"},
	"class_completed":  {"user_id", "class_id"},
}

var counters = map[string]string{
	"saved_course":     "saved_count",
	"course_completed": "completed_count",
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		nextID: 100,
		tables: map[string][]row{
			"course": {
				{"id": 1, "topic": "Go concurrency", "description": "Goroutines and channels", "is_ready": true, "saved_count": 0, "completed_count": 0},
				{"id": 2, "topic": "Rust", "description": "Ownership and borrowing", "is_ready": true, "saved_count": 0, "completed_count": 0},
				{"id": 3, "topic": "Go draft", "is_ready": false, "saved_count": 0, "completed_count": 0},
			},
			"class": {
				{"id": 10, "course_id": 1, "index": 1, "name": "Goroutines"},
				{"id": 11, "course_id": 1, "index": 2, "name": "Channels", "transcription": `line one\nline two`},
			},
			"profiles": {
				{"id": "u1", "username": "ada"},
			},
		},
	}
}

func callerOf(ctx context.Context) string {
	md, _ := metadata.FromIncomingContext(ctx)
	for _, v := range md.Get("authorization") {
		if strings.HasPrefix(v, "Bearer tok-") {
			return strings.TrimPrefix(v, "Bearer tok-")
		}
	}
	return ""
}

func str(v interface{}) string { return fmt.Sprint(v) }

func matches(r row, f catalogpb.Filter) bool {
	v, ok := r[f.Field]
	switch f.Op {
	case catalogpb.OpEq:
		return ok && str(v) == f.Value
	case catalogpb.OpILike:
		needle := strings.ToLower(strings.Trim(f.Value, "%"))
		return ok && strings.Contains(strings.ToLower(str(v)), needle)
	case catalogpb.OpIn:
		for _, want := range f.Values {
			if ok && str(v) == want {
				return true
			}
		}
	}
	return false
}

func (f *fakeCatalog) visible(ctx context.Context, table string, filters, anyOf []catalogpb.Filter) []row {
	user := callerOf(ctx)
	_, scoped := uniqueBy[table]
	var out []row
	for _, r := range f.tables[table] {
		if scoped && str(r["user_id"]) != user {
			continue
		}
		keep := true
		for _, flt := range filters {
			keep = keep && matches(r, flt)
		}
		if len(anyOf) > 0 {
			hit := false
			for _, flt := range anyOf {
				hit = hit || matches(r, flt)
			}
			keep = keep && hit
		}
		if keep {
			out = append(out, r)
		}
	}
	return out
}

func (f *fakeCatalog) course(id interface{}) row {
	for _, c := range f.tables["course"] {
		if str(c["id"]) == str(id) {
			return c
		}
	}
	return nil
}

func (f *fakeCatalog) Select(ctx context.Context, req *catalogpb.SelectRequest) (*catalogpb.SelectResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selects++

	rows := f.visible(ctx, req.Collection, req.Filters, req.AnyOf)
	if req.CountOnly {
		return &catalogpb.SelectResponse{Count: int64(len(rows))}, nil
	}
	if req.Limit > 0 && len(rows) > int(req.Limit) {
		rows = rows[:req.Limit]
	}
	res := &catalogpb.SelectResponse{Count: int64(len(rows))}
	for _, r := range rows {
		out := row{}
		for k, v := range r {
			out[k] = v
		}
		for _, e := range req.Embed {
			if e == "course" {
				out["course"] = f.course(r["course_id"])
			}
		}
		raw, _ := json.Marshal(out)
		res.Records = append(res.Records, raw)
	}
	return res, nil
}

func (f *fakeCatalog) Insert(ctx context.Context, req *catalogpb.InsertRequest) (*catalogpb.InsertResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	user := callerOf(ctx)
	if user == "" {
		return nil, status.Error(codes.Unauthenticated, "sign in required")
	}
	unique, ok := uniqueBy[req.Collection]
	if !ok {
		return nil, status.Error(codes.PermissionDenied, "not writable")
	}
	var r row
	if err := json.Unmarshal(req.Record, &r); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if str(r["user_id"]) != user {
		return nil, status.Error(codes.PermissionDenied, "record belongs to another user")
	}
	for _, existing := range f.tables[req.Collection] {
		same := true
		for _, k := range unique {
			same = same && str(existing[k]) == str(r[k])
		}
		if same {
			return nil, status.Error(codes.AlreadyExists, "duplicate record")
		}
	}
	f.nextID++
	r["id"] = f.nextID
	f.tables[req.Collection] = append(f.tables[req.Collection], r)
	if col, ok := counters[req.Collection]; ok {
		if c := f.course(r["course_id"]); c != nil {
			c[col] = c[col].(int) + 1
		}
	}
	raw, _ := json.Marshal(r)
	return &catalogpb.InsertResponse{Record: raw}, nil
}

func (f *fakeCatalog) Delete(ctx context.Context, req *catalogpb.DeleteRequest) (*catalogpb.DeleteResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if callerOf(ctx) == "" {
		return nil, status.Error(codes.Unauthenticated, "sign in required")
	}
	gone := f.visible(ctx, req.Collection, req.Filters, nil)
	kept := f.tables[req.Collection][:0]
	for _, r := range f.tables[req.Collection] {
		drop := false
		for _, g := range gone {
			drop = drop || str(g["id"]) == str(r["id"])
		}
		if !drop {
			kept = append(kept, r)
		}
	}
	f.tables[req.Collection] = kept
	if col, ok := counters[req.Collection]; ok {
		for _, g := range gone {
			if c := f.course(g["course_id"]); c != nil && c[col].(int) > 0 {
				c[col] = c[col].(int) - 1
			}
		}
	}
	return &catalogpb.DeleteResponse{Deleted: int64(len(gone))}, nil
}

func (f *fakeCatalog) SignUp(_ context.Context, req *catalogpb.SignUpRequest) (*catalogpb.SignUpResponse, error) {
	if req.Email == "taken@example.com" {
		return nil, status.Error(codes.AlreadyExists, "account already exists")
	}
	return &catalogpb.SignUpResponse{UserID: "u-new"}, nil
}

func (f *fakeCatalog) SignIn(_ context.Context, req *catalogpb.SignInRequest) (*catalogpb.SignInResponse, error) {
	if req.Email != "ada@example.com" || req.Password != "password1" {
		return nil, status.Error(codes.Unauthenticated, "invalid credentials")
	}
	return &catalogpb.SignInResponse{AccessToken: "tok-u1", UserID: "u1", ExpiresAt: 1700000000}, nil
}

func (f *fakeCatalog) SignOut(_ context.Context, _ *catalogpb.SignOutRequest) (*catalogpb.SignOutResponse, error) {
	return &catalogpb.SignOutResponse{}, nil
}

func (f *fakeCatalog) Validate(_ context.Context, req *catalogpb.ValidateRequest) (*catalogpb.ValidateResponse, error) {
	if !strings.HasPrefix(req.AccessToken, "tok-") {
		return nil, status.Error(codes.Unauthenticated, "invalid token")
	}
	return &catalogpb.ValidateResponse{UserID: strings.TrimPrefix(req.AccessToken, "tok-")}, nil
}
