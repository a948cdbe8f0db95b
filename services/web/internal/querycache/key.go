package querycache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

type Param struct {
	Name  string
	Value string
}

func P(name string, value interface{}) Param {
	return Param{Name: name, Value: fmt.Sprint(value)}
}

// Key identifies one logical query: resource, parameters and the requesting user
// ("" when nobody is signed in). Parameters are kept sorted by name, so keys built
// from the same inputs in any order are equal.
type Key struct {
	Resource string
	Params   []Param
	User     string
}

func NewKey(resource, user string, params ...Param) Key {
	sorted := make([]Param, len(params))
	copy(sorted, params)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	return Key{Resource: resource, Params: sorted, User: user}
}

// Param returns the value of the named parameter.
func (k Key) Param(name string) (string, bool) {
	for _, p := range k.Params {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

// String is the canonical form, e.g. "saved-course:{course=3,user=42}@42".
func (k Key) String() string {
	var b strings.Builder
	b.WriteString(k.Resource)
	b.WriteString(":{")
	for i, p := range k.Params {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(url.QueryEscape(p.Name))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.Value))
	}
	b.WriteByte('}')
	if k.User != "" {
		b.WriteByte('@')
		b.WriteString(url.QueryEscape(k.User))
	}
	return b.String()
}

// Pattern selects keys for invalidation. An empty Resource matches every resource;
// Params must all be present with equal values; User, when set, must match the key's user.
type Pattern struct {
	Resource string
	Params   []Param
	User     *string
}

func Match(resource string, params ...Param) Pattern {
	return Pattern{Resource: resource, Params: params}
}

// OwnedBy matches every key requested by user.
func OwnedBy(user string) Pattern {
	return Pattern{User: &user}
}

func (p Pattern) Matches(k Key) bool {
	if p.Resource != "" && p.Resource != k.Resource {
		return false
	}
	if p.User != nil && *p.User != k.User {
		return false
	}
	for _, want := range p.Params {
		got, ok := k.Param(want.Name)
		if !ok || got != want.Value {
			return false
		}
	}
	return true
}

func (p Pattern) String() string {
	parts := make([]string, 0, len(p.Params))
	for _, param := range p.Params {
		parts = append(parts, param.Name+"="+param.Value)
	}
	s := p.Resource + ":{" + strings.Join(parts, ",") + "}"
	if p.User != nil {
		s += "@" + *p.User
	}
	return s
}
