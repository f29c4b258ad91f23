package core

import (
	"strings"
)

// Param is a single name/value pair of a request.
type Param struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Params is an ordered parameter set. The order is part of the signed
// payload, so it is preserved exactly as added and keys are not deduplicated.
type Params []Param

// NewParams returns an empty parameter set with room for n pairs.
func NewParams(n int) Params {
	return make(Params, 0, n)
}

// Add appends a pair and returns the extended set.
func (p Params) Add(key, value string) Params {
	return append(p, Param{Key: key, Value: value})
}

// Get returns the value of the first pair named key.
func (p Params) Get(key string) (string, bool) {
	for _, kv := range p {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return "", false
}

// Encode joins the pairs as k1=v1&k2=v2 with values written verbatim.
// No percent-encoding is applied: the server verifies the signature against
// this exact unescaped string. An empty set encodes to "".
func (p Params) Encode() string {
	if len(p) == 0 {
		return ""
	}

	var b strings.Builder
	for i, kv := range p {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(kv.Key)
		b.WriteByte('=')
		b.WriteString(kv.Value)
	}
	return b.String()
}

// ParseParams splits an encoded string back into ordered pairs, cutting each
// segment at its first '='. It is the inverse of Encode for values that do
// not themselves contain '&'.
func ParseParams(s string) Params {
	if s == "" {
		return Params{}
	}

	segments := strings.Split(s, "&")
	params := NewParams(len(segments))
	for _, seg := range segments {
		key, value, _ := strings.Cut(seg, "=")
		params = params.Add(key, value)
	}
	return params
}

// Request describes one call against an endpoint path.
type Request struct {
	Path        string `json:"path"`
	Params      Params `json:"params,omitempty"`
	RequireAuth bool   `json:"require_auth"`
}

func NewRequest(path string) *Request {
	return &Request{
		Path:   path,
		Params: Params{},
	}
}

func (r *Request) SetParam(key, value string) *Request {
	r.Params = r.Params.Add(key, value)
	return r
}

func (r *Request) SetParams(params Params) *Request {
	r.Params = append(r.Params, params...)
	return r
}

func (r *Request) SetRequireAuth(require bool) *Request {
	r.RequireAuth = require
	return r
}
