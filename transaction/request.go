package transaction

import (
	"net/url"
	"strings"
)

// Request is the request data sent to the node, parameter name to its values.
// Multi valued parameters such as phasingWhitelisted keep every value in order.
type Request map[string][]string

// NewRequest creates Request from single valued parameters.
func NewRequest(params map[string]string) Request {
	r := make(Request, len(params))
	for k, v := range params {
		r[k] = []string{v}
	}
	return r
}

// Get returns the first value of the parameter or an empty string.
func (r Request) Get(key string) string {
	if vs := r[key]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// Has tells if the parameter holds a non empty value.
func (r Request) Has(key string) bool {
	return r.Get(key) != ""
}

// Values returns all values of the parameter.
func (r Request) Values(key string) []string {
	return r[key]
}

// Set sets the single value of the parameter.
func (r Request) Set(key, value string) {
	r[key] = []string{value}
}

// Add appends the value to the parameter.
func (r Request) Add(key, value string) {
	r[key] = append(r[key], value)
}

// Del removes the parameter.
func (r Request) Del(key string) {
	delete(r, key)
}

// IsTrue tells if the parameter is set to "true".
func (r Request) IsTrue(key string) bool {
	return strings.EqualFold(r.Get(key), "true")
}

// Clone makes a deep copy of the Request.
func (r Request) Clone() Request {
	c := make(Request, len(r))
	for k, vs := range r {
		c[k] = append([]string(nil), vs...)
	}
	return c
}

// Encode returns Request as url values.
func (r Request) Encode() url.Values {
	return url.Values(r.Clone())
}
