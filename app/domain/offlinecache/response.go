package offlinecache

import (
	"net/http"
	"time"
)

type ResponseType string

const (
	ResponseTypeBasic  ResponseType = "basic"
	ResponseTypeOpaque ResponseType = "opaque"
	ResponseTypeError  ResponseType = "error"
)

// Response is a fully buffered HTTP response as seen by the page.
type Response struct {
	URL      string       `json:"url"`
	Status   int          `json:"status"`
	Header   http.Header  `json:"header,omitempty"`
	Body     []byte       `json:"body,omitempty"`
	Type     ResponseType `json:"type"`
	StoredAt time.Time    `json:"stored_at,omitempty"`
}

// Clone returns a deep copy; cached entries and served responses never share
// header maps or body slices.
func (r *Response) Clone() *Response {
	if r == nil {
		return nil
	}
	c := *r
	c.Header = r.Header.Clone()
	if r.Body != nil {
		c.Body = append([]byte(nil), r.Body...)
	}
	return &c
}

// Cacheable reports whether r is a plain same-origin 200.
func (r *Response) Cacheable() bool {
	return r != nil && r.Status == http.StatusOK && r.Type == ResponseTypeBasic
}

// sessionHeaders are never replayed from a cache; they belong to whoever
// caused the entry to be stored.
var sessionHeaders = []string{"Set-Cookie", "Set-Cookie2"}

// forStorage is the copy written to a cache: session headers removed and
// stamped with the store time.
func (r *Response) forStorage(now time.Time) *Response {
	c := r.Clone()
	for _, h := range sessionHeaders {
		c.Header.Del(h)
	}
	c.StoredAt = now
	return c
}
