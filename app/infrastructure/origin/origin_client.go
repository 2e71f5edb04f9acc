package origin

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"inspectra.app/offline-gateway/app/domain/offlinecache"
	"inspectra.app/offline-gateway/app/utils/httpclients"
	"resty.dev/v3"
)

// hopHeaders are connection-scoped and never forwarded.
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Proxy-Connection",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// Client is the network side of the worker. Relative requests go to the
// origin, absolute ones to wherever they point.
type Client struct {
	rest   *resty.Client
	origin *url.URL
}

func NewClient(config offlinecache.Config) *Client {
	return &Client{
		rest:   httpclients.NewClient("OriginClient"),
		origin: config.Origin,
	}
}

// Fetch implements offlinecache.Fetcher. Any HTTP status becomes a
// Response; only transport failures are errors.
func (c *Client) Fetch(ctx context.Context, req *http.Request) (*offlinecache.Response, error) {
	target := req.URL
	if !target.IsAbs() {
		if c.origin == nil {
			return nil, fmt.Errorf("origin: relative request %s without an origin", target)
		}
		target = c.origin.ResolveReference(target)
	}

	header := req.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	stripHopHeaders(header)
	header.Del("Host")
	// let the transport negotiate and decode compression itself
	header.Del("Accept-Encoding")

	r := c.rest.R().
		SetContext(ctx).
		SetHeaderMultiValues(header).
		SetDoNotParseResponse(true)
	if req.Body != nil && req.Body != http.NoBody {
		r = r.SetBody(req.Body)
	}

	resp, err := r.Execute(req.Method, target.String())
	if err != nil {
		return nil, fmt.Errorf("origin: %s %s: %w", req.Method, target, err)
	}
	raw := resp.RawResponse
	if raw == nil {
		return nil, fmt.Errorf("origin: %s %s: empty response", req.Method, target)
	}
	defer raw.Body.Close()

	body, err := io.ReadAll(raw.Body)
	if err != nil {
		return nil, fmt.Errorf("origin: read body of %s: %w", target, err)
	}

	respHeader := raw.Header.Clone()
	stripHopHeaders(respHeader)
	respHeader.Del("Content-Length")

	finalURL := target.String()
	if raw.Request != nil && raw.Request.URL != nil {
		finalURL = raw.Request.URL.String()
	}
	return &offlinecache.Response{
		URL:    finalURL,
		Status: raw.StatusCode,
		Header: respHeader,
		Body:   body,
		Type:   offlinecache.ResponseTypeBasic,
	}, nil
}

func stripHopHeaders(h http.Header) {
	for _, name := range hopHeaders {
		h.Del(name)
	}
}
