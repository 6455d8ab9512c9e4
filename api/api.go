// Package api binds the static metadata of a documented operation to the
// transport. Generated endpoint functions do not rely on any dynamic
// binding: each holds an immutable Endpoint value and calls Base.Invoke,
// which substitutes path placeholders, splits collected fields into query
// and body, and dispatches through the rest client.
package api

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/kolah/probekit/param"
	"github.com/kolah/probekit/rest"
)

// Endpoint is the immutable descriptor compiled into a generated function.
type Endpoint struct {
	Tag         string
	Method      string
	Path        string
	ContentType string
	Deprecated  bool
	// Public marks operations documented with no security requirement.
	// Informational only.
	Public bool
}

func (e Endpoint) String() string {
	return e.Method + " " + e.Path
}

// Base is embedded by every generated API struct.
type Base struct {
	Client *rest.Client
}

// Invoke substitutes pathArgs into the endpoint's template in order, merges
// the collected fields, applies call options, and sends the request.
func (b *Base) Invoke(ctx context.Context, ep Endpoint, pathArgs []any, fields *param.Fields, opts ...rest.CallOption) (*rest.Response, error) {
	if b.Client == nil {
		return nil, fmt.Errorf("%s: api client is not configured", ep)
	}

	path, err := SubstitutePath(ep.Path, pathArgs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ep, err)
	}

	req := rest.NewRequest(ep.Method, path)
	if ep.ContentType != "" {
		req.ContentType = ep.ContentType
	}
	if fields != nil {
		for _, key := range fields.Keys() {
			v, _ := fields.Get(key)
			switch {
			case fields.In(key) == param.InQuery:
				req.Query.SetQuery(key, v)
			case fields.IsNull(key):
				req.Body.SetNull(key)
			default:
				req.Body.Set(key, v)
			}
		}
	}
	for _, opt := range opts {
		opt(req)
	}
	return b.Client.Do(ctx, req)
}

// SubstitutePath replaces {name} placeholders with args in order. The
// argument count must match the placeholder count exactly.
func SubstitutePath(template string, args []any) (string, error) {
	placeholders := countPlaceholders(template)
	if len(args) != placeholders {
		return "", fmt.Errorf("path %q needs %d positional arguments, got %d", template, placeholders, len(args))
	}

	var b strings.Builder
	tail := template
	for _, arg := range args {
		open := strings.IndexByte(tail, '{')
		close := strings.IndexByte(tail[open:], '}')
		b.WriteString(tail[:open])
		b.WriteString(url.PathEscape(fmt.Sprintf("%v", arg)))
		tail = tail[open+close+1:]
	}
	b.WriteString(tail)
	return b.String(), nil
}

func countPlaceholders(template string) int {
	n := 0
	for {
		open := strings.IndexByte(template, '{')
		if open < 0 {
			return n
		}
		close := strings.IndexByte(template[open:], '}')
		if close < 0 {
			return n
		}
		n++
		template = template[open+close+1:]
	}
}
