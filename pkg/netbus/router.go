package netbus

import "strings"

// MaxPathSegments bounds how many `/`-separated segments a path is split
// into; additional segments are folded into the final one. This keeps a
// malicious or malformed path from producing unbounded segment slices.
const MaxPathSegments = 8

// SplitPath splits a request path on `/`, dropping empty leading and
// trailing segments (so "/member/alice" and "member/alice/" both yield
// ["member", "alice"]).
func SplitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	parts := strings.SplitN(trimmed, "/", MaxPathSegments)
	return parts
}

// Route holds one registered (method, path-pattern) -> handler binding.
// Pattern segments beginning with ':' bind the matching path segment
// into the Params map passed to the handler.
type Route struct {
	Segments []string
	Handler  func(ctx *RequestContext)
}

// RequestContext carries the matched path parameters and raw path for a
// single dispatched request.
type RequestContext struct {
	Params map[string]string
	Path   string
}

// Router matches an incoming path against a fixed set of segment
// patterns, binding named parameters (segments prefixed with ':').
type Router struct {
	routes []Route
}

// NewRouter returns an empty Router.
func NewRouter() *Router { return &Router{} }

// Handle registers pattern (e.g. "authenticated/:id/attribute/:key") for
// dispatch.
func (r *Router) Handle(pattern string, handler func(ctx *RequestContext)) {
	r.routes = append(r.routes, Route{Segments: SplitPath(pattern), Handler: handler})
}

// Match finds the first registered pattern whose segment count and
// literal segments match path, binding ':'-prefixed segments as params.
// Returns false if nothing matches.
func (r *Router) Match(path string) (*RequestContext, func(ctx *RequestContext), bool) {
	segments := SplitPath(path)
	for _, route := range r.routes {
		if len(route.Segments) != len(segments) {
			continue
		}
		params := make(map[string]string)
		matched := true
		for i, pat := range route.Segments {
			if strings.HasPrefix(pat, ":") {
				params[pat[1:]] = segments[i]
				continue
			}
			if pat != segments[i] {
				matched = false
				break
			}
		}
		if matched {
			return &RequestContext{Params: params, Path: path}, route.Handler, true
		}
	}
	return nil, nil, false
}
