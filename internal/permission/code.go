// Package permission derives permission codes from the route table and
// decides whether a user may call a route.
package permission

import (
	"strings"
)

// Wildcard grants every permission.
const Wildcard = "*"

const paramPlaceholder = "{}"

// Normalize replaces path parameters (":id", "{id}", "*") with "{}" and strips
// a trailing slash.
func Normalize(path string) string {
	if path == "" || path == "/" {
		return "/"
	}
	segs := strings.Split(strings.TrimSuffix(path, "/"), "/")
	for i, s := range segs {
		switch {
		case strings.HasPrefix(s, ":"),
			strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}"),
			s == "*":
			segs[i] = paramPlaceholder
		}
	}
	return strings.Join(segs, "/")
}

// Code is the permission code for a set of methods on a path, e.g. "GET:/user/info".
func Code(methods []string, path string) string {
	upper := make([]string, len(methods))
	for i, m := range methods {
		upper[i] = strings.ToUpper(m)
	}
	return strings.Join(upper, ":") + ":" + Normalize(path)
}

func MethodCode(method, path string) string {
	return Code([]string{method}, path)
}
