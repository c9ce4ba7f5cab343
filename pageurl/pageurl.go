// Package pageurl interprets push page URLs: the query switches a page
// honours and the JSON endpoint derived from the page path.
package pageurl

import (
	"net/url"
	"strings"
)

// NoReloadParam disables polling for a page view when present.
const NoReloadParam = "noreload"

// Query is a decoded query string. Later values for a key replace earlier
// ones; a key given without "=" is present with an empty value.
type Query map[string]string

// Has reports whether key was present in the query, with or without a value.
func (q Query) Has(key string) bool {
	_, ok := q[key]
	return ok
}

// ParseQuery decodes raw, with or without a leading "?".
//
// "+" decodes to a space and percent escapes are decoded. Pairs whose
// escapes are malformed are kept undecoded rather than dropped.
func ParseQuery(raw string) Query {
	q := Query{}
	raw = strings.TrimPrefix(raw, "?")
	if raw == "" {
		return q
	}

	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		q[decode(key)] = decode(value)
	}
	return q
}

func decode(s string) string {
	decoded, err := url.QueryUnescape(s)
	if err != nil {
		return s
	}
	return decoded
}

// Suppressed reports whether polling is disabled for the page at u.
func Suppressed(u *url.URL) bool {
	if u == nil {
		return false
	}
	return ParseQuery(u.RawQuery).Has(NoReloadParam)
}

// JSONEndpoint returns the push JSON endpoint for the page at u: the same
// scheme and host with "/json" appended to the path. Query and fragment are
// dropped.
func JSONEndpoint(u *url.URL) string {
	// keep the page's escaping so a %2F in a push id stays one segment
	rawPath := strings.TrimSuffix(u.EscapedPath(), "/") + "/json"
	path, err := url.PathUnescape(rawPath)
	if err != nil {
		path = rawPath
	}
	endpoint := url.URL{
		Scheme:  u.Scheme,
		User:    u.User,
		Host:    u.Host,
		Path:    path,
		RawPath: rawPath,
	}
	return endpoint.String()
}

// IsPlaceholderHref reports whether href is a "#" placeholder link, i.e.
// one whose navigation the page suppresses.
func IsPlaceholderHref(href string) bool {
	return strings.HasSuffix(href, "#")
}
