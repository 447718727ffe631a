package providers

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// parseReference parses ref as a URI of the given scheme.
func parseReference(ref, scheme string) (*url.URL, bool) {
	if !strings.HasPrefix(ref, scheme+"://") {
		return nil, false
	}
	u, err := url.Parse(ref)
	if err != nil || u.Scheme != scheme {
		return nil, false
	}
	return u, true
}

// pathSegments splits the escaped path of u, dropping the leading slash.
func pathSegments(u *url.URL) []string {
	p := strings.TrimPrefix(u.EscapedPath(), "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

// requireSegments returns the path segments of u, or an error naming the
// expected layout when there are fewer than min of them or any is empty.
func requireSegments(u *url.URL, min int, layout string) ([]string, error) {
	segs := pathSegments(u)
	if u.Host == "" || len(segs) < min {
		return nil, fmt.Errorf("invalid reference %s: expected %s", u.Redacted(), layout)
	}
	for _, s := range segs {
		if s == "" {
			return nil, fmt.Errorf("invalid reference %s: expected %s", u.Redacted(), layout)
		}
	}
	return segs, nil
}

// claims keeps the references one provider accepted. Spellings that
// normalize to the same URI share one entry, so they are fetched once while
// every original string still gets a value.
type claims struct {
	urls map[string]*url.URL
	refs map[string][]string
}

func newClaims() claims {
	return claims{
		urls: make(map[string]*url.URL),
		refs: make(map[string][]string),
	}
}

func (c claims) add(u *url.URL, original string) {
	key := u.String()
	if _, ok := c.urls[key]; !ok {
		c.urls[key] = u
	}
	for _, existing := range c.refs[key] {
		if existing == original {
			return
		}
	}
	c.refs[key] = append(c.refs[key], original)
}

func (c claims) empty() bool {
	return len(c.urls) == 0
}

// keys returns the normalized URIs in sorted order.
func (c claims) keys() []string {
	keys := make([]string, 0, len(c.urls))
	for k := range c.urls {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// claim is one normalized URI and every original spelling of it.
type claim struct {
	url  *url.URL
	refs []string
}

// groupBy partitions the claims by key, keeping each group sorted.
func groupBy[K comparable](c claims, keyOf func(u *url.URL) (K, error)) (map[K][]claim, error) {
	groups := make(map[K][]claim)
	for _, k := range c.keys() {
		u := c.urls[k]
		key, err := keyOf(u)
		if err != nil {
			return nil, err
		}
		groups[key] = append(groups[key], claim{url: u, refs: c.refs[k]})
	}
	return groups, nil
}
