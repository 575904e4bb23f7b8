package scraper

import (
	"fmt"
	"net/url"
	"regexp"

	"github.com/ibeckermayer/xengage/internal/types"
)

const baseURL = "https://x.com"

// HomeURL is the logged-in home timeline
const HomeURL = baseURL + "/home"

var statusIDPattern = regexp.MustCompile(`/status/(\d+)`)

// ProfileURL returns the profile page of handle
func ProfileURL(handle types.Identity) string {
	return baseURL + "/" + url.PathEscape(string(handle))
}

// StatusURL returns the canonical URL of a post
func StatusURL(owner types.Identity, id string) string {
	return fmt.Sprintf("%s/%s/status/%s", baseURL, url.PathEscape(string(owner)), id)
}

// StatusID extracts the numeric post id from a status URL or path
func StatusID(s string) (string, bool) {
	m := statusIDPattern.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// InteractionQuery is the search query matching posts by a that reply to or
// mention b
func InteractionQuery(a, b types.Identity) string {
	return fmt.Sprintf("(from:%s to:%s) OR (from:%s @%s)", a, b, a, b)
}

// SearchURL returns the live (latest-first) search results page for query
func SearchURL(query string) string {
	v := url.Values{}
	v.Set("q", query)
	v.Set("src", "typed_query")
	v.Set("f", "live")
	return baseURL + "/search?" + v.Encode()
}
