// internal/scraper/validator.go
package scraper

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// exclusionKeywords mark non-product imagery (site chrome, user content,
// map tiles).
var exclusionKeywords = []string{
	"logo", "icon", "avatar", "placeholder", "profile", "badge", "flag",
	"grape", "region", "merchant", "store", "sprite", "banner", "user",
}

var sizeTokenPattern = regexp.MustCompile(`_(\d+)x(\d+)\.`)

const (
	// largeSizeToken replaces fixed thumbnail sizes with the large variant.
	largeSizeToken = "_pb_x960."
	// maxThumbnailEdge is the largest edge, in pixels, still treated as a thumbnail
	maxThumbnailEdge = 500
)

// HasExclusionKeyword reports whether the path or query of raw names
// non-product imagery. The host is not inspected.
func HasExclusionKeyword(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return true
	}
	rest := strings.ToLower(u.EscapedPath() + "?" + u.RawQuery)
	for _, kw := range exclusionKeywords {
		if strings.Contains(rest, kw) {
			return true
		}
	}
	return false
}

// upsizeThumbnail rewrites _WxH. tokens of thumbnail size to the large
// variant and leaves bigger renditions alone.
func upsizeThumbnail(path string) string {
	return sizeTokenPattern.ReplaceAllStringFunc(path, func(token string) string {
		m := sizeTokenPattern.FindStringSubmatch(token)
		w, errW := strconv.Atoi(m[1])
		h, errH := strconv.Atoi(m[2])
		if errW != nil || errH != nil {
			return token
		}
		if w <= maxThumbnailEdge || h <= maxThumbnailEdge {
			return largeSizeToken
		}
		return token
	})
}

// URLValidator accepts only bottle images served from one trusted media host
type URLValidator struct {
	host string
}

// NewURLValidator creates a validator for the given media host
func NewURLValidator(mediaHost string) *URLValidator {
	return &URLValidator{host: strings.ToLower(strings.TrimSpace(mediaHost))}
}

// Host returns the trusted media host
func (v *URLValidator) Host() string {
	return v.host
}

// Validate returns the cleaned URL and true, or "" and false when raw must
// not be used. Rejection is never an error; the caller tries the next
// candidate.
func (v *URLValidator) Validate(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}

	switch {
	case strings.HasPrefix(raw, "//"):
		raw = "https:" + raw
	case strings.HasPrefix(raw, "/"):
		raw = "https://" + v.host + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	if v.host == "" || strings.ToLower(u.Hostname()) != v.host {
		return "", false
	}

	if HasExclusionKeyword(u.String()) {
		return "", false
	}

	u.Path = upsizeThumbnail(u.Path)
	u.RawPath = ""
	u.Fragment = ""
	return u.String(), true
}
