package normalize

import (
	"net/url"
	"path"
	"strings"
)

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".gif":  true,
}

// CanonicalLink lowercases scheme and host, drops the fragment and upgrades
// protocol-relative links to https. Unparseable input is returned trimmed.
func CanonicalLink(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, "//") {
		raw = "https:" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}

// ResolveURL makes raw absolute against base. Protocol-relative values become
// https. When the pair cannot be parsed, the raw value is appended to base.
func ResolveURL(base, raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, "//") {
		return "https:" + raw
	}
	ref, err := url.Parse(raw)
	if err == nil && ref.IsAbs() {
		return raw
	}
	b, berr := url.Parse(strings.TrimSpace(base))
	if err != nil || berr != nil || !b.IsAbs() {
		return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(raw, "/")
	}
	return b.ResolveReference(ref).String()
}

// IsImageURL reports whether raw is an absolute http(s) URL whose path has a
// known image extension.
func IsImageURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return imageExtensions[strings.ToLower(path.Ext(u.Path))]
}

// Placeholder builds the deterministic placeholder image of a source.
// base is a service that renders "<base>/<width>x<height>/<bg>/<fg>?text=<label>".
func Placeholder(base, color, sourceName string) string {
	bg := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(color)), "#")
	if bg == "" {
		bg = strings.TrimPrefix(DefaultColor, "#")
	}
	return strings.TrimRight(base, "/") + "/400x300/" + bg + "/ffffff?text=" + url.QueryEscape(sourceName)
}
