package store

import (
	"fmt"
	"path"
	"strings"
)

// NormalizeURL returns the canonical form of a site URL: rooted and cleaned.
// A URL whose last segment has no extension is a directory URL and always
// ends in a slash, so "/about" and "/about/" are the same URL. Query strings
// and fragments are dropped.
func NormalizeURL(raw string) (string, error) {
	u := strings.TrimSpace(raw)
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	u = strings.ReplaceAll(u, "\\", "/")

	if u == "" {
		return "", fmt.Errorf("empty URL")
	}

	trailing := strings.HasSuffix(u, "/")
	rel := path.Clean(strings.TrimLeft(u, "/"))
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("URL %q escapes the site root", raw)
	}
	cleaned := path.Clean("/" + rel)

	if (trailing || path.Ext(cleaned) == "") && cleaned != "/" {
		cleaned += "/"
	}

	return cleaned, nil
}

// NormalizePath returns the canonical slash-separated form of a path
// relative to the site root.
func NormalizePath(raw string) (string, error) {
	p := strings.ReplaceAll(strings.TrimSpace(raw), "\\", "/")
	if p == "" {
		return "", nil
	}

	if strings.HasPrefix(p, "/") {
		return "", fmt.Errorf("path %q is not relative", raw)
	}

	cleaned := path.Clean(p)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("path %q escapes the site root", raw)
	}
	if cleaned == "." {
		return "", fmt.Errorf("path %q names the site root", raw)
	}

	return cleaned, nil
}
