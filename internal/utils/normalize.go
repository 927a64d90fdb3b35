package utils

import (
	"path"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var nonSafe = regexp.MustCompile(`[^a-z0-9\-_]+`)
var multiDash = regexp.MustCompile(`\-+`)

// Slugify lowercases name, strips accents and collapses everything that is
// not a letter or digit into single dashes.
func Slugify(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	t := norm.NFKD.String(name)
	b := make([]rune, 0, len(t))
	for _, r := range t {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b = append(b, unicode.ToLower(r))
			continue
		}
		if unicode.IsSpace(r) || r == '-' || r == '_' || r == '.' {
			b = append(b, '-')
			continue
		}
	}
	out := string(b)
	out = nonSafe.ReplaceAllString(out, "-")
	out = multiDash.ReplaceAllString(out, "-")
	out = strings.Trim(out, "-")
	return out
}

// ObjectName turns an uploaded file name into a storage-safe object name,
// keeping a short lowercase extension. Names with nothing usable become
// "image".
func ObjectName(filename string) string {
	filename = path.Base(strings.ReplaceAll(strings.TrimSpace(filename), "\\", "/"))
	ext := strings.ToLower(path.Ext(filename))
	base := strings.TrimSuffix(filename, path.Ext(filename))

	ext = strings.TrimPrefix(ext, ".")
	ext = nonSafe.ReplaceAllString(ext, "")
	if len(ext) > 5 {
		ext = ""
	}

	slug := Slugify(base)
	if len(slug) > 80 {
		slug = strings.Trim(slug[:80], "-")
	}
	if slug == "" {
		slug = "image"
	}
	if ext == "" {
		return slug
	}
	return slug + "." + ext
}
