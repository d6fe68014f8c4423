package itunes

import (
	"regexp"
	"strconv"
)

// CoverSize is the artwork edge length requested from iTunes.
const CoverSize = 600

// sizePattern matches iTunes artwork size patterns like "100x100bb.jpg"
var sizePattern = regexp.MustCompile(`/\d+x\d+bb\.(jpg|png)$`)

// CoverURL rewrites an iTunes artwork URL to request a size x size image.
// URLs without a size suffix are returned unchanged.
func CoverURL(url string, size int) string {
	if url == "" {
		return ""
	}
	edge := strconv.Itoa(size)
	return sizePattern.ReplaceAllString(url, "/"+edge+"x"+edge+"bb.$1")
}
