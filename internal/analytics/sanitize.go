package analytics

import (
	"net/url"
	"unicode/utf8"
)

const maxMetaLength = 500

// SanitizeReferrer cleans and truncates the referrer URL.
// Strips query parameters and fragments for privacy.
func SanitizeReferrer(ref string) string {
	if ref == "" {
		return ""
	}

	parsed, err := url.Parse(ref)
	if err != nil {
		return ""
	}

	// Keep only scheme + host + path; strip query params and fragments
	parsed.RawQuery = ""
	parsed.Fragment = ""
	parsed.User = nil

	return truncate(parsed.String(), maxMetaLength)
}

// TruncateUserAgent truncates user agent to max 500 bytes.
func TruncateUserAgent(ua string) string {
	return truncate(ua, maxMetaLength)
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
