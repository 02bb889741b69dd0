// Package useragent classifies client devices and formats browser and OS names.
package useragent

import (
	"regexp"
	"strings"

	ua "github.com/mileusna/useragent"

	"github.com/refract/redirector/internal/model"
)

// Info is the result of parsing a user agent. Browser and OS are empty when unknown.
type Info struct {
	DeviceType model.DeviceType
	Browser    string
	OS         string
}

var (
	crawlerTokens = []string{"spider", "crawler", "crawl", "slurp", "facebookexternalhit", "bingpreview"}
	tabletTokens  = []string{"ipad", "tablet", "kindle", "silk", "playbook"}
	mobileTokens  = []string{"iphone", "ipod", "android", "mobile", "phone"}

	// botProduct matches "bot" ending a product token such as Googlebot/2.1,
	// Slackbot-LinkExpanding or "(compatible; bingbot)". A bare substring would
	// also match device brands like CUBOT.
	botProduct = regexp.MustCompile(`bot(?:[/;)\-]|$)`)
)

// Parser parses user agent strings. It is safe for concurrent use.
type Parser struct{}

// NewParser creates a Parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse classifies s. Unknown or empty input yields a desktop device with no
// browser or OS.
func (p *Parser) Parse(s string) Info {
	if strings.TrimSpace(s) == "" {
		return Info{DeviceType: model.DeviceDesktop}
	}

	parsed := ua.Parse(s)

	return Info{
		DeviceType: classify(parsed, s),
		Browser:    formatFamily(parsed.Name, parsed.Version),
		OS:         formatFamily(parsed.OS, parsed.OSVersion),
	}
}

// classify applies bot, tablet, mobile, desktop precedence.
func classify(parsed ua.UserAgent, raw string) model.DeviceType {
	lowerRaw := strings.ToLower(raw)
	name := strings.ToLower(parsed.Name)
	device := strings.ToLower(parsed.Device)

	if parsed.Bot || isBot(name) || isBot(lowerRaw) || containsAny(device, crawlerTokens) {
		return model.DeviceBot
	}
	if parsed.Tablet || containsAny(device, tabletTokens) || containsAny(lowerRaw, tabletTokens) {
		return model.DeviceTablet
	}
	if parsed.Mobile || containsAny(device, mobileTokens) || containsAny(lowerRaw, mobileTokens) {
		return model.DeviceMobile
	}
	return model.DeviceDesktop
}

// formatFamily renders "Family major.minor". An empty or "Other" family is absent.
func formatFamily(family, version string) string {
	family = strings.TrimSpace(family)
	if family == "" || strings.EqualFold(family, "other") {
		return ""
	}

	parts := strings.SplitN(strings.TrimSpace(version), ".", 3)
	switch {
	case len(parts) >= 2 && parts[0] != "" && parts[1] != "":
		return family + " " + parts[0] + "." + parts[1]
	case parts[0] != "":
		return family + " " + parts[0]
	default:
		return family
	}
}

func isBot(s string) bool {
	return containsAny(s, crawlerTokens) || botProduct.MatchString(s)
}

func containsAny(s string, tokens []string) bool {
	if s == "" {
		return false
	}
	for _, token := range tokens {
		if strings.Contains(s, token) {
			return true
		}
	}
	return false
}
