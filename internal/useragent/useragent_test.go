package useragent

import (
	"strings"
	"testing"

	"github.com/refract/redirector/internal/model"
)

const (
	chromeWindows       = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.6099.109 Safari/537.36"
	safariIPhone        = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Mobile/15E148 Safari/604.1"
	safariIPad          = "Mozilla/5.0 (iPad; CPU OS 16_6 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.6 Mobile/15E148 Safari/604.1"
	kindleSilk          = "Mozilla/5.0 (Linux; U; Android 4.0.3; en-us; KFTT Build/IML74K) AppleWebKit/535.19 (KHTML, like Gecko) Silk/3.4 Mobile Safari/535.19 Silk-Accelerated=true"
	googlebot           = "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"
	googlebotSmartphone = "Mozilla/5.0 (Linux; Android 6.0.1; Nexus 5X Build/MMB29P) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"
	genericSpider       = "Mozilla/5.0 (iPhone; CPU iPhone OS 16_0 like Mac OS X) ExampleSpider/1.0"
	cubotPhone          = "Mozilla/5.0 (Linux; Android 9; CUBOT X19) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36"
	slackbot            = "Slackbot-LinkExpanding 1.0 (+https://api.slack.com/robots)"
)

func TestParser_DeviceType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ua   string
		want model.DeviceType
	}{
		{"desktop chrome", chromeWindows, model.DeviceDesktop},
		{"iphone", safariIPhone, model.DeviceMobile},
		{"ipad", safariIPad, model.DeviceTablet},
		{"kindle", kindleSilk, model.DeviceTablet},
		{"googlebot", googlebot, model.DeviceBot},
		{"bot wins over mobile", googlebotSmartphone, model.DeviceBot},
		{"spider wins over iphone", genericSpider, model.DeviceBot},
		{"brand containing bot is a phone", cubotPhone, model.DeviceMobile},
		{"bot product with suffix", slackbot, model.DeviceBot},
		{"empty", "", model.DeviceDesktop},
		{"garbage", "???", model.DeviceDesktop},
	}

	p := NewParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := p.Parse(tt.ua).DeviceType; got != tt.want {
				t.Errorf("Parse(%q).DeviceType = %s, want %s", tt.ua, got, tt.want)
			}
		})
	}
}

func TestParser_BrowserAndOS(t *testing.T) {
	t.Parallel()

	info := NewParser().Parse(chromeWindows)

	if info.Browser != "Chrome 120.0" {
		t.Errorf("Browser = %q, want %q", info.Browser, "Chrome 120.0")
	}
	if !strings.HasPrefix(info.OS, "Windows") {
		t.Errorf("OS = %q, want Windows prefix", info.OS)
	}
}

func TestParser_EmptyHasNoFamilies(t *testing.T) {
	t.Parallel()

	info := NewParser().Parse("")
	if info.Browser != "" || info.OS != "" {
		t.Errorf("expected empty browser and OS, got %q / %q", info.Browser, info.OS)
	}
}

func TestFormatFamily(t *testing.T) {
	t.Parallel()

	tests := []struct {
		family  string
		version string
		want    string
	}{
		{"Firefox", "121.0.1", "Firefox 121.0"},
		{"Safari", "17.1", "Safari 17.1"},
		{"iOS", "17", "iOS 17"},
		{"Linux", "", "Linux"},
		{"Other", "1.2", ""},
		{"", "1.2", ""},
	}

	for _, tt := range tests {
		if got := formatFamily(tt.family, tt.version); got != tt.want {
			t.Errorf("formatFamily(%q, %q) = %q, want %q", tt.family, tt.version, got, tt.want)
		}
	}
}

func TestIsBot(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want bool
	}{
		{"mozilla/5.0 (compatible; googlebot/2.1; +http://www.google.com/bot.html)", true},
		{"mozilla/5.0 (compatible; bingbot)", true},
		{"twitterbot", true},
		{"slackbot-linkexpanding 1.0", true},
		{"examplespider/1.0", true},
		{"mozilla/5.0 (linux; android 9; cubot x19) chrome/120.0.0.0 mobile", false},
		{"mozilla/5.0 (linux; android 10; cubot_note_20)", false},
		{"chrome", false},
	}

	for _, tt := range tests {
		if got := isBot(tt.in); got != tt.want {
			t.Errorf("isBot(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
