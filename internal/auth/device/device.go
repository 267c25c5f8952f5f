// Package device turns User-Agent headers into short labels for sign-in logs.
package device

import (
	"strings"

	"github.com/mssola/useragent"
)

// Info describes the client a request came from.
type Info struct {
	Label    string
	Platform string
	Bot      bool
}

// Parse extracts browser, OS and platform class from a User-Agent string.
func Parse(userAgent string) Info {
	if strings.TrimSpace(userAgent) == "" {
		return Info{Label: "Unknown Device", Platform: "unknown"}
	}

	ua := useragent.New(userAgent)
	if ua.Bot() {
		name, _ := ua.Browser()
		if name == "" {
			name = "Bot"
		}
		return Info{Label: name, Platform: "bot", Bot: true}
	}

	platform := "desktop"
	if ua.Mobile() {
		platform = "mobile"
	}
	return Info{Label: Label(userAgent), Platform: platform}
}

// Label returns "Browser on OS" (e.g. "Chrome on macOS", "Safari on iPhone").
func Label(userAgent string) string {
	if strings.TrimSpace(userAgent) == "" {
		return "Unknown Device"
	}

	ua := useragent.New(userAgent)
	browser, _ := ua.Browser()
	if browser == "" {
		browser = "Unknown Browser"
	}

	if ua.Mobile() {
		if platform := ua.Platform(); platform != "" {
			return browser + " on " + platform
		}
	}

	os := ua.OS()
	if os == "" {
		os = "Unknown OS"
	}
	return browser + " on " + osFamily(os)
}

// osFamily trims version noise such as "Intel Mac OS X 10_15_7".
func osFamily(os string) string {
	switch {
	case strings.Contains(os, "Mac OS X"):
		return "macOS"
	case strings.HasPrefix(os, "Windows"):
		return "Windows"
	case strings.HasPrefix(os, "Android"):
		return "Android"
	case strings.Contains(os, "Linux"):
		return "Linux"
	}
	return os
}
