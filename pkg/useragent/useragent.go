// Package useragent classifies HTTP User-Agent strings into coarse device
// categories. The sign-in flow only needs to know whether the visitor is on
// a small-screen device, so parsing is intentionally shallow.
package useragent

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Device types represent the category of device that made the request
const (
	DeviceTypeBot     = "bot"
	DeviceTypeMobile  = "mobile"
	DeviceTypeTablet  = "tablet"
	DeviceTypeDesktop = "desktop"
	DeviceTypeUnknown = "unknown"
)

// UserAgent contains the parsed information from a user agent string
type UserAgent struct {
	raw         string
	deviceType  string
	deviceModel string
}

// Parse classifies the user agent string. It never fails; unrecognized
// agents are classified as unknown.
func Parse(userAgent string) UserAgent {
	lower := strings.ToLower(userAgent)
	deviceType := parseDeviceType(lower)
	return UserAgent{
		raw:         userAgent,
		deviceType:  deviceType,
		deviceModel: parseDeviceModel(lower, deviceType),
	}
}

// String returns the raw user agent string.
func (ua UserAgent) String() string { return ua.raw }

// DeviceType returns the device type (mobile, tablet, desktop, bot, unknown).
func (ua UserAgent) DeviceType() string { return ua.deviceType }

// DeviceModel returns a human-readable device brand for mobile and tablet
// devices, empty otherwise.
func (ua UserAgent) DeviceModel() string { return ua.deviceModel }

// IsBot returns true if the user agent is an automated client.
func (ua UserAgent) IsBot() bool { return ua.deviceType == DeviceTypeBot }

// IsMobile returns true if the user agent is a mobile device.
func (ua UserAgent) IsMobile() bool { return ua.deviceType == DeviceTypeMobile }

// IsTablet returns true if the user agent is a tablet device.
func (ua UserAgent) IsTablet() bool { return ua.deviceType == DeviceTypeTablet }

// IsDesktop returns true if the user agent is a desktop device.
func (ua UserAgent) IsDesktop() bool { return ua.deviceType == DeviceTypeDesktop }

type keywordSet []string

func (k keywordSet) contains(s string) bool {
	for _, keyword := range k {
		if strings.Contains(s, keyword) {
			return true
		}
	}
	return false
}

var (
	botKeywords     = keywordSet{"bot", "spider", "crawler", "archiver", "lighthouse", "slurp", "facebookexternalhit", "whatsapp", "telegram", "slack", "monitor", "validator", "fetcher", "scraper"}
	tabletKeywords  = keywordSet{"tablet", "kindle", "silk"}
	mobileKeywords  = keywordSet{"mobile", "iphone", "android", "windows phone", "iemobile", "blackberry"}
	desktopKeywords = keywordSet{"windows", "macintosh", "mac os x", "linux", "x11", "cros"}
)

// parseDeviceType classifies with fast string matching. Order matters:
// unambiguous iOS identifiers first, then bots, then the Android
// mobile/tablet split (Android tablets omit the "mobile" keyword).
func parseDeviceType(lowerUA string) string {
	if lowerUA == "" {
		return DeviceTypeUnknown
	}

	if strings.Contains(lowerUA, "ipad") {
		return DeviceTypeTablet
	}
	if strings.Contains(lowerUA, "iphone") {
		return DeviceTypeMobile
	}

	if botKeywords.contains(lowerUA) {
		return DeviceTypeBot
	}

	if strings.Contains(lowerUA, "android") {
		if strings.Contains(lowerUA, "mobile") {
			return DeviceTypeMobile
		}
		return DeviceTypeTablet
	}

	if tabletKeywords.contains(lowerUA) {
		return DeviceTypeTablet
	}
	if mobileKeywords.contains(lowerUA) {
		return DeviceTypeMobile
	}

	// Windows tablets need detection before general desktop matching
	if strings.Contains(lowerUA, "windows") &&
		(strings.Contains(lowerUA, "touch") || strings.Contains(lowerUA, "tablet")) {
		return DeviceTypeTablet
	}

	if desktopKeywords.contains(lowerUA) {
		return DeviceTypeDesktop
	}

	return DeviceTypeUnknown
}

var mobileBrands = []string{"iphone", "samsung", "huawei", "xiaomi", "oppo", "vivo", "pixel"}

func parseDeviceModel(lowerUA, deviceType string) string {
	if deviceType != DeviceTypeMobile && deviceType != DeviceTypeTablet {
		return ""
	}

	if deviceType == DeviceTypeTablet {
		if strings.Contains(lowerUA, "ipad") {
			return "iPad"
		}
		if strings.Contains(lowerUA, "kindle") || strings.Contains(lowerUA, "silk") {
			return "Kindle Fire"
		}
		if strings.Contains(lowerUA, "android") {
			return "Android"
		}
		return ""
	}

	title := cases.Title(language.English)
	for _, brand := range mobileBrands {
		if strings.Contains(lowerUA, brand) {
			if brand == "iphone" {
				return "iPhone"
			}
			return title.String(brand)
		}
	}
	if strings.Contains(lowerUA, "android") {
		return "Android"
	}
	return ""
}
