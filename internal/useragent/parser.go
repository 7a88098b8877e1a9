// Package useragent derives coarse device information from a raw User-Agent
// header. Parsing never fails; anything it cannot recognise becomes "Unknown".
package useragent

import (
	"regexp"
	"strings"

	"parcelview/internal/models"
)

const Unknown = "Unknown"

var (
	mobileRe = regexp.MustCompile(`Mobile|Android|iPhone|iPad`)

	windowsRe = regexp.MustCompile(`Windows NT ([\d.]+)`)
	macRe     = regexp.MustCompile(`Mac OS X ([\d_.]+)`)
	androidRe = regexp.MustCompile(`Android ([\d.]+)`)
	iosRe     = regexp.MustCompile(`iPhone OS ([\d_]+)`)

	chromeRe        = regexp.MustCompile(`Chrome/([\d.]+)`)
	firefoxRe       = regexp.MustCompile(`Firefox/([\d.]+)`)
	safariVersionRe = regexp.MustCompile(`Version/([\d.]+)`)
	safariRe        = regexp.MustCompile(`Safari/([\d.]+)`)
	edgeRe          = regexp.MustCompile(`Edge?/([\d.]+)`)
)

type osRule struct {
	name       string
	re         *regexp.Regexp
	underscore bool
}

// checked in order, first match wins
var osRules = []osRule{
	{name: "Windows", re: windowsRe},
	{name: "macOS", re: macRe, underscore: true},
	{name: "Android", re: androidRe},
	{name: "iOS", re: iosRe, underscore: true},
}

func Parse(ua string) models.DeviceInfo {
	info := models.DeviceInfo{
		Browser:        Unknown,
		BrowserVersion: Unknown,
		OS:             Unknown,
		Device:         Unknown,
	}
	if strings.TrimSpace(ua) == "" {
		return info
	}

	info.Mobile = mobileRe.MatchString(ua)
	info.OS = detectOS(ua)
	info.Browser, info.BrowserVersion = detectBrowser(ua)
	info.Device = detectDevice(ua, info.Mobile)

	return info
}

func detectOS(ua string) string {
	for _, rule := range osRules {
		m := rule.re.FindStringSubmatch(ua)
		if m == nil {
			continue
		}
		version := m[1]
		if rule.underscore {
			version = strings.ReplaceAll(version, "_", ".")
		}
		return rule.name + " " + version
	}
	if strings.Contains(ua, "Linux") {
		return "Linux"
	}
	return Unknown
}

func detectBrowser(ua string) (string, string) {
	switch {
	case strings.Contains(ua, "Chrome") && !strings.Contains(ua, "Chromium"):
		return "Chrome", capture(chromeRe, ua)
	case strings.Contains(ua, "Firefox"):
		return "Firefox", capture(firefoxRe, ua)
	case strings.Contains(ua, "Safari") && !strings.Contains(ua, "Chrome"):
		if v := capture(safariVersionRe, ua); v != Unknown {
			return "Safari", v
		}
		return "Safari", capture(safariRe, ua)
	case strings.Contains(ua, "Edg"):
		return "Edge", capture(edgeRe, ua)
	}
	return Unknown, Unknown
}

func detectDevice(ua string, mobile bool) string {
	switch {
	case strings.Contains(ua, "iPhone"):
		return "iPhone"
	case strings.Contains(ua, "iPad"):
		return "iPad"
	case strings.Contains(ua, "Android") && strings.Contains(ua, "Mobile"):
		return "Android Phone"
	case strings.Contains(ua, "Android"):
		return "Android Tablet"
	case mobile:
		return "Mobile"
	}
	return "Desktop"
}

func capture(re *regexp.Regexp, ua string) string {
	if m := re.FindStringSubmatch(ua); m != nil {
		return m[1]
	}
	return Unknown
}
