package auth

import (
	"fmt"
	"io"
	"strings"
)

// ShowCookieExtractionGuide explains how to copy the TikTok cookie header
// out of a browser session
func ShowCookieExtractionGuide(w io.Writer) {
	rule := strings.Repeat("=", 80)
	lines := []string{
		rule,
		"TIKTOK COOKIE EXTRACTION GUIDE",
		rule,
		"",
		"Public post listings work without a session, but TikTok serves far",
		"fewer empty pages to a logged-in browser. To reuse your session:",
		"",
		"STEP 1: Open https://www.tiktok.com in your browser and log in",
		"",
		"STEP 2: Open Developer Tools",
		"   - Chrome/Edge/Brave/Firefox: F12 or Ctrl+Shift+I (Cmd+Option+I on Mac)",
		"   - Safari: enable the Develop menu, then Cmd+Option+I",
		"",
		"STEP 3: Network tab",
		"   - Refresh the page and click any request to 'tiktok.com/api/'",
		"   - Under 'Request Headers' copy the whole 'Cookie:' value",
		"",
		"The value should contain at least these cookies:",
		"   msToken      short-lived request token",
		"   ttwid        device id",
		"   sessionid    only present when logged in",
		"",
		"TIPS:",
		"   - Copy everything after 'Cookie:', without quotes",
		"   - Also copy your browser's User-Agent so both match",
		"   - Cookies expire; run 'ttscraper auth login' again when crawls start",
		"     returning only empty pages",
		"",
		"SECURITY WARNING:",
		"   The session cookie grants full access to your account.",
		"   Never share it. This tool keeps it in the system keychain or an",
		"   encrypted file.",
		rule,
		"",
	}
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
}

// ShowQuickExtractGuide shows a condensed version for experienced users
func ShowQuickExtractGuide(w io.Writer) {
	fmt.Fprintln(w, "\nQuick guide: F12 -> Network -> refresh -> any tiktok.com/api/ request -> Request Headers -> Cookie")
	fmt.Fprintln(w, "   Type 'help' for detailed instructions")
}
