package common

import (
	"net/url"
	"regexp"
	"strings"
)

// MaxCommentLinks 이 값을 넘는 링크가 있으면 스팸으로 보고 검토로 보낸다
const MaxCommentLinks = 2

// Link shorteners hide the destination, so comments carrying them are never auto-approved
var shortenerDomains = []string{
	"bit.ly",
	"s.id",
	"tinyurl.com",
	"t.co",
	"cutt.ly",
	"shorturl.at",
	"rebrand.ly",
}

// URL pattern to extract links from content
var urlPattern = regexp.MustCompile(`https?://[^\s<>"']+`)

// ExtractLinks returns every http(s) link in content
func ExtractLinks(content string) []string {
	return urlPattern.FindAllString(content, -1)
}

// isShortener matches the host exactly or as a subdomain
func isShortener(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, d := range shortenerDomains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// ScreenLinks returns a non-empty reason when the links in content need a human look
func ScreenLinks(content string) string {
	links := ExtractLinks(content)
	if len(links) > MaxCommentLinks {
		return "too many links"
	}
	for _, l := range links {
		if isShortener(l) {
			return "shortened link"
		}
	}
	return ""
}
