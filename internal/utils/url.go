package utils

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/idna"
)

var urlRegex = regexp.MustCompile(`https?://[^\s<>]+`)

func ExtractURLs(content string) []string {
	return urlRegex.FindAllString(content, -1)
}

// LinkHost returns the lowercased ASCII (punycode) host of raw. A missing
// scheme is treated as https.
func LinkHost(raw string) (string, error) {
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	host := strings.ToLower(parsed.Hostname())
	if ascii, err := idna.ToASCII(host); err == nil {
		host = ascii
	}
	return host, nil
}

// LinkHosts returns the distinct ASCII (punycode) hosts linked in content,
// in order of first appearance. Look-alike unicode domains show up in their
// xn-- form.
func LinkHosts(content string) []string {
	seen := make(map[string]struct{})
	var hosts []string
	for _, raw := range ExtractURLs(content) {
		host, err := LinkHost(strings.TrimRight(raw, ".,;:!?)]}'\""))
		if err != nil || host == "" {
			continue
		}
		if _, ok := seen[host]; ok {
			continue
		}
		seen[host] = struct{}{}
		hosts = append(hosts, host)
	}
	return hosts
}

// MatchWords returns the configured words that occur in content, ignoring case.
func MatchWords(content string, words []string) []string {
	lower := strings.ToLower(content)
	var matched []string
	for _, word := range words {
		word = strings.TrimSpace(word)
		if word == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(word)) {
			matched = append(matched, word)
		}
	}
	return matched
}
