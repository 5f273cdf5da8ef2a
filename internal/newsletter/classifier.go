package newsletter

import "strings"

// ClassifyLinks parses a raw List-Unsubscribe header value into unsubscribe
// targets. The header is a comma-separated list of angle-bracket-delimited
// entries (RFC 2369). all holds every non-empty trimmed entry in order; web
// is the subset starting with http or https, case-insensitively, in the
// same order. Malformed input simply yields fewer or no web links.
func ClassifyLinks(raw string) (web, all []string) {
	for _, segment := range strings.Split(raw, ",") {
		link := strings.TrimSpace(segment)
		link = strings.TrimPrefix(link, "<")
		link = strings.TrimSuffix(link, ">")
		if link == "" {
			continue
		}
		all = append(all, link)
		if strings.HasPrefix(strings.ToLower(link), "http") {
			web = append(web, link)
		}
	}
	return web, all
}
