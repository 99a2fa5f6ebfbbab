package website

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// MetaTagName is the meta tag name claimants are told to publish. It is part
// of the instructions already sent by email and must not change.
const MetaTagName = "verification-code"

// MetaTag renders the tag a claimant should paste into their page head.
func MetaTag(code string) string {
	return `<meta name="` + MetaTagName + `" content="` + html.EscapeString(code) + `">`
}

// ContainsCode reports whether page proves ownership for code, either through
// a case-insensitive occurrence anywhere in the markup or through the
// verification meta tag.
func ContainsCode(page []byte, code string) bool {
	code = strings.TrimSpace(code)
	if code == "" {
		return false
	}
	if bytes.Contains(bytes.ToLower(page), []byte(strings.ToLower(code))) {
		return true
	}
	return metaTagMatches(page, code)
}

func metaTagMatches(page []byte, code string) bool {
	z := html.NewTokenizer(bytes.NewReader(page))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return false
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			if tok.Data != "meta" {
				continue
			}
			var name, content string
			for _, attr := range tok.Attr {
				switch strings.ToLower(attr.Key) {
				case "name":
					name = attr.Val
				case "content":
					content = attr.Val
				}
			}
			if strings.EqualFold(name, MetaTagName) && strings.EqualFold(strings.TrimSpace(content), code) {
				return true
			}
		}
	}
}
