package scraping

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	countryPattern  = regexp.MustCompile(`hotelCountry:\s*"(.+?)"`)
	pageNamePattern = regexp.MustCompile(`hotelName:\s*"(.+?)"`)
	csrfPattern     = regexp.MustCompile(`b_csrf_token:\s*'(.+?)'`)
)

// SessionTokens are the values embedded in a property page that authorize
// the availability query.
type SessionTokens struct {
	CountryCode string
	PageName    string
	CSRFToken   string
}

// ExtractTokens searches the page for all three tokens. ok is false unless
// every one of them is present.
func ExtractTokens(html string) (SessionTokens, bool) {
	country := countryPattern.FindStringSubmatch(html)
	pageName := pageNamePattern.FindStringSubmatch(html)
	csrf := csrfPattern.FindStringSubmatch(html)
	if country == nil || pageName == nil || csrf == nil {
		return SessionTokens{}, false
	}
	return SessionTokens{
		CountryCode: country[1],
		PageName:    pageName[1],
		CSRFToken:   csrf[1],
	}, true
}

// PageTitle returns the og:title of the page, falling back to <title>.
// An empty string means neither is present.
func PageTitle(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	if title, ok := doc.Find(`meta[property="og:title"]`).First().Attr("content"); ok && strings.TrimSpace(title) != "" {
		return strings.TrimSpace(title)
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}
