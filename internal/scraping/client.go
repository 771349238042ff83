package scraping

import (
	"github.com/go-resty/resty/v2"

	"github.com/krspack/scrap-booking-for-Brno/config"
)

// NewClient creates the HTTP client shared by every property task so that
// connections are pooled across the whole run.
func NewClient(cfg *config.Config) *resty.Client {
	client := resty.New()
	client.SetTimeout(cfg.Scraping.RequestTimeout)
	client.SetHeader("user-agent", cfg.Scraping.UserAgent)
	client.SetHeader("accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	client.SetHeader("accept-language", "en-US,en;q=0.9")
	return client
}
