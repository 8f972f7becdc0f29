package wos

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"wosbot/pkg/logx"
)

const codesPageURL = "https://www.wosgiftcodes.com/"

// Scraper pulls the list of active gift codes off the community codes page.
type Scraper struct {
	httpClient *http.Client
	log        logx.Logger

	pageURL string
}

func NewScraper(log logx.Logger) *Scraper {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Scraper{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		log:        log,
		pageURL:    codesPageURL,
	}
}

// ActiveCodes returns the codes in page order: the first cell of each body
// row of the first table. An unreachable or reshaped page yields an empty
// list, never an error — callers treat "no codes" and "no page" the same and
// simply try again next interval.
func (s *Scraper) ActiveCodes(ctx context.Context) []string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.pageURL, nil)
	if err != nil {
		s.log.Warn("codes page request build failed", logx.Err(err))
		return nil
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.log.Warn("codes page fetch failed", logx.Err(err))
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.log.Warn("codes page non-200", logx.Int("status", resp.StatusCode))
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		s.log.Warn("codes page parse failed", logx.Err(err))
		return nil
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		s.log.Warn("codes page has no table")
		return nil
	}

	var codes []string
	table.Find("tbody tr").Each(func(_ int, row *goquery.Selection) {
		code := strings.TrimSpace(row.Find("td").First().Text())
		if code != "" {
			codes = append(codes, code)
		}
	})
	return codes
}
