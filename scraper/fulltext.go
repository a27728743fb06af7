package scraper

import (
	"context"
	"encoding/json"
	"html"
	"net/http"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// The fulltext dialog responds with HTML-entity-encoded JSON:
// {"success":true,"textCont":"FULL_CONTENT"}.
type fulltextPayload struct {
	Success  bool   `json:"success"`
	TextCont string `json:"textCont"`
}

var (
	brTagRe          = regexp.MustCompile(`<br\s*/?>`)
	htmlTagRe        = regexp.MustCompile(`<[^>]+>`)
	duplicateCommaRe = regexp.MustCompile(`,\s*,`)
	trailingCommaRe  = regexp.MustCompile(`,\s*$`)
)

// resolveTruncated locates the "More ..." anchor inside a truncated cell
// and fetches the full content from its fulltext.php dialog. Returns ""
// when the cell has no usable link or the dialog fetch fails, in which case
// the caller keeps the truncated text.
func (s *SiteScraper) resolveTruncated(ctx context.Context, cell *goquery.Selection) string {
	link := cell.Find(`a[data-query*="fulltext.php"]`).First()
	if link.Length() == 0 {
		link = cell.Find(`a[href*="fulltext.php"]`).First()
	}
	if link.Length() == 0 {
		return ""
	}

	query := link.AttrOr("data-query", "")
	if query == "" || query == "javascript:void(0);" {
		query = link.AttrOr("href", "")
	}
	if query == "" || query == "javascript:void(0);" {
		return ""
	}

	full, err := s.fetchFullText(ctx, query)
	if err != nil {
		s.log.Warn("failed to fetch fulltext dialog", "query", query, "error", err)
		return ""
	}
	return full
}

// fetchFullText requests one fulltext.php dialog through the shared client,
// paced by the politeness limiter.
func (s *SiteScraper) fetchFullText(ctx context.Context, query string) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}

	resp, err := s.client.R().SetContext(ctx).Get(query)
	if err != nil {
		return "", &SourceUnavailableError{URL: s.baseURL + query, Err: err}
	}
	if resp.StatusCode() != http.StatusOK {
		return "", &SourceUnavailableError{URL: s.baseURL + query, StatusCode: resp.StatusCode()}
	}

	decoded := html.UnescapeString(string(resp.Body()))

	var payload fulltextPayload
	if err := json.Unmarshal([]byte(decoded), &payload); err == nil {
		if payload.Success && payload.TextCont != "" {
			return cleanDialogText(payload.TextCont), nil
		}
		return "", nil
	}

	// Not JSON; fall back to scraping the dialog markup itself.
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(decoded))
	if err != nil {
		return "", err
	}
	if body := doc.Find("div.modal-body"); body.Length() > 0 {
		return strings.TrimSpace(body.Text()), nil
	}
	return strings.TrimSpace(doc.Text()), nil
}

// cleanDialogText flattens the dialog's HTML fragment into one comma
// separated line, matching how the table would have shown the cell.
func cleanDialogText(content string) string {
	content = brTagRe.ReplaceAllString(content, ", ")
	content = htmlTagRe.ReplaceAllString(content, "")
	content = strings.ReplaceAll(content, `\n`, ", ")
	content = strings.ReplaceAll(content, "\n", ", ")
	content = duplicateCommaRe.ReplaceAllString(content, ",")
	content = trailingCommaRe.ReplaceAllString(content, "")
	return strings.TrimSpace(content)
}
