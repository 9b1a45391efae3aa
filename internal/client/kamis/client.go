package kamis

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"

	"agrimarket/internal/config"
)

// retryable are the statuses worth another attempt; everything else fails the
// request immediately.
var retryable = map[int]struct{}{
	http.StatusTooManyRequests:     {},
	http.StatusInternalServerError: {},
	http.StatusBadGateway:          {},
	http.StatusServiceUnavailable:  {},
	http.StatusGatewayTimeout:      {},
}

// Client fetches paginated market-price pages from KAMIS. Only GET requests
// are issued, so every request is safe to retry.
type Client struct {
	http    *resty.Client
	baseURL string
	perPage int
}

func NewClient(cfg config.SourceConfig) *Client {
	hc := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(cfg.RetryWaitTime).
		SetRetryMaxWaitTime(cfg.RetryMaxWaitTime).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			if err != nil || resp == nil {
				return false
			}
			_, ok := retryable[resp.StatusCode()]
			return ok
		})
	if cfg.InsecureSkipVerify {
		// The KAMIS certificate chain does not validate.
		hc.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	perPage := cfg.PerPage
	if perPage <= 0 {
		perPage = 3000
	}
	return &Client{
		http:    hc,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		perPage: perPage,
	}
}

func (c *Client) PerPage() int {
	return c.perPage
}

// PageURL builds the per-item page URL. The first page carries no offset
// segment; later pages append "/{offset}" before the query string.
func (c *Client) PageURL(commodity, offset int) string {
	suffix := ""
	if offset > 0 {
		suffix = fmt.Sprintf("/%d", offset)
	}
	return fmt.Sprintf("%s/market%s?product=%d&per_page=%d", c.baseURL, suffix, commodity, c.perPage)
}

// FetchPage retrieves one page for a commodity and returns its first HTML
// table. A response without a table is an error: KAMIS renders an empty page
// once pagination runs past the end of the data.
func (c *Client) FetchPage(ctx context.Context, commodity, offset int) (Table, error) {
	url := c.PageURL(commodity, offset)
	resp, err := c.http.R().SetContext(ctx).Get(url)
	if err != nil {
		return Table{}, fmt.Errorf("get %s: %w", url, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return Table{}, fmt.Errorf("get %s: status %d", url, resp.StatusCode())
	}
	tbl, err := ParseFirstTable(strings.NewReader(resp.String()))
	if err != nil {
		return Table{}, fmt.Errorf("parse %s: %w", url, err)
	}
	return tbl, nil
}
