package fetcher

import (
	"context"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

// StaticFetcher issues a GET and parses the body. It never retries.
type StaticFetcher struct {
	client *resty.Client
}

func NewStaticFetcher(client *resty.Client) *StaticFetcher {
	return &StaticFetcher{client: client}
}

func (f *StaticFetcher) Fetch(ctx context.Context, url string) (*goquery.Document, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		SetHeader("Accept", "text/html,application/xhtml+xml").
		Get(url)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		return nil, &FetchError{URL: url, Status: resp.StatusCode()}
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, &FetchError{URL: url, Status: resp.StatusCode(), Err: err}
	}
	return doc, nil
}
