package httputil

import (
	"time"

	"github.com/go-resty/resty/v2"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

type Clients struct {
	// Scraping talks to target sites and the image relay upstream.
	Scraping *resty.Client

	// API talks to the geocoder.
	API *resty.Client
}

func NewClients() *Clients {
	scraping := resty.New().
		SetTimeout(15*time.Second).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept-Language", "es-ES,es;q=0.9").
		SetRetryCount(0)

	api := resty.New().
		SetTimeout(30*time.Second).
		SetHeader("User-Agent", "agenda-scrooper/1.0").
		SetRetryCount(2).
		SetRetryWaitTime(time.Second)

	return &Clients{
		Scraping: scraping,
		API:      api,
	}
}
