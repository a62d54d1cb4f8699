package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticFetcher_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<html><body><div class="items"><div class="item active"><h3>Uno</h3></div></div></body></html>`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewStaticFetcher(resty.New())

	doc, err := f.Fetch(context.Background(), srv.URL+"/ok")
	require.NoError(t, err)
	assert.Equal(t, "Uno", doc.Find(".items .item.active h3").Text())

	_, err = f.Fetch(context.Background(), srv.URL+"/missing")
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, http.StatusNotFound, fe.Status)
	assert.Contains(t, fe.Error(), "404")
}

func TestStaticFetcher_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewStaticFetcher(resty.New()).Fetch(context.Background(), url)
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Zero(t, fe.Status)
	assert.NotNil(t, fe.Unwrap())
}

func TestIsTimeout(t *testing.T) {
	te := &TimeoutError{Op: "wait for selector", Selector: ".x", Timeout: 2 * time.Second}
	assert.True(t, IsTimeout(fmt.Errorf("month Mar: %w", te)))
	assert.False(t, IsTimeout(errors.New("boom")))
	assert.Contains(t, te.Error(), `".x"`)
}

func TestQueryArgAndDecode(t *testing.T) {
	q := Query{Selector: "a.title", TextFrom: "h3", GroupBy: ".day", GroupAttr: "data-tribe-date", ExcludeGroups: []string{"2025-03-05"}, Limit: 3}
	arg := q.arg()
	assert.Equal(t, "a.title", arg["selector"])
	assert.Equal(t, []interface{}{"2025-03-05"}, arg["exclude"])
	assert.Equal(t, 3, arg["limit"])

	raw := []interface{}{
		map[string]interface{}{"text": "Jazz", "href": "https://e.com/jazz", "attr": "", "group": "2025-03-06"},
	}
	items, err := decodeItems(raw)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, QueryItem{Text: "Jazz", Href: "https://e.com/jazz", Group: "2025-03-06"}, items[0])

	items, err = decodeItems(nil)
	require.NoError(t, err)
	assert.Empty(t, items)
}
