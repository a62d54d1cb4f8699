package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveURL(t *testing.T) {
	assert.Equal(t, "https://example.com/foo/bar", ResolveURL("/foo/bar", "https://example.com"))
	assert.Equal(t, "https://example.com/foo/bar", ResolveURL("foo/bar", "https://example.com/"))
	assert.Equal(t, "https://x.com/a", ResolveURL("https://x.com/a", "https://example.com"))
	assert.Equal(t, "", ResolveURL("", "https://example.com"))
	assert.Equal(t, "", ResolveURL("   ", "https://example.com"))
}

func TestImageToken_RoundTrip(t *testing.T) {
	src := "https://cdn.example.org/wp-content/uploads/2025/03/cartel.jpg?w=800&h=600"
	token := EncodeImageToken(src)
	assert.NotContains(t, token, "example.org")
	assert.NotContains(t, token, "=")

	got, err := DecodeImageToken(token)
	require.NoError(t, err)
	assert.Equal(t, src, got)
}

func TestDecodeImageToken_Errors(t *testing.T) {
	_, err := DecodeImageToken("%zz")
	assert.Error(t, err)

	_, err = DecodeImageToken("not base64!!")
	assert.Error(t, err)

	_, err = DecodeImageToken(EncodeImageToken("file:///etc/passwd"))
	assert.Error(t, err)
}

func TestEncodeImageToken_Empty(t *testing.T) {
	assert.Equal(t, "", EncodeImageToken(""))
	assert.Equal(t, "", RelayURL("https://api.example.com/img-proxy", ""))
}

func TestRelayURL(t *testing.T) {
	assert.Equal(t, "https://api.example.com/img-proxy?src=abc", RelayURL("https://api.example.com/img-proxy", "abc"))
	assert.Equal(t, "https://api.example.com/p?v=1&src=abc", RelayURL("https://api.example.com/p?v=1", "abc"))
}

func TestKeepExternalURL(t *testing.T) {
	ig := "https://www.instagram.com/"
	assert.Equal(t, "https://www.instagram.com/sala", KeepExternalURL("https://www.instagram.com/sala", ig))
	assert.Equal(t, "", KeepExternalURL("https://facebook.com/sala", ig))
	assert.Equal(t, "", KeepExternalURL("", ig))
}
