package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchFixture = `<?xml version="1.0" encoding="utf-8"?>
<items total="2" termsofuse="https://boardgamegeek.com/xmlapi/termsofuse">
	<item type="boardgame" id="13">
		<name type="primary" value="CATAN"/>
		<yearpublished value="1995"/>
	</item>
	<item type="boardgame" id="27710">
		<name type="primary" value="Catan: Cities &amp; Knights"/>
		<yearpublished value="1998"/>
	</item>
</items>`

const thingFixture = `<?xml version="1.0" encoding="utf-8"?>
<items termsofuse="https://boardgamegeek.com/xmlapi/termsofuse">
	<item type="boardgame" id="13">
		<thumbnail>https://cf.geekdo-images.com/thumb/catan.jpg</thumbnail>
		<name type="alternate" sortindex="1" value="Die Siedler von Catan"/>
		<name type="primary" sortindex="1" value="CATAN"/>
		<minplayers value="3"/>
		<maxplayers value="4"/>
	</item>
</items>`

func TestSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "boardgame", r.URL.Query().Get("type"))
		assert.Equal(t, "catan", r.URL.Query().Get("query"))
		w.Write([]byte(searchFixture))
	}))
	defer server.Close()

	client := NewClientWithBaseURL(server.URL)
	results, err := client.Search(context.Background(), "catan")
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, 13, results[0].BGGID)
	assert.Equal(t, "CATAN", results[0].Name)
	assert.Equal(t, 1995, results[0].YearPublished)
	assert.Equal(t, 27710, results[1].BGGID)
}

func TestSearchNoMatches(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<?xml version="1.0" encoding="utf-8"?><items total="0"></items>`))
	}))
	defer server.Close()

	client := NewClientWithBaseURL(server.URL)
	results, err := client.Search(context.Background(), "no such game")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestLookup(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/thing", r.URL.Path)
		assert.Equal(t, "13", r.URL.Query().Get("id"))
		w.Write([]byte(thingFixture))
	}))
	defer server.Close()

	client := NewClientWithBaseURL(server.URL)
	details, err := client.Lookup(context.Background(), 13)
	require.NoError(t, err)

	assert.Equal(t, 13, details.BGGID)
	assert.Equal(t, "CATAN", details.Name, "should pick the primary name, not the alternate")
	assert.Equal(t, "https://cf.geekdo-images.com/thumb/catan.jpg", details.ThumbnailURL)
	assert.Equal(t, 3, details.MinPlayers)
	assert.Equal(t, 4, details.MaxPlayers)
}

func TestLookupNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<?xml version="1.0" encoding="utf-8"?><items></items>`))
	}))
	defer server.Close()

	client := NewClientWithBaseURL(server.URL)
	_, err := client.Lookup(context.Background(), 999999)
	assert.Error(t, err)
}

func TestLookupServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClientWithBaseURL(server.URL)
	_, err := client.Lookup(context.Background(), 13)
	assert.ErrorContains(t, err, "status 502")
}
