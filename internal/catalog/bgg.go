package catalog

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const defaultBaseURL = "https://boardgamegeek.com/xmlapi2"

// SearchResult is one match from the BoardGameGeek search endpoint.
type SearchResult struct {
	BGGID         int    `json:"bggId"`
	Name          string `json:"name"`
	YearPublished int    `json:"yearPublished,omitempty"`
}

// GameDetails is the subset of a BGG thing entry we care about when
// pre-filling a game definition.
type GameDetails struct {
	BGGID        int    `json:"bggId"`
	Name         string `json:"name"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
	MinPlayers   int    `json:"minPlayers,omitempty"`
	MaxPlayers   int    `json:"maxPlayers,omitempty"`
}

// Client talks to the BoardGameGeek XML API2.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient() *Client {
	return &Client{
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// NewClientWithBaseURL is used by tests to point at a local server.
func NewClientWithBaseURL(baseURL string) *Client {
	c := NewClient()
	c.baseURL = baseURL
	return c
}

// XML shapes for the API2 responses. BGG wraps everything in an
// <items> element; names carry a type attribute ("primary"/"alternate").
type searchItems struct {
	Items []searchItem `xml:"item"`
}

type searchItem struct {
	ID   int `xml:"id,attr"`
	Name struct {
		Value string `xml:"value,attr"`
	} `xml:"name"`
	YearPublished struct {
		Value int `xml:"value,attr"`
	} `xml:"yearpublished"`
}

type thingItems struct {
	Items []thingItem `xml:"item"`
}

type thingItem struct {
	ID        int    `xml:"id,attr"`
	Thumbnail string `xml:"thumbnail"`
	Names     []struct {
		Type  string `xml:"type,attr"`
		Value string `xml:"value,attr"`
	} `xml:"name"`
	MinPlayers struct {
		Value int `xml:"value,attr"`
	} `xml:"minplayers"`
	MaxPlayers struct {
		Value int `xml:"value,attr"`
	} `xml:"maxplayers"`
}

// Search queries the catalog for board games matching the given name.
func (c *Client) Search(ctx context.Context, query string) ([]SearchResult, error) {
	endpoint := fmt.Sprintf("%s/search?type=boardgame&query=%s", c.baseURL, url.QueryEscape(query))

	var parsed searchItems
	if err := c.get(ctx, endpoint, &parsed); err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		results = append(results, SearchResult{
			BGGID:         item.ID,
			Name:          item.Name.Value,
			YearPublished: item.YearPublished.Value,
		})
	}
	return results, nil
}

// Lookup fetches details for a single catalog entry.
func (c *Client) Lookup(ctx context.Context, bggID int) (*GameDetails, error) {
	endpoint := fmt.Sprintf("%s/thing?id=%s", c.baseURL, strconv.Itoa(bggID))

	var parsed thingItems
	if err := c.get(ctx, endpoint, &parsed); err != nil {
		return nil, err
	}
	if len(parsed.Items) == 0 {
		return nil, fmt.Errorf("catalog entry %d not found", bggID)
	}

	item := parsed.Items[0]
	details := &GameDetails{
		BGGID:        item.ID,
		ThumbnailURL: item.Thumbnail,
		MinPlayers:   item.MinPlayers.Value,
		MaxPlayers:   item.MaxPlayers.Value,
	}
	for _, name := range item.Names {
		if name.Type == "primary" {
			details.Name = name.Value
			break
		}
	}
	if details.Name == "" && len(item.Names) > 0 {
		details.Name = item.Names[0].Value
	}
	return details, nil
}

func (c *Client) get(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build catalog request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("catalog request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("catalog returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read catalog response: %w", err)
	}
	if err := xml.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse catalog response: %w", err)
	}
	return nil
}
