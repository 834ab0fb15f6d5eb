package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"
)

const flickrEndpoint = "https://www.flickr.com/services/rest/"

// FlickrSource implements app.ImageSource: a random aviation photo from a
// fixed group. Purely decorative, so every failure degrades to "no image".
type FlickrSource struct {
	client  *http.Client
	apiKey  string
	groupID string

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewFlickrSource(apiKey, groupID string) *FlickrSource {
	return &FlickrSource{
		client:  &http.Client{Timeout: 10 * time.Second},
		apiKey:  apiKey,
		groupID: groupID,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

type flickrSearchResponse struct {
	Photos struct {
		Photo []struct {
			ID     string `json:"id"`
			Secret string `json:"secret"`
			Server string `json:"server"`
			Farm   int    `json:"farm"`
		} `json:"photo"`
	} `json:"photos"`
}

func (s *FlickrSource) FetchImageURL(ctx context.Context) (string, error) {
	if s.apiKey == "" {
		return "", nil
	}

	params := url.Values{}
	params.Set("method", "flickr.photos.search")
	params.Set("api_key", s.apiKey)
	params.Set("group_id", s.groupID)
	params.Set("format", "json")
	params.Set("nojsoncallback", "1")
	params.Set("per_page", "50")
	params.Set("page", strconv.Itoa(s.intn(10)+1))
	params.Set("sort", "relevance")
	params.Set("content_type", "1")
	params.Set("media", "photos")
	params.Set("safe_search", "1")
	params.Set("license", "1,2,4,5,7,9,10")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, flickrEndpoint+"?"+params.Encode(), nil)
	if err != nil {
		return "", err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("flickr request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("flickr request: unexpected status %d", resp.StatusCode)
	}

	var payload flickrSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("flickr response: %w", err)
	}
	photos := payload.Photos.Photo
	if len(photos) == 0 {
		return "", nil
	}

	photo := photos[s.intn(len(photos))]
	return fmt.Sprintf("https://farm%d.staticflickr.com/%s/%s_%s_b.jpg", photo.Farm, photo.Server, photo.ID, photo.Secret), nil
}

func (s *FlickrSource) intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.Intn(n)
}
