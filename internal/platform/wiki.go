package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"brevitybot/internal/domain"
)

// DefaultWikiURL queries the wiki search API for the brevity-code page family.
const DefaultWikiURL = "https://en.wikipedia.org/w/api.php?action=query&list=search&srsearch=Multiservice%20tactical%20brevity%20code&format=json"

var tagPattern = regexp.MustCompile(`<[^>]+>`)

// WikiSource implements app.TermSource against the wiki search API.
type WikiSource struct {
	client *http.Client
	url    string
}

func NewWikiSource(url string) *WikiSource {
	if url == "" {
		url = DefaultWikiURL
	}
	return &WikiSource{
		client: &http.Client{Timeout: 15 * time.Second},
		url:    url,
	}
}

type wikiSearchResponse struct {
	Query struct {
		Search []struct {
			Title   string `json:"title"`
			Snippet string `json:"snippet"`
		} `json:"search"`
	} `json:"query"`
}

func (s *WikiSource) FetchTerms(ctx context.Context) ([]domain.Term, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wiki request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("wiki request: unexpected status %d", resp.StatusCode)
	}

	var payload wikiSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("wiki response: %w", err)
	}

	terms := make([]domain.Term, 0, len(payload.Query.Search))
	for _, entry := range payload.Query.Search {
		key := cleanTerm(entry.Title)
		if key == "" {
			continue
		}
		terms = append(terms, domain.Term{
			Key:  key,
			Text: strings.TrimSpace(tagPattern.ReplaceAllString(entry.Snippet, "")),
		})
	}
	return terms, nil
}

var bracketPattern = regexp.MustCompile(`\s*\[.*?\]`)

// cleanTerm strips the bracketed qualifiers and asterisks the source page
// attaches to some entries.
func cleanTerm(term string) string {
	cleaned := bracketPattern.ReplaceAllString(term, "")
	cleaned = strings.ReplaceAll(cleaned, "*", "")
	return strings.TrimSpace(cleaned)
}
