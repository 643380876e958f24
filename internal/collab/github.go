package collab

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// GitHubHost is the concrete SourceHost backed by the GitHub REST API.
// It assumes Token is already a valid bearer token — no auth flow is
// implemented here, per the bootstrap-flow exclusion.
type GitHubHost struct {
	Token      string
	HTTPClient *http.Client
	BaseURL    string // overridable for tests; defaults to https://api.github.com
}

// NewGitHubHost returns a GitHubHost using token for authentication.
func NewGitHubHost(token string) *GitHubHost {
	return &GitHubHost{Token: token, HTTPClient: http.DefaultClient, BaseURL: "https://api.github.com"}
}

// ListCollaborators returns the usernames with at least push access to
// normalizedURL, which must be an "owner/repo" slug or a full git URL
// normalized down to owner/repo by the caller.
func (h *GitHubHost) ListCollaborators(ctx context.Context, normalizedURL string) ([]string, error) {
	ownerRepo := strings.TrimSuffix(normalizedURL, ".git")
	base := h.BaseURL
	if base == "" {
		base = "https://api.github.com"
	}
	endpoint := fmt.Sprintf("%s/repos/%s/collaborators?affiliation=all&per_page=100", base, ownerRepo)

	var usernames []string
	for endpoint != "" {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("collab: build collaborators request: %w", err)
		}
		req.Header.Set("Accept", "application/vnd.github+json")
		if h.Token != "" {
			req.Header.Set("Authorization", "Bearer "+h.Token)
		}

		client := h.HTTPClient
		if client == nil {
			client = http.DefaultClient
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("collab: list collaborators for %s: %w", ownerRepo, err)
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("collab: list collaborators for %s: unexpected status %d", ownerRepo, resp.StatusCode)
		}

		var page []struct {
			Login string `json:"login"`
		}
		decodeErr := json.NewDecoder(resp.Body).Decode(&page)
		next := parseNextLink(resp.Header.Get("Link"))
		resp.Body.Close()
		if decodeErr != nil {
			return nil, fmt.Errorf("collab: decode collaborators for %s: %w", ownerRepo, decodeErr)
		}
		for _, p := range page {
			usernames = append(usernames, p.Login)
		}
		endpoint = next
	}
	return usernames, nil
}

// parseNextLink extracts the "next" page URL from a GitHub-style RFC
// 5988 Link header, or "" if there is none.
func parseNextLink(header string) string {
	for _, part := range strings.Split(header, ",") {
		segs := strings.Split(part, ";")
		if len(segs) < 2 {
			continue
		}
		urlPart := strings.TrimSpace(segs[0])
		relPart := strings.TrimSpace(segs[1])
		if relPart != `rel="next"` {
			continue
		}
		u := strings.TrimPrefix(urlPart, "<")
		u = strings.TrimSuffix(u, ">")
		if parsed, err := url.Parse(u); err == nil {
			return parsed.String()
		}
	}
	return ""
}
