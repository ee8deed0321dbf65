package works

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/kakehashi/pkg/utils/safe"
)

// DefaultAPIBaseURL is the base URL of the LINE WORKS API 2.0
const DefaultAPIBaseURL = "https://www.worksapis.com/v1.0"

// Directory queries user profiles from the LINE WORKS directory API
type Directory struct {
	baseURL    string
	httpClient *http.Client
}

// DirectoryOption is a functional option for Directory
type DirectoryOption func(*Directory)

// WithAPIBaseURL overrides the API base URL
func WithAPIBaseURL(baseURL string) DirectoryOption {
	return func(x *Directory) {
		x.baseURL = baseURL
	}
}

// WithDirectoryHTTPClient overrides the HTTP client
func WithDirectoryHTTPClient(client *http.Client) DirectoryOption {
	return func(x *Directory) {
		x.httpClient = client
	}
}

// NewDirectory creates a Directory client
func NewDirectory(opts ...DirectoryOption) *Directory {
	x := &Directory{
		baseURL:    DefaultAPIBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}

	for _, opt := range opts {
		opt(x)
	}

	return x
}

// DisplayName fetches the display name of a user. It returns an empty string
// without error when the profile has no display name.
func (x *Directory) DisplayName(ctx context.Context, accessToken, userID string) (string, error) {
	endpoint := x.baseURL + "/users/" + url.PathEscape(userID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", goerr.Wrap(err, "failed to create user lookup request")
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := x.httpClient.Do(req)
	if err != nil {
		return "", goerr.Wrap(err, "failed to request user profile", goerr.V("user_id", userID))
	}
	defer safe.Close(ctx, resp.Body)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", goerr.Wrap(err, "failed to read user profile response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", goerr.New("user profile endpoint returned an error",
			goerr.V("status", resp.StatusCode),
			goerr.V("user_id", userID),
			goerr.V("body", string(body)),
		)
	}

	var profile struct {
		UserName struct {
			DisplayName string `json:"displayName"`
		} `json:"userName"`
	}
	if err := json.Unmarshal(body, &profile); err != nil {
		return "", goerr.Wrap(err, "failed to parse user profile response")
	}

	return profile.UserName.DisplayName, nil
}
