package social

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"manbo/internal/adapters/config"
	"manbo/internal/tools"
	"manbo/pkg/errors"
	"manbo/pkg/logger"
)

// Posts scoring below this are treated as noise and skipped.
const minPostScore = 5

// Client fetches retail-investor discussions from Reddit's public search
// endpoint.
type Client struct {
	endpoint  string
	userAgent string
	http      *http.Client
	log       *logger.Logger
}

// NewClient creates a social sentiment client from configuration.
func NewClient(cfg config.SocialConfig, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		endpoint:  cfg.Endpoint,
		userAgent: cfg.UserAgent,
		http:      &http.Client{Timeout: timeout},
		log:       logger.Get().With("component", "social_client"),
	}
}

// NewSocialSentimentTool builds the tool that gives the social analyst
// recent retail discussions about a symbol.
func NewSocialSentimentTool(client *Client) tools.Tool {
	schema := tools.ObjectSchema(map[string]interface{}{
		"symbol": tools.StringProperty("Ticker symbol to search discussions for"),
	}, []string{"symbol"})

	return tools.New(
		"get_social_sentiment",
		"Fetch recent social media discussions about a company from Reddit",
		schema,
		func(ctx context.Context, args map[string]interface{}) (string, error) {
			symbol, _ := args["symbol"].(string)
			symbol = strings.TrimSpace(symbol)
			if symbol == "" {
				return "", errors.Wrap(errors.ErrInvalidInput, "symbol argument is required")
			}

			return client.Discussions(ctx, symbol)
		},
	)
}

// Discussions returns formatted recent discussions mentioning a symbol.
func (c *Client) Discussions(ctx context.Context, symbol string) (string, error) {
	query := url.Values{}
	query.Set("q", symbol)
	query.Set("sort", "relevance")
	query.Set("t", "week")
	query.Set("limit", "15")

	req, err := http.NewRequestWithContext(ctx, "GET", c.endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return "", errors.Wrap(err, "create social search request")
	}
	// Reddit rejects requests without an identifying user agent.
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "send social search request")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "read social search response")
	}
	if resp.StatusCode != http.StatusOK {
		return "", errors.Wrapf(errors.ErrExternal, "social search returned status %d", resp.StatusCode)
	}

	var parsed struct {
		Data struct {
			Children []struct {
				Data struct {
					Title     string  `json:"title"`
					Score     float64 `json:"score"`
					Subreddit string  `json:"subreddit"`
					SelfText  string  `json:"selftext"`
				} `json:"data"`
			} `json:"children"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", errors.Wrap(err, "unmarshal social search response")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## Social discussions for %s\n\n", symbol)

	found := 0
	for _, child := range parsed.Data.Children {
		post := child.Data
		if post.Score < minPostScore {
			continue
		}

		content := post.SelfText
		if len(content) > 800 {
			content = content[:800] + "..."
		}
		if content == "" {
			content = "(link post)"
		}

		fmt.Fprintf(&b, "### %s (score %d, r/%s)\n%s\n\n",
			post.Title, int(post.Score), post.Subreddit, content)
		found++
	}

	if found == 0 {
		return fmt.Sprintf("No significant social discussions found for %s in the past week.", symbol), nil
	}

	c.log.Debugf("fetched %d discussions for %s", found, symbol)
	return b.String(), nil
}
