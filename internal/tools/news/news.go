package news

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

// Client fetches company news from a NewsAPI-compatible endpoint.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
	log      *logger.Logger
}

// NewClient creates a news client from configuration.
func NewClient(cfg config.NewsConfig, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		http:     &http.Client{Timeout: timeout},
		log:      logger.Get().With("component", "news_client"),
	}
}

// NewCompanyNewsTool builds the tool that gives the news analyst recent
// headlines for a symbol. When no API key is configured it degrades to an
// explanatory message instead of failing, so the analyst can still produce
// a report.
func NewCompanyNewsTool(client *Client) tools.Tool {
	schema := tools.ObjectSchema(map[string]interface{}{
		"symbol":        tools.StringProperty("Ticker symbol or company name to search news for"),
		"lookback_days": tools.IntProperty("How many days back to search (default 7)"),
	}, []string{"symbol"})

	return tools.New(
		"get_company_news",
		"Fetch recent news headlines and summaries for a company",
		schema,
		func(ctx context.Context, args map[string]interface{}) (string, error) {
			symbol, _ := args["symbol"].(string)
			symbol = strings.TrimSpace(symbol)
			if symbol == "" {
				return "", errors.Wrap(errors.ErrInvalidInput, "symbol argument is required")
			}

			lookback := 7
			if v, ok := args["lookback_days"].(float64); ok && v > 0 {
				lookback = int(v)
			}

			return client.CompanyNews(ctx, symbol, lookback)
		},
	)
}

// CompanyNews returns formatted recent headlines for a symbol.
func (c *Client) CompanyNews(ctx context.Context, symbol string, lookbackDays int) (string, error) {
	if c.apiKey == "" {
		return fmt.Sprintf("News API is not configured. Unable to fetch news for %s.", symbol), nil
	}

	query := url.Values{}
	query.Set("q", symbol)
	query.Set("from", time.Now().AddDate(0, 0, -lookbackDays).Format("2006-01-02"))
	query.Set("sortBy", "publishedAt")
	query.Set("pageSize", "15")
	query.Set("language", "en")

	req, err := http.NewRequestWithContext(ctx, "GET", c.endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return "", errors.Wrap(err, "create news request")
	}
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "send news request")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "read news response")
	}
	if resp.StatusCode != http.StatusOK {
		return "", errors.Wrapf(errors.ErrExternal, "news API returned status %d: %s",
			resp.StatusCode, string(body))
	}

	var parsed struct {
		Articles []struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			PublishedAt string `json:"publishedAt"`
			Source      struct {
				Name string `json:"name"`
			} `json:"source"`
		} `json:"articles"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", errors.Wrap(err, "unmarshal news response")
	}

	if len(parsed.Articles) == 0 {
		return fmt.Sprintf("No recent news found for %s in the past %d days.", symbol, lookbackDays), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## Recent news for %s\n\n", symbol)
	for _, article := range parsed.Articles {
		fmt.Fprintf(&b, "### %s (%s, %s)\n", article.Title, article.Source.Name, article.PublishedAt)
		if article.Description != "" {
			b.WriteString(article.Description)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	c.log.Debugf("fetched %d articles for %s", len(parsed.Articles), symbol)
	return b.String(), nil
}
