package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// ChartClient implements Provider against a Yahoo-style chart API. Codes are
// bare exchange codes; the ".T" suffix is appended on request and stripped
// again by the orchestrator when building snapshots.
type ChartClient struct {
	client  *http.Client
	baseURL string
	rng     string
}

// NewChartClient creates a chart API client
func NewChartClient(baseURL, rng string, timeout time.Duration) *ChartClient {
	return &ChartClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		rng:     rng,
	}
}

// Name returns the provider name
func (c *ChartClient) Name() string { return "chart-api" }

// chartResponse mirrors the chart API payload. OHLCV arrays use pointers so
// the upstream's explicit nulls survive decoding.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol string `json:"symbol"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// FetchDaily fetches the daily chart for one stock code
func (c *ChartClient) FetchDaily(ctx context.Context, code string) (*Chart, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=%s",
		c.baseURL, url.PathEscape(code+".T"), c.rng)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chart fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("chart read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("chart: status %d", resp.StatusCode)
	}

	var parsed chartResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("chart decode: %w", err)
	}
	if parsed.Chart.Error != nil {
		return nil, fmt.Errorf("chart: %s: %s", parsed.Chart.Error.Code, parsed.Chart.Error.Description)
	}
	if len(parsed.Chart.Result) == 0 || len(parsed.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, ErrNoData
	}

	result := parsed.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	return &Chart{
		Symbol:     result.Meta.Symbol,
		Timestamps: result.Timestamp,
		Open:       quote.Open,
		High:       quote.High,
		Low:        quote.Low,
		Close:      quote.Close,
		Volume:     quote.Volume,
	}, nil
}
