// Package feed fetches upstream price history and normalizes it into the 24
// hourly closing prices of a UTC calendar day.
package feed

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	xhttp "HourCast/pkg/http"
)

// Shape selects which upstream payload layout the provider speaks.
const (
	ShapeSamples = "samples" // list of (timestamp, price) points
	ShapeCandles = "candles" // fixed-width OHLC candles; close is taken
)

// Sample is one raw price observation.
type Sample struct {
	At    time.Time
	Price float64
}

// Source returns raw price observations covering the given UTC day.
type Source interface {
	Samples(ctx context.Context, day time.Time) ([]Sample, error)
}

// HistoryClient pulls price history over a single HTTP GET, in either of the
// two shapes providers are known to return.
type HistoryClient struct {
	http    *xhttp.Client
	baseURL string
	coinID  string
	vs      string
	shape   string
}

// NewHistoryClient creates an upstream history client.
func NewHistoryClient(baseURL, coinID, vsCurrency, shape string, timeout time.Duration) *HistoryClient {
	return &HistoryClient{
		http:    xhttp.NewClient(xhttp.WithTimeout(timeout)),
		baseURL: baseURL,
		coinID:  coinID,
		vs:      vsCurrency,
		shape:   shape,
	}
}

// chartResponse is the samples-shaped payload: {"prices": [[ms, price], ...]}.
type chartResponse struct {
	Prices [][]float64 `json:"prices"`
}

// Samples fetches the day's observations and returns them in chronological
// order.
func (c *HistoryClient) Samples(ctx context.Context, day time.Time) ([]Sample, error) {
	from := day.UTC()
	to := from.Add(24 * time.Hour)

	var out []Sample
	switch c.shape {
	case ShapeCandles:
		// [[ms, open, high, low, close], ...]
		var rows [][]float64
		err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
			Method: xhttp.MethodGet,
			URL:    fmt.Sprintf("%s/coins/%s/ohlc", c.baseURL, c.coinID),
			QueryParams: map[string][]string{
				"vs_currency": {c.vs},
				"days":        {"1"},
			},
		}, &rows)
		if err != nil {
			return nil, fmt.Errorf("fetch candles: %w", err)
		}
		for _, r := range rows {
			if len(r) < 5 {
				continue
			}
			out = append(out, Sample{At: time.UnixMilli(int64(r[0])).UTC(), Price: r[4]})
		}
	default:
		var body chartResponse
		err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
			Method: xhttp.MethodGet,
			URL:    fmt.Sprintf("%s/coins/%s/market_chart/range", c.baseURL, c.coinID),
			QueryParams: map[string][]string{
				"vs_currency": {c.vs},
				"from":        {strconv.FormatInt(from.Unix(), 10)},
				"to":          {strconv.FormatInt(to.Unix(), 10)},
			},
		}, &body)
		if err != nil {
			return nil, fmt.Errorf("fetch samples: %w", err)
		}
		for _, r := range body.Prices {
			if len(r) < 2 {
				continue
			}
			out = append(out, Sample{At: time.UnixMilli(int64(r[0])).UTC(), Price: r[1]})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].At.Before(out[j].At) })
	return out, nil
}
