package fx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// HTTPProvider reads the rate from a JSON endpoint.
type HTTPProvider struct {
	client *http.Client
	url    string
	field  string
}

// NewHTTPProvider builds a provider. field is a dot separated path into the
// response object, e.g. "promedio" or "data.rate".
func NewHTTPProvider(url, field string, timeout time.Duration) *HTTPProvider {
	return &HTTPProvider{client: &http.Client{Timeout: timeout}, url: url, field: field}
}

// Fetch requests the endpoint and extracts the configured numeric field.
func (p *HTTPProvider) Fetch(ctx context.Context) (decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return decimal.Zero, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := p.client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("fx: fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("fx: fetch: unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return decimal.Zero, fmt.Errorf("fx: read: %w", err)
	}
	return extract(body, p.field)
}

func extract(body []byte, field string) (decimal.Decimal, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return decimal.Zero, fmt.Errorf("fx: decode: %w", err)
	}
	node := doc
	for _, part := range strings.Split(field, ".") {
		obj, ok := node.(map[string]any)
		if !ok {
			return decimal.Zero, fmt.Errorf("fx: field %q not found", field)
		}
		if node, ok = obj[part]; !ok {
			return decimal.Zero, fmt.Errorf("fx: field %q not found", field)
		}
	}
	switch v := node.(type) {
	case json.Number:
		return decimal.NewFromString(v.String())
	case string:
		return decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(v), ",", "."))
	default:
		return decimal.Zero, fmt.Errorf("fx: field %q is not numeric", field)
	}
}
