package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ariefcatur/go-checkout-core.git/internal/apperr"
)

// HTTPClient: implementasi Service terhadap payment service eksternal.
type HTTPClient struct {
	BaseURL string
	HC      *http.Client
}

func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{BaseURL: baseURL, HC: &http.Client{Timeout: 5 * time.Second}}
}

func (c *HTTPClient) GetPayment(ctx context.Context, ref string) (Payment, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/payments/"+ref, nil)
	if err != nil {
		return Payment{}, err
	}
	resp, err := c.HC.Do(req)
	if err != nil {
		return Payment{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return Payment{}, apperr.Newf(apperr.KindNotFound, "payment not found: %s", ref)
	}
	if resp.StatusCode != http.StatusOK {
		return Payment{}, fmt.Errorf("payment service: unexpected status %d", resp.StatusCode)
	}
	var p Payment
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return Payment{}, fmt.Errorf("decode payment: %w", err)
	}
	p.Ref = ref
	return p, nil
}

func (c *HTTPClient) UpdatePaymentStatus(ctx context.Context, ref, status, actor string) error {
	body, _ := json.Marshal(map[string]string{"status": status, "actor": actor})
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, c.BaseURL+"/payments/"+ref+"/status", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HC.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("payment service: unexpected status %d", resp.StatusCode)
	}
	return nil
}
