package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	x402 "github.com/algox402/algox402-go"
)

// DefaultTimeout bounds facilitator requests when no custom client is given.
const DefaultTimeout = 30 * time.Second

// FacilitatorClient calls a remote facilitator service over HTTP. It
// implements x402.PaymentProcessor.
type FacilitatorClient struct {
	baseURL    string
	httpClient *http.Client
}

// FacilitatorClientOption configures a FacilitatorClient.
type FacilitatorClientOption func(*FacilitatorClient)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(client *http.Client) FacilitatorClientOption {
	return func(c *FacilitatorClient) { c.httpClient = client }
}

// NewFacilitatorClient creates a client for the facilitator at baseURL.
func NewFacilitatorClient(baseURL string, opts ...FacilitatorClientOption) *FacilitatorClient {
	c := &FacilitatorClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Verify asks the facilitator to check a payment header against the
// requirements.
func (c *FacilitatorClient) Verify(ctx context.Context, paymentHeader string, requirements x402.PaymentRequirements) (x402.VerifyResponse, error) {
	request := x402.VerifyRequest{
		X402Version:         x402.X402Version,
		PaymentHeader:       paymentHeader,
		PaymentRequirements: requirements,
	}
	var response x402.VerifyResponse
	if err := c.post(ctx, "/verify", request, &response); err != nil {
		return x402.VerifyResponse{}, err
	}
	return response, nil
}

// Settle asks the facilitator to settle a payment.
func (c *FacilitatorClient) Settle(ctx context.Context, paymentHeader string, requirements x402.PaymentRequirements) (x402.SettleResponse, error) {
	request := x402.SettleRequest{
		X402Version:         x402.X402Version,
		PaymentHeader:       paymentHeader,
		PaymentRequirements: requirements,
	}
	var response x402.SettleResponse
	if err := c.post(ctx, "/settle", request, &response); err != nil {
		return x402.SettleResponse{}, err
	}
	return response, nil
}

// Supported lists the (scheme, network) pairs the facilitator can settle.
func (c *FacilitatorClient) Supported(ctx context.Context) (x402.SupportedResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/supported", nil)
	if err != nil {
		return x402.SupportedResponse{}, err
	}
	var response x402.SupportedResponse
	if err := c.do(req, &response); err != nil {
		return x402.SupportedResponse{}, err
	}
	return response, nil
}

func (c *FacilitatorClient) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *FacilitatorClient) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("facilitator request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("reading facilitator response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("facilitator returned %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding facilitator response: %w", err)
	}
	return nil
}
