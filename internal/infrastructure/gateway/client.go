// Package gateway is the HTTP adapter for the external payment processor.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/commercekit/globalpay-reconciler/internal/application"
	"github.com/commercekit/globalpay-reconciler/internal/config"
)

type HTTPGatewayClient struct {
	baseURL    string
	appID      string
	httpClient *http.Client
}

func NewGatewayClient(cfg config.GatewayConfig, merchant config.MerchantConfig) application.GatewayClient {
	return &HTTPGatewayClient{
		baseURL: cfg.BaseURL,
		appID:   merchant.AppID,
		httpClient: &http.Client{
			Timeout: cfg.ConnTimeout,
		},
	}
}

func (c *HTTPGatewayClient) CreateHostedSession(ctx context.Context, req application.HostedSessionRequest) (*application.HostedSessionResponse, error) {
	url := fmt.Sprintf("%s/api/v1/hosted-sessions", c.baseURL)
	return sendRequest[application.HostedSessionRequest, application.HostedSessionResponse](c, ctx, http.MethodPost, url, &req)
}

func (c *HTTPGatewayClient) GetTransaction(ctx context.Context, txnID string) (*application.TransactionDetails, error) {
	url := fmt.Sprintf("%s/api/v1/transactions/%s", c.baseURL, txnID)
	return sendRequest[any, application.TransactionDetails](c, ctx, http.MethodGet, url, nil)
}

func (c *HTTPGatewayClient) Reverse(ctx context.Context, txnID string, amountCents int64) (*application.ReversalResponse, error) {
	url := fmt.Sprintf("%s/api/v1/transactions/%s/reversal", c.baseURL, txnID)
	req := reversalRequest{AmountCents: amountCents}
	return sendRequest[reversalRequest, application.ReversalResponse](c, ctx, http.MethodPost, url, &req)
}

func (c *HTTPGatewayClient) Void(ctx context.Context, txnID, reason string) (*application.ReversalResponse, error) {
	url := fmt.Sprintf("%s/api/v1/transactions/%s/void", c.baseURL, txnID)
	req := voidRequest{Reason: reason}
	return sendRequest[voidRequest, application.ReversalResponse](c, ctx, http.MethodPost, url, &req)
}

type reversalRequest struct {
	AmountCents int64 `json:"amount"`
}

type voidRequest struct {
	Reason string `json:"reason"`
}

func sendRequest[Req any, Resp any](c *HTTPGatewayClient, ctx context.Context, method, url string, reqBody *Req) (*Resp, error) {
	var bodyReader io.Reader
	if reqBody != nil {
		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("error marshalling json: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	if reqBody != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.appID != "" {
		httpReq.Header.Set("X-GP-App-Id", c.appID)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		var gwErrResp GatewayErrorResponse
		if err := json.Unmarshal(body, &gwErrResp); err != nil {
			return nil, fmt.Errorf("processor returned status %d: %s", resp.StatusCode, string(body))
		}
		return nil, &GatewayError{
			Code:       gwErrResp.Err,
			Message:    gwErrResp.Message,
			StatusCode: resp.StatusCode,
		}
	}

	var gwResp Resp
	if err := json.NewDecoder(resp.Body).Decode(&gwResp); err != nil {
		return nil, fmt.Errorf("error decoding json response: %w", err)
	}

	return &gwResp, nil
}
