// Package payout executes withdrawals against the Dogecoin node and feeds
// the outcomes back into the ledger.
package payout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// Client sends coins to an address and returns the payout reference.
type Client interface {
	Send(ctx context.Context, address string, amount decimal.Decimal) (string, error)
}

// RPCClient talks JSON-RPC 1.0 to a Dogecoin Core node.
type RPCClient struct {
	URL        string
	User       string
	Password   string
	HTTPClient *http.Client
}

// NewRPCClient builds a client with the given per-call timeout
func NewRPCClient(url, user, password string, timeout time.Duration) *RPCClient {
	return &RPCClient{
		URL:      url,
		User:     user,
		Password: password,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// RPCError is an error reported by the node.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Send calls sendtoaddress and returns the transaction id.
func (c *RPCClient) Send(ctx context.Context, address string, amount decimal.Decimal) (string, error) {
	var txid string
	// amount goes out as a JSON number with 8 decimals
	if err := c.call(ctx, "sendtoaddress", []any{address, json.RawMessage(amount.StringFixed(8))}, &txid); err != nil {
		return "", err
	}
	if txid == "" {
		return "", fmt.Errorf("sendtoaddress returned an empty txid")
	}
	return txid, nil
}

// GetBalance returns the node wallet balance.
func (c *RPCClient) GetBalance(ctx context.Context) (decimal.Decimal, error) {
	var raw json.Number
	if err := c.call(ctx, "getbalance", []any{}, &raw); err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(raw.String())
}

func (c *RPCClient) call(ctx context.Context, method string, params []any, out any) error {
	body, err := json.Marshal(rpcRequest{JSONRPC: "1.0", ID: "reward-ledger", Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.User, c.Password)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", method, err)
	}
	// the node answers RPC errors with HTTP 500 and a JSON body
	var decoded rpcResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("%s returned status %d: %s", method, resp.StatusCode, string(raw))
	}
	if decoded.Error != nil {
		return decoded.Error
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status %d", method, resp.StatusCode)
	}
	dec := json.NewDecoder(bytes.NewReader(decoded.Result))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s result: %w", method, err)
	}
	return nil
}
