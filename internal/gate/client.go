// Package gate talks to the ESP32 barrier controller over its local
// HTTP interface.
package gate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Gate actions understood by the controller firmware.
const (
	ActionOpenEntry = "open_gate_entry"
	ActionOpenExit  = "open_gate_exit"
)

// Signal is the payload sent to the controller. SpotID, LogID and Fee
// are optional context the firmware shows on its display.
type Signal struct {
	LicensePlate string `json:"licensePlate"`
	UserID       uint64 `json:"userId"`
	Action       string `json:"action"`
	SpotID       uint64 `json:"spotId,omitempty"`
	LogID        uint64 `json:"logId,omitempty"`
	Fee          int64  `json:"fee,omitempty"`
}

// Client posts gate signals to the ESP32. The controller answers on a
// best-effort local network, so every call carries a hard timeout and a
// failed call must be treated as "gate did not open".
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a client for the controller at host:port. The 10s
// timeout covers the barrier's full open cycle; the firmware replies
// only after the motor has actually moved.
func NewClient(host string, port int) *Client {
	return &Client{
		baseURL: fmt.Sprintf("http://%s:%d", host, port),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Send posts a signal and reports whether the controller acknowledged
// it. Any transport error, timeout or non-2xx status counts as refusal.
func (c *Client) Send(ctx context.Context, sig Signal) error {
	body, err := json.Marshal(sig)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/backend_signal", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("gate unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("gate refused signal: status %d", resp.StatusCode)
	}
	return nil
}

// Sender is the single-method interface handlers depend on, so tests
// can swap in a stub without a live controller.
type Sender interface {
	Send(ctx context.Context, sig Signal) error
}
