// internal/clients/circulation_client.go
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"hinlibs/internal/circulation"
)

// APIError is returned when the server answers with an unexpected status.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("unexpected status code %d: %s", e.StatusCode, e.Message)
}

// AuditReport is the body of GET /audit.
type AuditReport struct {
	Consistent      bool                        `json:"consistent"`
	Inconsistencies []circulation.Inconsistency `json:"inconsistencies"`
}

type CirculationClient struct {
	baseURL string
	http    *http.Client
}

// NewCirculationClient talks to a hinlibs server at baseURL. A nil httpClient
// means http.DefaultClient.
func NewCirculationClient(baseURL string, httpClient *http.Client) *CirculationClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &CirculationClient{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

func (c *CirculationClient) Health(ctx context.Context) error {
	return do(ctx, c.http, http.MethodGet, c.baseURL+"/healthz", nil, http.StatusOK, nil)
}

func (c *CirculationClient) Audit(ctx context.Context) (*AuditReport, error) {
	var report AuditReport
	if err := do(ctx, c.http, http.MethodGet, c.baseURL+"/audit", nil, http.StatusOK, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

func (c *CirculationClient) Checkout(ctx context.Context, patron string, itemID int) (*circulation.Checkout, error) {
	var checkout circulation.Checkout
	if err := do(ctx, c.http, http.MethodPost, c.baseURL+"/circulation/checkout", patronItem(patron, itemID), http.StatusCreated, &checkout); err != nil {
		return nil, err
	}
	return &checkout, nil
}

func (c *CirculationClient) Return(ctx context.Context, patron string, itemID int) error {
	return do(ctx, c.http, http.MethodPost, c.baseURL+"/circulation/return", patronItem(patron, itemID), http.StatusOK, nil)
}

func (c *CirculationClient) PlaceHold(ctx context.Context, patron string, itemID int) (int, error) {
	var resp struct {
		Position int `json:"position"`
	}
	if err := do(ctx, c.http, http.MethodPost, c.baseURL+"/holds", patronItem(patron, itemID), http.StatusCreated, &resp); err != nil {
		return 0, err
	}
	return resp.Position, nil
}

func (c *CirculationClient) CancelHold(ctx context.Context, patron string, itemID int) error {
	return do(ctx, c.http, http.MethodDelete, c.baseURL+"/holds", patronItem(patron, itemID), http.StatusNoContent, nil)
}

func (c *CirculationClient) HoldPosition(ctx context.Context, patron string, itemID int) (int, error) {
	q := url.Values{"patron": {patron}, "item_id": {strconv.Itoa(itemID)}}
	var resp struct {
		Position int `json:"position"`
	}
	if err := do(ctx, c.http, http.MethodGet, c.baseURL+"/holds/position?"+q.Encode(), nil, http.StatusOK, &resp); err != nil {
		return 0, err
	}
	return resp.Position, nil
}

func patronItem(patron string, itemID int) any {
	return map[string]any{"patron": patron, "item_id": itemID}
}

// do sends body as JSON and decodes the response into out when it is not nil.
func do(ctx context.Context, client *http.Client, method, target string, body any, want int, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewBuffer(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
