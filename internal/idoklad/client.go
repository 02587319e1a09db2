// Package idoklad is a thin client for the iDoklad v2 accounting API.
// Authentication uses a process-wide TokenCache; a 401 response triggers
// exactly one re-authentication and one retry of the original request
// before the failure is reported to the caller.
package idoklad

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

// LineItem is one invoice line as the remote API consumes it.
type LineItem struct {
	Name      string          `json:"Name"`
	Unit      string          `json:"Unit"`
	Amount    int             `json:"Amount"`
	UnitPrice decimal.Decimal `json:"UnitPrice"`
}

// Result is the outcome of an invoice submission.
type Result struct {
	StatusCode int
	InvoiceID  int
}

// OK reports whether the submission succeeded.
func (r Result) OK() bool {
	return r.StatusCode == http.StatusOK
}

// Contact mirrors the remote contact record fields the backend cares about.
type Contact struct {
	ID                   int    `json:"Id"`
	CompanyName          string `json:"CompanyName"`
	IdentificationNumber string `json:"IdentificationNumber"`
	Email                string `json:"Email"`
	Street               string `json:"Street"`
	City                 string `json:"City"`
	PostalCode           string `json:"PostalCode"`
}

// Config carries the remote endpoints and OAuth client credentials.
type Config struct {
	APIURL       string
	AuthURL      string
	ClientID     string
	ClientSecret string
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	tokens     *TokenCache
}

func NewClient(cfg Config, tokens *TokenCache) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		tokens:     tokens,
	}
}

// do sends an authorized request. On a 401 it clears the token cache,
// re-authenticates and retries the request once.
func (cl *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	send := func(token string) (*http.Response, error) {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, cl.cfg.APIURL+path, reader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		return cl.httpClient.Do(req)
	}

	token, err := cl.token(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := send(token)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		cl.tokens.Clear()
		token, err = cl.token(ctx)
		if err != nil {
			return nil, err
		}
		resp, err = send(token)
		if err != nil {
			return nil, err
		}
	}

	return resp, nil
}

// getJSON performs an authorized GET and decodes the response body.
func (cl *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	resp, err := cl.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s returned status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// PostInvoice submits one issued invoice for the given remote contact.
// The payload starts from the remote default-invoice template, so fields
// this backend does not manage keep the account's defaults.
func (cl *Client) PostInvoice(ctx context.Context, contactID int, lines []LineItem, description string) (Result, error) {
	var invoice map[string]interface{}
	if err := cl.getJSON(ctx, "/api/v2/IssuedInvoices/Default", &invoice); err != nil {
		return Result{}, fmt.Errorf("failed to load default invoice: %w", err)
	}

	invoice["PurchaserId"] = contactID
	invoice["Description"] = description

	// The template ships with one placeholder item carrying the account
	// defaults; each line is layered over a copy of it.
	var template map[string]interface{}
	if items, ok := invoice["IssuedInvoiceItems"].([]interface{}); ok && len(items) > 0 {
		template, _ = items[0].(map[string]interface{})
	}

	payloadItems := make([]interface{}, 0, len(lines))
	for _, line := range lines {
		item := make(map[string]interface{}, len(template)+4)
		for k, v := range template {
			item[k] = v
		}
		item["Name"] = line.Name
		item["Unit"] = line.Unit
		item["Amount"] = line.Amount
		item["UnitPrice"] = line.UnitPrice
		payloadItems = append(payloadItems, item)
	}
	invoice["IssuedInvoiceItems"] = payloadItems

	body, err := json.Marshal(invoice)
	if err != nil {
		return Result{}, err
	}

	resp, err := cl.do(ctx, http.MethodPost, "/api/v2/IssuedInvoices", body)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	result := Result{StatusCode: resp.StatusCode}
	if resp.StatusCode == http.StatusOK {
		var created struct {
			ID int `json:"Id"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&created); err == nil {
			result.InvoiceID = created.ID
		}
	}
	return result, nil
}

// Contacts lists all contacts in the remote account.
func (cl *Client) Contacts(ctx context.Context) ([]Contact, error) {
	var body struct {
		Data []Contact `json:"Data"`
	}
	if err := cl.getJSON(ctx, "/api/v2/Contacts", &body); err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	return body.Data, nil
}

// PostContact creates a remote contact from the default-contact template
// and returns its remote id.
func (cl *Client) PostContact(ctx context.Context, contact Contact) (int, error) {
	var payload map[string]interface{}
	if err := cl.getJSON(ctx, "/api/v2/Contacts/Default", &payload); err != nil {
		return 0, fmt.Errorf("failed to load default contact: %w", err)
	}

	payload["CompanyName"] = contact.CompanyName
	payload["IdentificationNumber"] = contact.IdentificationNumber
	payload["Email"] = contact.Email
	payload["Street"] = contact.Street
	payload["City"] = contact.City
	payload["PostalCode"] = contact.PostalCode

	body, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}

	resp, err := cl.do(ctx, http.MethodPost, "/api/v2/Contacts", body)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("POST /api/v2/Contacts returned status %d", resp.StatusCode)
	}

	var created struct {
		ID int `json:"Id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return 0, fmt.Errorf("failed to decode created contact: %w", err)
	}
	return created.ID, nil
}

// PutContact pushes updated fields for an existing remote contact. The
// current remote record is fetched first so unmanaged fields survive.
func (cl *Client) PutContact(ctx context.Context, contact Contact) error {
	var remote map[string]interface{}
	path := fmt.Sprintf("/api/v2/Contacts/%d", contact.ID)
	if err := cl.getJSON(ctx, path, &remote); err != nil {
		return fmt.Errorf("failed to load contact %d: %w", contact.ID, err)
	}

	remote["CompanyName"] = contact.CompanyName
	if contact.Street != "" {
		remote["Street"] = contact.Street
	}
	if contact.City != "" {
		remote["City"] = contact.City
	}
	if contact.PostalCode != "" {
		remote["PostalCode"] = contact.PostalCode
	}

	body, err := json.Marshal(remote)
	if err != nil {
		return err
	}

	resp, err := cl.do(ctx, http.MethodPut, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("PUT %s returned status %d", path, resp.StatusCode)
	}
	return nil
}
