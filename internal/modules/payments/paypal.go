package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

type PayPalConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	ReturnURL    string
	CancelURL    string
	HTTPClient   *http.Client
}

// PayPal drives the Orders v2 create/capture flow. Initiate creates an
// order and hands the approval link back to the client; Confirm captures
// the approved order.
type PayPal struct {
	cfg   PayPalConfig
	httpc *http.Client

	mu       sync.Mutex
	token    string
	tokenExp time.Time
}

func NewPayPal(cfg PayPalConfig) *PayPal {
	httpc := cfg.HTTPClient
	if httpc == nil {
		httpc = &http.Client{Timeout: 15 * time.Second}
	}
	return &PayPal{cfg: cfg, httpc: httpc}
}

func (p *PayPal) Name() string { return "paypal" }

func (p *PayPal) accessToken(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token != "" && time.Now().Before(p.tokenExp) {
		return p.token, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(p.cfg.BaseURL, "/")+"/v1/oauth2/token",
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(p.cfg.ClientID, p.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("paypal token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("paypal token: status %d: %s", resp.StatusCode, body)
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", err
	}

	p.token = tok.AccessToken
	// renew a minute early
	p.tokenExp = time.Now().Add(time.Duration(tok.ExpiresIn-60) * time.Second)
	return p.token, nil
}

func (p *PayPal) Initiate(ctx context.Context, in InitiateRequest) (InitiateResponse, error) {
	token, err := p.accessToken(ctx)
	if err != nil {
		return InitiateResponse{}, err
	}

	body := map[string]any{
		"intent": "CAPTURE",
		"purchase_units": []map[string]any{{
			"amount": map[string]any{
				"currency_code": in.Currency,
				"value":         in.Amount.StringFixed(2),
			},
		}},
		"application_context": map[string]any{
			"return_url": p.cfg.ReturnURL,
			"cancel_url": p.cfg.CancelURL,
		},
	}

	var out struct {
		ID    string `json:"id"`
		Links []struct {
			Rel  string `json:"rel"`
			Href string `json:"href"`
		} `json:"links"`
	}
	if err := p.postJSON(ctx, token, "/v2/checkout/orders", body, &out); err != nil {
		return InitiateResponse{}, err
	}
	if out.ID == "" {
		return InitiateResponse{}, fmt.Errorf("paypal create order: empty order id")
	}

	res := InitiateResponse{ExternalID: out.ID}
	for _, l := range out.Links {
		if l.Rel == "approve" {
			res.RedirectURL = l.Href
		}
	}
	return res, nil
}

func (p *PayPal) Confirm(ctx context.Context, in ConfirmRequest) (Outcome, error) {
	token, err := p.accessToken(ctx)
	if err != nil {
		return Outcome{}, err
	}

	var out struct {
		Status        string `json:"status"`
		PurchaseUnits []struct {
			Payments struct {
				Captures []struct {
					ID     string `json:"id"`
					Status string `json:"status"`
				} `json:"captures"`
			} `json:"payments"`
		} `json:"purchase_units"`
	}
	err = p.postJSON(ctx, token, "/v2/checkout/orders/"+in.ExternalID+"/capture", map[string]any{}, &out)
	if err != nil {
		return Outcome{Status: StatusFailed}, err
	}

	captureID := ""
	if len(out.PurchaseUnits) > 0 && len(out.PurchaseUnits[0].Payments.Captures) > 0 {
		captureID = out.PurchaseUnits[0].Payments.Captures[0].ID
	}

	switch out.Status {
	case "COMPLETED":
		return Outcome{Status: StatusSuccess, CaptureID: captureID}, nil
	case "PENDING", "PAYER_ACTION_REQUIRED":
		return Outcome{Status: StatusPending, CaptureID: captureID}, nil
	default:
		return Outcome{Status: StatusFailed, CaptureID: captureID}, nil
	}
}

func (p *PayPal) postJSON(ctx context.Context, token, path string, body any, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(p.cfg.BaseURL, "/")+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("paypal %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("paypal %s: status %d: %s", path, resp.StatusCode, b)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
