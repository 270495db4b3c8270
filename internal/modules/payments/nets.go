package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// How long a non-success status query is still treated as "not yet
// confirmed" rather than a genuine failure. The NETS query endpoint lags
// its webhook, so a slow success can be misclassified past this window;
// that trade bounds the user-facing wait.
const netsPendingWindow = 20 * time.Second

type NETSConfig struct {
	BaseURL    string
	APIKey     string
	ProjectID  string
	HTTPClient *http.Client
}

// NETS drives the QR rail: request a dynamic QR code, then poll the
// transaction status until the shopper has scanned and paid.
type NETS struct {
	cfg   NETSConfig
	httpc *http.Client
	now   func() time.Time
}

func NewNETS(cfg NETSConfig) *NETS {
	httpc := cfg.HTTPClient
	if httpc == nil {
		httpc = &http.Client{Timeout: 15 * time.Second}
	}
	return &NETS{cfg: cfg, httpc: httpc, now: time.Now}
}

func (n *NETS) Name() string { return "nets" }

func (n *NETS) Initiate(ctx context.Context, in InitiateRequest) (InitiateResponse, error) {
	ref := "nets_" + uuid.NewString()
	body := map[string]any{
		"txn_identifier": ref,
		"amt_in_dollars": in.Amount.StringFixed(2),
		"currency_code":  in.Currency,
		"project_id":     n.cfg.ProjectID,
	}

	var out struct {
		ResponseCode     string `json:"response_code"`
		TxnRetrievalRef  string `json:"txn_retrieval_ref"`
		QRCode           string `json:"qr_code"`
		NetworkStatus    int    `json:"network_status"`
		InstructionsText string `json:"instruction"`
	}
	if err := n.postJSON(ctx, "/qr/dynamic/v1/order/request", body, &out); err != nil {
		return InitiateResponse{}, err
	}
	if out.ResponseCode != "00" || out.TxnRetrievalRef == "" {
		return InitiateResponse{}, fmt.Errorf("nets qr request rejected: code=%s", out.ResponseCode)
	}

	return InitiateResponse{
		ExternalID: out.TxnRetrievalRef,
		QRPayload:  out.QRCode,
	}, nil
}

func (n *NETS) Confirm(ctx context.Context, in ConfirmRequest) (Outcome, error) {
	body := map[string]any{
		"txn_retrieval_ref": in.ExternalID,
		"frequency":         1,
	}

	var out struct {
		ResponseCode string `json:"response_code"`
		TxnStatus    int    `json:"txn_status"`
		ChargeRef    string `json:"charge_retrieval_ref"`
	}
	if err := n.postJSON(ctx, "/qr/dynamic/v1/transaction/query", body, &out); err != nil {
		return Outcome{Status: StatusFailed}, err
	}

	if out.ResponseCode == "00" && out.TxnStatus == 1 {
		captureID := out.ChargeRef
		if captureID == "" {
			captureID = in.ExternalID
		}
		return Outcome{Status: StatusSuccess, CaptureID: captureID}, nil
	}

	// The query endpoint can report pending even after the shopper has
	// paid. Inside the window that is "ask again"; past it the flow is
	// aborted, and the ambiguity is surfaced rather than swallowed.
	if !in.InitiatedAt.IsZero() && n.now().Sub(in.InitiatedAt) > netsPendingWindow {
		return Outcome{Status: StatusFailed}, ErrStatusAmbiguous
	}
	return Outcome{Status: StatusPending}, nil
}

func (n *NETS) postJSON(ctx context.Context, path string, body any, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(n.cfg.BaseURL, "/")+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", n.cfg.APIKey)
	req.Header.Set("project-id", n.cfg.ProjectID)

	resp, err := n.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("nets %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("nets %s: status %d: %s", path, resp.StatusCode, b)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
