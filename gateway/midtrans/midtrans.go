package midtrans

import (
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/santosoadam/coursemarket/config"
)

// Transaction states reported by the gateway.
const (
	StateCapture    = "capture"
	StateSettlement = "settlement"
	StatePending    = "pending"
	StateCancel     = "cancel"
	StateDeny       = "deny"
	StateExpire     = "expire"
)

// Fraud signals accompanying a capture state.
const (
	FraudAccept    = "accept"
	FraudChallenge = "challenge"
)

// ErrUnavailable marks transport failures and gateway 5xx responses. The
// caller must not assume the gateway rejected the request: it may have been
// accepted before the response was lost.
var ErrUnavailable = errors.New("payment gateway unavailable")

var ErrOrderNotFound = errors.New("transaction not found on the gateway")

// RejectedError is a gateway 4xx: the request itself was invalid and a retry
// with the same payload cannot succeed.
type RejectedError struct {
	StatusCode int
	Messages   []string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("payment gateway rejected the request (%d): %s", e.StatusCode, strings.Join(e.Messages, "; "))
}

type Client struct {
	rest      *resty.Client
	snapURL   string
	apiURL    string
	serverKey string
	callbacks Callbacks
}

type Callbacks struct {
	Finish  string `json:"finish,omitempty"`
	Error   string `json:"error,omitempty"`
	Pending string `json:"pending,omitempty"`
}

func New(cfg config.Midtrans) *Client {
	rest := resty.New().
		SetTimeout(cfg.CallTimeout).
		SetBasicAuth(cfg.ServerKey, "").
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json")

	return &Client{
		rest:      rest,
		snapURL:   cfg.SnapURL,
		apiURL:    cfg.APIURL,
		serverKey: cfg.ServerKey,
		callbacks: Callbacks{
			Finish:  cfg.FinishURL,
			Error:   cfg.ErrorURL,
			Pending: cfg.PendingURL,
		},
	}
}

type TransactionDetails struct {
	OrderID     string `json:"order_id"`
	GrossAmount int64  `json:"gross_amount"`
}

type CustomerDetails struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email"`
}

type ItemDetail struct {
	ID       string `json:"id"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
}

type snapRequest struct {
	TransactionDetails TransactionDetails `json:"transaction_details"`
	CreditCard         map[string]bool    `json:"credit_card"`
	CustomerDetails    *CustomerDetails   `json:"customer_details,omitempty"`
	ItemDetails        []ItemDetail       `json:"item_details,omitempty"`
	Callbacks          *Callbacks         `json:"callbacks,omitempty"`
}

type snapResponse struct {
	Token         string   `json:"token"`
	RedirectURL   string   `json:"redirect_url"`
	ErrorMessages []string `json:"error_messages"`
}

// Session is a hosted payment page the buyer is redirected to.
type Session struct {
	Token       string
	RedirectURL string
}

// CreateTransaction opens a hosted payment session for the order. Call at
// most once per order id.
func (c *Client) CreateTransaction(ctx context.Context, tx TransactionDetails, customer CustomerDetails, items []ItemDetail) (Session, error) {
	req := snapRequest{
		TransactionDetails: tx,
		CreditCard:         map[string]bool{"secure": true},
		CustomerDetails:    &customer,
		ItemDetails:        items,
		Callbacks:          &c.callbacks,
	}

	var body snapResponse
	resp, err := c.rest.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&body).
		SetError(&body).
		Post(c.snapURL + "/snap/v1/transactions")

	if err != nil {
		return Session{}, fmt.Errorf("%w: %s", ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode() >= http.StatusInternalServerError:
		return Session{}, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode())

	case resp.StatusCode() >= http.StatusBadRequest:
		return Session{}, &RejectedError{StatusCode: resp.StatusCode(), Messages: body.ErrorMessages}
	}

	return Session{Token: body.Token, RedirectURL: body.RedirectURL}, nil
}

// StatusReport is the gateway's authoritative view of a transaction.
type StatusReport struct {
	OrderID           string `json:"order_id"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	PaymentType       string `json:"payment_type"`

	Raw json.RawMessage `json:"-"`
}

// TransactionStatus queries the authoritative transaction state. Idempotent
// and safe to call repeatedly and concurrently.
func (c *Client) TransactionStatus(ctx context.Context, orderID string) (StatusReport, error) {
	resp, err := c.rest.R().
		SetContext(ctx).
		Get(c.apiURL + "/v2/" + orderID + "/status")

	if err != nil {
		return StatusReport{}, fmt.Errorf("%w: %s", ErrUnavailable, err)
	}

	if resp.StatusCode() >= http.StatusInternalServerError {
		return StatusReport{}, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode())
	}

	var report StatusReport
	if err := json.Unmarshal(resp.Body(), &report); err != nil {
		return StatusReport{}, fmt.Errorf("decoding status response: %w", err)
	}
	report.Raw = json.RawMessage(resp.Body())

	// The gateway reports unknown orders both with an HTTP 404 and with a
	// body-level 404 status code.
	if resp.StatusCode() == http.StatusNotFound || report.StatusCode == "404" {
		return StatusReport{}, ErrOrderNotFound
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		return StatusReport{}, &RejectedError{StatusCode: resp.StatusCode()}
	}

	return report, nil
}

// VerifySignature checks the SHA-512 notification signature
// (order_id + status_code + gross_amount + server key).
func (c *Client) VerifySignature(orderID, statusCode, grossAmount, signature string) bool {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + c.serverKey))
	expected := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}
