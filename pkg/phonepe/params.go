package phonepe

import (
	"time"

	"github.com/rahulnegi20/recolora-backend/pkg/enums"
)

// OrderCreateParams carries everything needed to open a checkout session.
type OrderCreateParams struct {
	MerchantOrderID string
	AmountPaise     int64
	RedirectURL     string
	ExpireAfter     time.Duration
}

func (p OrderCreateParams) toRequest() payRequest {
	expireAfter := int64(p.ExpireAfter / time.Second)
	return payRequest{
		MerchantOrderID: p.MerchantOrderID,
		Amount:          p.AmountPaise,
		ExpireAfter:     expireAfter,
		PaymentFlow: paymentFlow{
			Type: "PG_CHECKOUT",
			MerchantURLs: merchantURLs{
				RedirectURL: p.RedirectURL,
			},
		},
	}
}

// CheckoutOrder is the result of creating a gateway order.
type CheckoutOrder struct {
	GatewayOrderID string
	RedirectURL    string
	State          enums.GatewayState
	ExpireAt       time.Time
}

// PaymentDetail is one attempt recorded against a gateway order.
type PaymentDetail struct {
	TransactionID string `json:"transactionId"`
	PaymentMode   string `json:"paymentMode"`
	State         string `json:"state"`
	ErrorCode     string `json:"errorCode"`
	AmountPaise   int64  `json:"amount"`
}

// OrderStatus is the normalized answer from a gateway status query. RawState
// keeps the gateway's own vocabulary for audit logging.
type OrderStatus struct {
	State          enums.GatewayState
	RawState       string
	PaymentDetails []PaymentDetail
}

// LatestTransactionID returns the most recent attempt's gateway payment id,
// or empty when the gateway reported no attempts.
func (s OrderStatus) LatestTransactionID() string {
	if len(s.PaymentDetails) == 0 {
		return ""
	}
	return s.PaymentDetails[len(s.PaymentDetails)-1].TransactionID
}

type payRequest struct {
	MerchantOrderID string      `json:"merchantOrderId"`
	Amount          int64       `json:"amount"`
	ExpireAfter     int64       `json:"expireAfter,omitempty"`
	PaymentFlow     paymentFlow `json:"paymentFlow"`
}

type paymentFlow struct {
	Type         string       `json:"type"`
	MerchantURLs merchantURLs `json:"merchantUrls"`
}

type merchantURLs struct {
	RedirectURL string `json:"redirectUrl"`
}

type payResponse struct {
	OrderID     string `json:"orderId"`
	State       string `json:"state"`
	ExpireAt    int64  `json:"expireAt"`
	RedirectURL string `json:"redirectUrl"`
}

type orderStatusResponse struct {
	OrderID        string          `json:"orderId"`
	State          string          `json:"state"`
	Amount         int64           `json:"amount"`
	PaymentDetails []PaymentDetail `json:"paymentDetails"`
}

type oauthResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresAt   int64  `json:"expires_at"`
}

type apiErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
