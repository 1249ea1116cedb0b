package application

import "time"

// HostedSessionRequest creates a processor-hosted payment page session.
// The three callback URLs are where the processor sends the customer (and
// its own server-to-server notifications) afterwards.
type HostedSessionRequest struct {
	OrderID     int64  `json:"order_id"`
	Reference   string `json:"reference"`
	AmountCents int64  `json:"amount"`
	Currency    string `json:"currency"`
	Nonce       string `json:"nonce"`
	ReturnURL   string `json:"return_url"`
	StatusURL   string `json:"status_url"`
	CancelURL   string `json:"cancel_url"`
}

type HostedSessionResponse struct {
	SessionID   string `json:"session_id"`
	RedirectURL string `json:"redirect_url"`
}

// TransactionDetails is the processor's authoritative view of a transaction,
// fetched by id. The generic async family trusts this over the raw callback
// body.
type TransactionDetails struct {
	TransactionID string  `json:"id"`
	Status        string  `json:"status"`
	Reference     string  `json:"reference"`
	ResultCode    *string `json:"result_code,omitempty"`
	Message       *string `json:"message,omitempty"`
	AmountCents   int64   `json:"amount"`
	Currency      string  `json:"currency"`
}

type ReversalResponse struct {
	TransactionID string    `json:"id"`
	Status        string    `json:"status"`
	ProcessedAt   time.Time `json:"processed_at"`
}

// AuthorizationResult is the synchronous direct-authorization outcome the
// reversal policy evaluates. The AVS and CVN codes come straight out of the
// processor's approval response.
type AuthorizationResult struct {
	TransactionID string
	ResponseCode  string
	AVSCode       string
	CVNCode       string
	AmountCents   int64
	Currency      string
}
