package domain

// TransactionStatus is the processor's transaction status vocabulary.
type TransactionStatus string

const (
	TxnInitiated     TransactionStatus = "INITIATED"
	TxnPreauthorized TransactionStatus = "PREAUTHORIZED"
	TxnCaptured      TransactionStatus = "CAPTURED"
	TxnDeclined      TransactionStatus = "DECLINED"
	TxnCancelled     TransactionStatus = "CANCELLED"
	TxnFailed        TransactionStatus = "FAILED"
	TxnPending       TransactionStatus = "PENDING"

	// TxnUnknown is the sentinel for statuses this service does not
	// recognize. Unknown statuses are noted and logged, never fatal.
	TxnUnknown TransactionStatus = "UNKNOWN"
)

// ParseTransactionStatus maps a raw status string onto the known vocabulary,
// degrading to TxnUnknown rather than failing.
func ParseTransactionStatus(raw string) TransactionStatus {
	switch TransactionStatus(raw) {
	case TxnInitiated, TxnPreauthorized, TxnCaptured, TxnDeclined, TxnCancelled, TxnFailed, TxnPending:
		return TransactionStatus(raw)
	default:
		return TxnUnknown
	}
}

// Notification is a parsed, still-untrusted callback payload from the
// processor. Every field except TransactionID and Status is optional;
// sufficiency checks belong to the reconciliation engine, not the parser.
type Notification struct {
	TransactionID string
	Status        TransactionStatus
	RawStatus     string

	// OrderID is extracted from the order reference string, or from an
	// explicit order_id parameter. Zero means no order id was found.
	OrderID   int64
	Reference string

	PaymentMethodType *string
	ResultCode        *string
	Message           *string
	ActionResult      *string

	AmountCents *int64
	Currency    *string
}

// HasOrder reports whether any order id could be extracted.
func (n *Notification) HasOrder() bool {
	return n.OrderID > 0
}

// Approved is the hosted-page success predicate: a captured transaction
// whose payment method result is "00" and whose action result is SUCCESS.
// All three are required.
func (n *Notification) Approved() bool {
	return n.Status == TxnCaptured &&
		n.ResultCode != nil && *n.ResultCode == "00" &&
		n.ActionResult != nil && *n.ActionResult == "SUCCESS"
}
