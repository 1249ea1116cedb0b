// Package callback extracts typed fields from the processor's heterogeneous
// notification payloads. Extraction is defensive throughout: missing or
// malformed fields degrade to nil/zero/UNKNOWN, and judging whether the
// result is sufficient is the caller's job.
package callback

import (
	"encoding/json"
	"math"
	"net/url"
	"regexp"
	"strconv"

	"github.com/commercekit/globalpay-reconciler/internal/domain"
)

// orderRefPattern matches the order reference the processor echoes back,
// e.g. "MyStore Order #42".
var orderRefPattern = regexp.MustCompile(`Order #(\d+)`)

// Parse extracts a Notification from a raw JSON notification body. A body
// that is not a JSON object yields an empty Notification with UNKNOWN
// status; it never returns an error.
func Parse(raw []byte) *domain.Notification {
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return &domain.Notification{Status: domain.TxnUnknown}
	}

	n := &domain.Notification{
		TransactionID: str(payload, "id"),
		RawStatus:     str(payload, "status"),
	}
	n.Status = domain.ParseTransactionStatus(n.RawStatus)

	if link, ok := payload["link_data"].(map[string]any); ok {
		n.Reference = str(link, "reference")
	}
	if n.Reference == "" {
		n.Reference = str(payload, "reference")
	}
	n.OrderID = orderIDFrom(n.Reference, str(payload, "order_id"))

	if pm, ok := payload["payment_method"].(map[string]any); ok {
		n.PaymentMethodType = optStr(pm, "entry_mode")
		n.ResultCode = optStr(pm, "result")
		n.Message = optStr(pm, "message")
	}
	if action, ok := payload["action"].(map[string]any); ok {
		n.ActionResult = optStr(action, "result_code")
	}

	if cents, ok := amountCents(payload["amount"]); ok {
		n.AmountCents = &cents
	}
	if c := optStr(payload, "currency"); c != nil {
		n.Currency = c
	}

	return n
}

// ParseQuery extracts a Notification from query-string callbacks, where the
// processor sends flat parameters instead of a JSON document.
func ParseQuery(values url.Values) *domain.Notification {
	n := &domain.Notification{
		TransactionID: values.Get("id"),
		RawStatus:     values.Get("status"),
		Reference:     values.Get("reference"),
	}
	n.Status = domain.ParseTransactionStatus(n.RawStatus)
	n.OrderID = orderIDFrom(n.Reference, values.Get("order_id"))
	return n
}

// orderIDFrom resolves the order id from the reference pattern, falling back
// to an explicit order_id value when the pattern is absent or unmatched.
func orderIDFrom(reference, explicit string) int64 {
	if m := orderRefPattern.FindStringSubmatch(reference); m != nil {
		if id, err := strconv.ParseInt(m[1], 10, 64); err == nil {
			return id
		}
	}
	if id, err := strconv.ParseInt(explicit, 10, 64); err == nil && id > 0 {
		return id
	}
	return 0
}

func str(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func optStr(m map[string]any, key string) *string {
	if v, ok := m[key].(string); ok {
		return &v
	}
	return nil
}

// amountCents accepts the processor's amount echo as either a minor-unit
// string or a JSON number of minor units.
func amountCents(v any) (int64, bool) {
	switch a := v.(type) {
	case string:
		cents, err := strconv.ParseInt(a, 10, 64)
		if err != nil {
			return 0, false
		}
		return cents, true
	case float64:
		if a != math.Trunc(a) {
			return 0, false
		}
		return int64(a), true
	default:
		return 0, false
	}
}
