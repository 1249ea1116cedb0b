package services

import (
	"context"
	"fmt"
	"html/template"
	"io"
	"log/slog"

	"github.com/commercekit/globalpay-reconciler/internal/application"
	"github.com/commercekit/globalpay-reconciler/internal/callback"
	"github.com/commercekit/globalpay-reconciler/internal/domain"
	"github.com/commercekit/globalpay-reconciler/internal/signature"
	"github.com/google/uuid"
)

// HPPURLs are the merchant-side URLs the hosted flow needs: where the
// processor sends the customer back, and where the customer goes afterwards.
type HPPURLs struct {
	CallbackBaseURL  string
	CheckoutURL      string
	OrderReceivedURL string
}

// HPPFlow owns the hosted-payment-page handshake: it builds the outbound
// hosted session, renders the interstitial confirmation page on return, and
// shapes the auto-submit to the authoritative final step.
//
// The interstitial is UI only, not a trust boundary: whatever it validated
// or displayed, final independently re-verifies the signature over the
// verbatim body before any order is touched.
type HPPFlow struct {
	gateway    application.GatewayClient
	appKey     string
	storeLabel string
	urls       HPPURLs
	countdown  int
	logger     *slog.Logger
}

func NewHPPFlow(
	gateway application.GatewayClient,
	appKey string,
	storeLabel string,
	urls HPPURLs,
	countdownSeconds int,
	logger *slog.Logger,
) *HPPFlow {
	if countdownSeconds <= 0 {
		countdownSeconds = 5
	}
	return &HPPFlow{
		gateway:    gateway,
		appKey:     appKey,
		storeLabel: storeLabel,
		urls:       urls,
		countdown:  countdownSeconds,
		logger:     logger,
	}
}

// BuildSession creates the processor-hosted session for an order and returns
// the redirect URL for the customer's browser. The nonce is single-use; the
// checkout form embeds it so a replayed submission cannot mint a second
// session for the same attempt.
func (f *HPPFlow) BuildSession(ctx context.Context, order *domain.Order) (*application.HostedSessionResponse, error) {
	req := application.HostedSessionRequest{
		OrderID:     order.ID,
		Reference:   fmt.Sprintf("%s Order #%d", f.storeLabel, order.ID),
		AmountCents: order.AmountCents,
		Currency:    order.Currency,
		Nonce:       uuid.NewString(),
		ReturnURL:   f.urls.CallbackBaseURL + "/callbacks/hpp/return",
		StatusURL:   f.urls.CallbackBaseURL + "/callbacks/hpp/status",
		CancelURL:   f.urls.CallbackBaseURL + "/callbacks/hpp/cancel",
	}

	resp, err := f.gateway.CreateHostedSession(ctx, req)
	if err != nil {
		return nil, application.NewGatewayUnavailableError(err)
	}

	f.logger.Info("hosted payment session created",
		"order_id", order.ID,
		"session_id", resp.SessionID,
	)
	return resp, nil
}

// InterstitialData feeds the auto-submit confirmation page. GatewayResponse
// and Signature are echoed verbatim so signature integrity survives the
// browser hop to final.
type InterstitialData struct {
	Approved         bool
	Message          string
	CountdownSeconds int
	FinalURL         string
	GatewayResponse  string
	Signature        string
}

// Interstitial validates the return notification and prepares the page that
// auto-submits it to final. Validation here is a courtesy for the customer's
// eyes only; a forged body still dies at final.
func (f *HPPFlow) Interstitial(rawBody []byte, suppliedSignature string) (*InterstitialData, error) {
	if !signature.Verify(rawBody, suppliedSignature, f.appKey) {
		f.logger.Error("hpp return signature verification failed")
		return nil, application.NewSignatureInvalidError()
	}

	n := callback.Parse(rawBody)

	data := &InterstitialData{
		Approved:         n.Approved(),
		CountdownSeconds: f.countdown,
		FinalURL:         f.urls.CallbackBaseURL + "/callbacks/hpp/final",
		GatewayResponse:  string(rawBody),
		Signature:        suppliedSignature,
	}
	if data.Approved {
		data.Message = "Your payment was approved. Finalizing your order..."
	} else {
		data.Message = "Your payment could not be completed."
		if n.Message != nil && *n.Message != "" {
			data.Message = *n.Message
		}
	}
	return data, nil
}

// CancelRedirectURL is where a customer-initiated abort lands.
func (f *HPPFlow) CancelRedirectURL() string {
	return f.urls.CheckoutURL + "?cancelled=1"
}

// ReturnRedirectURL picks the post-payment destination for redirect flows.
func (f *HPPFlow) ReturnRedirectURL(res *Result) string {
	if res != nil && (res.Status == domain.StatusProcessing || res.Status == domain.StatusCompleted) {
		return f.urls.OrderReceivedURL
	}
	return f.urls.CheckoutURL
}

// RenderInterstitial writes the confirmation page. The page counts down and
// posts gateway_response plus the signature header value to final.
func (f *HPPFlow) RenderInterstitial(w io.Writer, data *InterstitialData) error {
	return interstitialTmpl.Execute(w, data)
}

var interstitialTmpl = template.Must(template.New("interstitial").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>Payment confirmation</title>
</head>
<body>
  <p>{{.Message}}</p>
  <p>You will be redirected in <span id="countdown">{{.CountdownSeconds}}</span> seconds.</p>
  <form id="final-form" method="POST" action="{{.FinalURL}}">
    <input type="hidden" name="gateway_response" value="{{.GatewayResponse}}">
    <input type="hidden" name="X-GP-Signature" value="{{.Signature}}">
    <noscript><button type="submit">Continue</button></noscript>
  </form>
  <script>
    (function () {
      var remaining = {{.CountdownSeconds}};
      var el = document.getElementById("countdown");
      var timer = setInterval(function () {
        remaining -= 1;
        el.textContent = remaining;
        if (remaining <= 0) {
          clearInterval(timer);
          document.getElementById("final-form").submit();
        }
      }, 1000);
    })();
  </script>
</body>
</html>
`))
