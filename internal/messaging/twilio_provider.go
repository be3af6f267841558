package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kitewire/messaging-platform/pkg/logging"
)

var twilioTracer = otel.Tracer("kitewire.internal.messaging.twilio")

const twilioDefaultBaseURL = "https://api.twilio.com"

// TwilioProvider posts SMS messages using Twilio's REST API with whatever
// credential set resolution handed it, so tenant-owned accounts work
// without extra wiring.
type TwilioProvider struct {
	baseURL       string
	publicBaseURL string
	httpClient    *http.Client
	logger        *logging.Logger
}

// NewTwilioProvider builds a provider with sane defaults. publicBaseURL is
// this service's externally reachable address; when set, every send
// registers a tenant-scoped status callback with Twilio so delivery reports
// flow back. Empty means no callbacks (local development).
func NewTwilioProvider(publicBaseURL string, logger *logging.Logger) *TwilioProvider {
	if logger == nil {
		logger = logging.Default()
	}
	return &TwilioProvider{
		baseURL:       twilioDefaultBaseURL,
		publicBaseURL: strings.TrimRight(strings.TrimSpace(publicBaseURL), "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// statusCallbackURL builds the delivery status webhook URL for a tenant.
func (p *TwilioProvider) statusCallbackURL(tenantID string) string {
	if p.publicBaseURL == "" {
		return ""
	}
	return p.publicBaseURL + "/webhooks/provider/status/" + url.PathEscape(tenantID)
}

var _ Provider = (*TwilioProvider)(nil)

// Send dispatches a single SMS, retrying transient failures. It returns the
// provider-assigned message SID on acceptance.
func (p *TwilioProvider) Send(ctx context.Context, creds CredentialSet, tenantID, to, body string) (string, error) {
	if !creds.IsComplete() {
		return "", errors.New("messaging: twilio credentials incomplete")
	}
	if to == "" {
		return "", errors.New("messaging: to required")
	}
	if strings.TrimSpace(body) == "" {
		return "", errors.New("messaging: body required")
	}

	ctx, span := twilioTracer.Start(ctx, "messaging.twilio.send")
	defer span.End()
	span.SetAttributes(attribute.String("kitewire.to", to))

	payload := url.Values{}
	payload.Set("To", to)
	payload.Set("From", creds.SenderNumber)
	payload.Set("Body", body)
	if callback := p.statusCallbackURL(tenantID); callback != "" {
		payload.Set("StatusCallback", callback)
	}

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", p.baseURL, creds.AccountID)

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(payload.Encode()))
		if err != nil {
			lastErr = err
			break
		}
		req.SetBasicAuth(creds.AccountID, creds.AuthSecret)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := p.httpClient.Do(req)
		if err != nil {
			lastErr = err
		} else {
			respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				var parsed struct {
					SID    string `json:"sid"`
					Status string `json:"status"`
				}
				if err := json.Unmarshal(respBody, &parsed); err != nil || parsed.SID == "" {
					return "", fmt.Errorf("messaging: twilio accepted send but returned no sid")
				}
				p.logger.Info("twilio sms sent", "to", to, "provider_message_id", parsed.SID)
				return parsed.SID, nil
			}
			lastErr = parseTwilioError(resp.StatusCode, respBody)
			// Don't retry non-rate-limit 4xx errors.
			if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != 429 {
				break
			}
		}

		if attempt < 3 {
			sleep := time.Duration(200+rand.Intn(300)) * time.Millisecond
			time.Sleep(sleep)
		}
	}

	if lastErr != nil {
		span.RecordError(lastErr)
	}
	return "", lastErr
}

func parseTwilioError(status int, body []byte) error {
	perr := &ProviderError{StatusCode: status}
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return perr
	}
	var parsed struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil && parsed.Message != "" {
		perr.Code = parsed.Code
		perr.Message = parsed.Message
		return perr
	}
	// Fallback: carry the raw body (already truncated by the read limit).
	perr.Message = trimmed
	return perr
}
