package messaging

import (
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

const testAuthToken = "12345"

func TestValidateWebhookSignature(t *testing.T) {
	form := url.Values{}
	form.Set("MessageSid", "SM123")
	form.Set("MessageStatus", "delivered")
	webhookURL := "https://example.com/webhooks/provider/status/tenant-1"

	// Payload is URL + params sorted by key, concatenated key+value.
	payload := webhookURL + "MessageSid" + "SM123" + "MessageStatus" + "delivered"
	signature := signPayload(payload, testAuthToken)

	r := httptest.NewRequest("POST", webhookURL, strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.Header.Set("X-Twilio-Signature", signature)

	if !ValidateWebhookSignature(r, testAuthToken, webhookURL) {
		t.Fatal("expected valid signature to verify")
	}
}

func TestValidateWebhookSignatureRejectsTampering(t *testing.T) {
	form := url.Values{}
	form.Set("MessageSid", "SM123")
	form.Set("MessageStatus", "delivered")
	webhookURL := "https://example.com/webhooks/provider/status/tenant-1"

	payload := webhookURL + "MessageSid" + "SM123" + "MessageStatus" + "delivered"
	signature := signPayload(payload, testAuthToken)

	// Tampered body: status flipped to failed after signing.
	form.Set("MessageStatus", "failed")
	r := httptest.NewRequest("POST", webhookURL, strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.Header.Set("X-Twilio-Signature", signature)

	if ValidateWebhookSignature(r, testAuthToken, webhookURL) {
		t.Fatal("expected tampered payload to fail verification")
	}
}

func TestValidateWebhookSignatureMissingHeader(t *testing.T) {
	r := httptest.NewRequest("POST", "https://example.com/hook", nil)
	if ValidateWebhookSignature(r, testAuthToken, "https://example.com/hook") {
		t.Fatal("expected missing signature header to fail")
	}
}
