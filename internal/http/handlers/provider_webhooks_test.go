package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/kitewire/messaging-platform/internal/messaging"
	"github.com/kitewire/messaging-platform/pkg/logging"
)

type fakeTracker struct {
	calls []struct {
		providerMessageID string
		tenantID          string
		reported          messaging.Status
	}
}

func (f *fakeTracker) ApplyStatusUpdate(_ context.Context, providerMessageID, tenantID string, reported messaging.Status) {
	f.calls = append(f.calls, struct {
		providerMessageID string
		tenantID          string
		reported          messaging.Status
	}{providerMessageID, tenantID, reported})
}

func postWebhook(t *testing.T, h *ProviderWebhookHandler, tenantID string, form url.Values, sign func(r *http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	router := chi.NewRouter()
	router.Post("/webhooks/provider/status/{tenantID}", h.DeliveryStatus)

	r := httptest.NewRequest(http.MethodPost, "/webhooks/provider/status/"+tenantID, strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if sign != nil {
		sign(r)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	return w
}

func TestDeliveryStatusAppliesUpdate(t *testing.T) {
	tracker := &fakeTracker{}
	h := NewProviderWebhookHandler("", tracker, nil, logging.New("error"))

	form := url.Values{}
	form.Set("MessageSid", "SM123")
	form.Set("MessageStatus", "delivered")

	w := postWebhook(t, h, "tenant-1", form, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/xml" {
		t.Fatalf("expected text/xml ack, got %q", ct)
	}
	if !strings.Contains(w.Body.String(), "<Response></Response>") {
		t.Fatalf("expected empty ack body, got %q", w.Body.String())
	}

	if len(tracker.calls) != 1 {
		t.Fatalf("expected one tracker call, got %d", len(tracker.calls))
	}
	call := tracker.calls[0]
	if call.providerMessageID != "SM123" || call.tenantID != "tenant-1" || call.reported != messaging.StatusDelivered {
		t.Fatalf("unexpected tracker call: %+v", call)
	}
}

func TestDeliveryStatusUnknownStatusMapsToSent(t *testing.T) {
	tracker := &fakeTracker{}
	h := NewProviderWebhookHandler("", tracker, nil, logging.New("error"))

	form := url.Values{}
	form.Set("MessageSid", "SM123")
	form.Set("MessageStatus", "partially_delivered")

	w := postWebhook(t, h, "tenant-1", form, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if tracker.calls[0].reported != messaging.StatusSent {
		t.Fatalf("expected unknown status to collapse to sent, got %s", tracker.calls[0].reported)
	}
}

func TestDeliveryStatusAcksMalformedPayload(t *testing.T) {
	tracker := &fakeTracker{}
	h := NewProviderWebhookHandler("", tracker, nil, logging.New("error"))

	// No MessageSid at all: the tracker drops it internally, the provider
	// still gets its 200.
	w := postWebhook(t, h, "tenant-1", url.Values{}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for malformed payload, got %d", w.Code)
	}
	if len(tracker.calls) != 1 || tracker.calls[0].providerMessageID != "" {
		t.Fatalf("expected tracker to receive the empty id, got %+v", tracker.calls)
	}
}

func TestDeliveryStatusRejectsBadSignature(t *testing.T) {
	tracker := &fakeTracker{}
	h := NewProviderWebhookHandler("token", tracker, nil, logging.New("error"))

	form := url.Values{}
	form.Set("MessageSid", "SM123")
	form.Set("MessageStatus", "delivered")

	w := postWebhook(t, h, "tenant-1", form, func(r *http.Request) {
		r.Header.Set("X-Twilio-Signature", "forged")
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad signature, got %d", w.Code)
	}
	if len(tracker.calls) != 0 {
		t.Fatal("forged request must not reach the tracker")
	}
}
