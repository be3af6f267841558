package messaging

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"sort"
	"strings"
)

// ValidateWebhookSignature verifies the X-Twilio-Signature header: the
// webhook URL concatenated with the sorted POST parameters, HMAC-SHA1
// signed with the account auth token.
func ValidateWebhookSignature(r *http.Request, authToken, webhookURL string) bool {
	signature := r.Header.Get("X-Twilio-Signature")
	if signature == "" {
		return false
	}

	if err := r.ParseForm(); err != nil {
		return false
	}

	keys := make([]string, 0, len(r.PostForm))
	for k := range r.PostForm {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var payload strings.Builder
	payload.WriteString(webhookURL)
	for _, key := range keys {
		for _, value := range r.PostForm[key] {
			payload.WriteString(key)
			payload.WriteString(value)
		}
	}

	expected := signPayload(payload.String(), authToken)
	return subtle.ConstantTimeCompare([]byte(signature), []byte(expected)) == 1
}

func signPayload(data, key string) string {
	h := hmac.New(sha1.New, []byte(key))
	h.Write([]byte(data))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}
