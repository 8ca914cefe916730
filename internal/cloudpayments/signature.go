package cloudpayments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
)

const (
	HeaderContentHMAC  = "Content-HMAC"
	HeaderXContentHMAC = "X-Content-HMAC"
)

// Sign считает подпись тела уведомления: base64(HMAC-SHA256(secret, body))
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Verify сверяет подпись из заголовков с телом запроса.
// Пустой секрет или отсутствующая подпись - всегда отказ.
func Verify(secret string, body []byte, header http.Header) bool {
	if secret == "" {
		return false
	}

	expected := []byte(Sign(secret, body))
	for _, name := range []string{HeaderContentHMAC, HeaderXContentHMAC} {
		got := header.Get(name)
		if got == "" {
			continue
		}
		if hmac.Equal(expected, []byte(got)) {
			return true
		}
	}

	return false
}
