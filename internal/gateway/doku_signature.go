package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"time"

	"github.com/google/uuid"
)

const dokuTimestampLayout = "2006-01-02T15:04:05Z"

type dokuSigner struct {
	clientID  string
	secretKey string
	now       func() time.Time
}

func (d dokuSigner) digest(body []byte) string {
	hash := sha256.Sum256(body)
	return base64.StdEncoding.EncodeToString(hash[:])
}

// signature signs the request components. GET requests carry no body and
// therefore no Digest component.
func (d dokuSigner) signature(requestID, timestamp, target, digest string) string {
	component := "Client-Id:" + d.clientID + "\n" +
		"Request-Id:" + requestID + "\n" +
		"Request-Timestamp:" + timestamp + "\n" +
		"Request-Target:" + target
	if digest != "" {
		component += "\n" + "Digest:" + digest
	}

	mac := hmac.New(sha256.New, []byte(d.secretKey))
	mac.Write([]byte(component))
	return "HMACSHA256=" + base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func (d dokuSigner) headers(target string, body []byte) map[string]string {
	requestID := uuid.New().String()
	timestamp := d.now().UTC().Format(dokuTimestampLayout)

	headers := map[string]string{
		"Client-Id":         d.clientID,
		"Request-Id":        requestID,
		"Request-Timestamp": timestamp,
	}

	digest := ""
	if body != nil {
		digest = d.digest(body)
		headers["Digest"] = digest
		headers["Content-Type"] = "application/json"
	}
	headers["Signature"] = d.signature(requestID, timestamp, target, digest)
	return headers
}
