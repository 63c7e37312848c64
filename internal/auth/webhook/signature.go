// Package webhook verifies signed deliveries from the identity provider.
//
// Deliveries follow the Svix scheme: a message id, a unix timestamp and one
// or more space-separated "v1,<base64>" signatures over
// "<id>.<timestamp>.<body>".
package webhook

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	svix "github.com/svix/svix-webhooks/go"

	dErrors "campusvote/pkg/domain-errors"
)

const (
	HeaderID        = "svix-id"
	HeaderTimestamp = "svix-timestamp"
	HeaderSignature = "svix-signature"

	secretPrefix = "whsec_"
	// Tolerance bounds how far a delivery's timestamp may drift from now.
	Tolerance = 5 * time.Minute
)

var errInvalidSignature = dErrors.New(dErrors.CodeUnauthorized, "invalid webhook signature")

// Verifier checks delivery signatures against one shared secret.
type Verifier struct {
	wh *svix.Webhook
}

// NewVerifier accepts the secret either as issued ("whsec_" followed by
// base64) or as raw bytes.
func NewVerifier(secret string) (*Verifier, error) {
	if secret == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "webhook secret is required")
	}
	var (
		wh  *svix.Webhook
		err error
	)
	if strings.HasPrefix(secret, secretPrefix) {
		wh, err = svix.NewWebhook(secret)
	} else {
		wh, err = svix.NewWebhookRaw([]byte(secret))
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "webhook secret is not valid")
	}
	return &Verifier{wh: wh}, nil
}

// Sign returns the "v1,<base64>" signature for a delivery.
func (v *Verifier) Sign(msgID string, timestamp time.Time, body []byte) (string, error) {
	return v.wh.Sign(msgID, timestamp, body)
}

// Verify checks the headers of a delivery against body as of now. The
// timestamp is judged against now rather than the wall clock so the request
// time set by middleware applies.
func (v *Verifier) Verify(header http.Header, body []byte, now time.Time) error {
	if header.Get(HeaderID) == "" || header.Get(HeaderTimestamp) == "" || header.Get(HeaderSignature) == "" {
		return dErrors.New(dErrors.CodeUnauthorized, "missing webhook signature headers")
	}
	secs, err := strconv.ParseInt(header.Get(HeaderTimestamp), 10, 64)
	if err != nil {
		return errInvalidSignature
	}
	ts := time.Unix(secs, 0)
	if ts.Before(now.Add(-Tolerance)) || ts.After(now.Add(Tolerance)) {
		return dErrors.New(dErrors.CodeUnauthorized, "webhook timestamp outside tolerance")
	}
	if err := v.wh.VerifyIgnoringTimestamp(body, header); err != nil {
		return errInvalidSignature
	}
	return nil
}
