package webhook

import (
	"encoding/base64"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "campusvote/pkg/domain-errors"
)

func signedHeader(t *testing.T, v *Verifier, msgID string, ts time.Time, body []byte) http.Header {
	t.Helper()
	sig, err := v.Sign(msgID, ts, body)
	require.NoError(t, err)
	h := http.Header{}
	h.Set(HeaderID, msgID)
	h.Set(HeaderTimestamp, strconv.FormatInt(ts.Unix(), 10))
	h.Set(HeaderSignature, sig)
	return h
}

func TestVerify(t *testing.T) {
	secret := "whsec_" + base64.StdEncoding.EncodeToString([]byte("shared-secret-bytes"))
	v, err := NewVerifier(secret)
	require.NoError(t, err)
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	body := []byte(`{"type":"user.created"}`)

	t.Run("valid signature", func(t *testing.T) {
		assert.NoError(t, v.Verify(signedHeader(t, v, "msg_1", now, body), body, now))
	})

	t.Run("any listed signature may match", func(t *testing.T) {
		h := signedHeader(t, v, "msg_1", now, body)
		h.Set(HeaderSignature, "v1,bm90LWl0 "+h.Get(HeaderSignature))
		assert.NoError(t, v.Verify(h, body, now))
	})

	t.Run("tampered body", func(t *testing.T) {
		h := signedHeader(t, v, "msg_1", now, body)
		err := v.Verify(h, []byte(`{"type":"user.deleted"}`), now)
		assert.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "invalid webhook signature"))
	})

	t.Run("different secret", func(t *testing.T) {
		other, err := NewVerifier("another-secret")
		require.NoError(t, err)
		assert.Error(t, other.Verify(signedHeader(t, v, "msg_1", now, body), body, now))
	})

	t.Run("stale timestamp", func(t *testing.T) {
		h := signedHeader(t, v, "msg_1", now.Add(-10*time.Minute), body)
		assert.True(t, dErrors.HasCode(v.Verify(h, body, now), dErrors.CodeUnauthorized))
	})

	t.Run("missing headers", func(t *testing.T) {
		assert.True(t, dErrors.HasCode(v.Verify(http.Header{}, body, now), dErrors.CodeUnauthorized))
	})
}

// Reference delivery published with the Svix verification docs.
func TestVerifyReferenceDelivery(t *testing.T) {
	v, err := NewVerifier("whsec_MfKQ9r8GKYqrTwjUPD8ILPZIo2LaLaSw")
	require.NoError(t, err)
	body := []byte(`{"test": 2432232314}`)
	ts := time.Unix(1614265330, 0)

	h := http.Header{}
	h.Set(HeaderID, "msg_p5jXN8AQM9LWM0D4loKWxJek")
	h.Set(HeaderTimestamp, "1614265330")
	h.Set(HeaderSignature, "v1,g0hM9SsE+OTPJTGt/tmIKtSyZlE3uFJELVlNIOLJ1OE=")

	assert.NoError(t, v.Verify(h, body, ts.Add(time.Minute)))
	assert.Error(t, v.Verify(h, body, ts.Add(time.Hour)))

	sig, err := v.Sign("msg_p5jXN8AQM9LWM0D4loKWxJek", ts, body)
	require.NoError(t, err)
	assert.Equal(t, "v1,g0hM9SsE+OTPJTGt/tmIKtSyZlE3uFJELVlNIOLJ1OE=", sig)
}

func TestNewVerifier(t *testing.T) {
	_, err := NewVerifier("")
	assert.Error(t, err)
	_, err = NewVerifier("whsec_%%%")
	assert.Error(t, err)
}
