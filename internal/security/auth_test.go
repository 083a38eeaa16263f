package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(secret, method, path, body, timestamp string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(method + path + body + timestamp))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyHMAC(t *testing.T) {
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	sig := sign("secret", "POST", "/api/query", `{"sql":"SELECT 1"}`, ts)

	err := VerifyHMAC("secret", "POST", "/api/query", `{"sql":"SELECT 1"}`, ts, sig)
	assert.NoError(t, err)
}

func TestVerifyHMACRejectsTamperedBody(t *testing.T) {
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	sig := sign("secret", "POST", "/api/query", `{"sql":"SELECT 1"}`, ts)

	err := VerifyHMAC("secret", "POST", "/api/query", `{"sql":"DROP TABLE x"}`, ts, sig)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifyHMACRejectsWrongSecret(t *testing.T) {
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	sig := sign("other", "GET", "/api/tables", "", ts)

	err := VerifyHMAC("secret", "GET", "/api/tables", "", ts, sig)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifyHMACRejectsStaleTimestamp(t *testing.T) {
	ts := strconv.FormatInt(time.Now().Add(-10*time.Minute).Unix(), 10)
	sig := sign("secret", "GET", "/api/tables", "", ts)

	err := VerifyHMAC("secret", "GET", "/api/tables", "", ts, sig)
	assert.ErrorIs(t, err, ErrRequestExpired)
}

func TestVerifyHMACRejectsBadTimestamp(t *testing.T) {
	err := VerifyHMAC("secret", "GET", "/api/tables", "", "yesterday", "deadbeef")
	assert.Error(t, err)
}

func TestVerifyHMACEmptySecretDisablesCheck(t *testing.T) {
	assert.NoError(t, VerifyHMAC("", "GET", "/api/tables", "", "", ""))
}

func TestTokenRoundTrip(t *testing.T) {
	token, err := MintToken("secret", "dashboard", time.Hour)
	require.NoError(t, err)

	subject, err := VerifyToken("secret", token)
	require.NoError(t, err)
	assert.Equal(t, "dashboard", subject)
}

func TestVerifyTokenRejectsWrongSecret(t *testing.T) {
	token, err := MintToken("secret", "dashboard", time.Hour)
	require.NoError(t, err)

	_, err = VerifyToken("other", token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyTokenRejectsExpired(t *testing.T) {
	token, err := MintToken("secret", "dashboard", -time.Minute)
	require.NoError(t, err)

	_, err = VerifyToken("secret", token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyTokenRejectsGarbage(t *testing.T) {
	_, err := VerifyToken("secret", "not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
