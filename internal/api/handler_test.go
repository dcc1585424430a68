package api

import (
	"bytes"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha512"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bankhook/internal/audit"
	"bankhook/internal/backends/memory"
	"bankhook/internal/gate"
	"bankhook/internal/process"
	"bankhook/internal/types"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/suite"
)

type HandlerTestSuite struct {
	suite.Suite

	priv   *rsa.PrivateKey
	server *httptest.Server
	dedup  *memory.DedupStore
}

func TestHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(HandlerTestSuite))
}

func (s *HandlerTestSuite) SetupSuite() {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	s.Require().NoError(err)
	s.priv = priv
}

func (s *HandlerTestSuite) SetupTest() {
	gate.RestoreTimeNow()
	s.startServer(1000, []string{"127.0.0.1", "::1"})
}

func (s *HandlerTestSuite) TearDownTest() {
	s.server.Close()
}

// startServer rebuilds the full pipeline with a fresh dedup store.
func (s *HandlerTestSuite) startServer(rateLimit int, allowed []string) {
	s.dedup = memory.NewDedupStore()
	processor := process.NewProcessor(s.dedup, nil, 30*24*time.Hour, time.Second)
	h := NewHandler(
		gate.NewNetFilter(allowed),
		gate.NewLimiter(memory.NewRateCounter(), rateLimit, time.Minute),
		gate.NewVerifier(&s.priv.PublicKey),
		processor,
		s.dedup,
		audit.NewTrail(nil, nil),
	)
	s.server = httptest.NewServer(h.Router())
}

func (s *HandlerTestSuite) sign(sourceAppID, batchID, timestamp string) string {
	digest := sha512.Sum512([]byte(gate.CanonicalString(sourceAppID, batchID, timestamp)))
	sig, err := rsa.SignPKCS1v15(rand.Reader, s.priv, crypto.SHA512, digest[:])
	s.Require().NoError(err)
	return base64.StdEncoding.EncodeToString(sig)
}

func (s *HandlerTestSuite) signedBatch(batchID string, txs ...map[string]any) map[string]any {
	const app = "TEST_BANK_APP"
	ts := "1717171717"
	return map[string]any{
		"sourceAppId": app,
		"batchId":     batchID,
		"timestamp":   ts,
		"signature":   s.sign(app, batchID, ts),
		"data":        txs,
	}
}

func tx(id string, amount float64) map[string]any {
	return map[string]any{
		"transactionId":    id,
		"tranRefNo":        "REF_" + id,
		"srcAccountNumber": "1234567890123",
		"amount":           amount,
		"transType":        "C",
	}
}

func (s *HandlerTestSuite) post(body []byte, headers map[string]string) (*http.Response, types.Envelope) {
	req, err := http.NewRequest(http.MethodPost,
		s.server.URL+"/webhook/bank-notification", bytes.NewReader(body))
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer func() {
		_ = resp.Body.Close()
	}()
	raw, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	var env types.Envelope
	s.Require().NoError(json.Unmarshal(raw, &env))
	return resp, env
}

func (s *HandlerTestSuite) postJSON(payload map[string]any, headers map[string]string) (*http.Response, types.Envelope) {
	b, err := json.Marshal(payload)
	s.Require().NoError(err)
	return s.post(b, headers)
}

func (s *HandlerTestSuite) TestHealthBypassesGates() {
	// Health carries no trust obligation even from an untrusted caller.
	s.server.Close()
	s.startServer(1000, []string{"10.0.0.0/8"})
	resp, err := http.Get(s.server.URL + "/health")
	s.NoError(err)
	s.Equal(http.StatusOK, resp.StatusCode)
}

func (s *HandlerTestSuite) TestEmptyBody() {
	resp, env := s.post(nil, nil)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal(types.CodeBadRequest, env.Code)
	s.Equal(types.BatchIDUnknown, env.BatchID)
	s.Empty(env.Data)
}

func (s *HandlerTestSuite) TestMalformedJSON() {
	resp, env := s.post([]byte(`{"batchId": `), nil)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal(types.CodeBadRequest, env.Code)
	s.Empty(env.Data)
}

func (s *HandlerTestSuite) TestMissingSignature() {
	payload := s.signedBatch("B_MISSING_SIG", tx("TXN_000000000001", 100))
	delete(payload, "signature")
	resp, env := s.postJSON(payload, nil)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal(types.CodeUnauthorized, env.Code)
	s.Equal("B_MISSING_SIG", env.BatchID)
	s.Empty(env.Data)
}

func (s *HandlerTestSuite) TestInvalidSignature() {
	payload := s.signedBatch("B_BAD_SIG", tx("TXN_000000000001", 100))
	payload["timestamp"] = "9999999999" // desynchronize from the signed canonical string
	_, env := s.postJSON(payload, nil)
	s.Equal(types.CodeUnauthorized, env.Code)
	s.Equal("Signature is not valid", env.Message)
}

func (s *HandlerTestSuite) TestUntrustedIP() {
	_, env := s.postJSON(
		s.signedBatch("B_IP", tx("TXN_000000000001", 100)),
		map[string]string{"X-Forwarded-For": "203.0.113.9"},
	)
	s.Equal(types.CodeForbidden, env.Code)
	s.Empty(env.Data)
}

func (s *HandlerTestSuite) TestHappyPath() {
	resp, env := s.postJSON(s.signedBatch("B_OK", tx("TXN_000000000001", 100), tx("TXN_000000000002", 200)), nil)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal(types.CodeSuccess, env.Code)
	s.Equal("B_OK", env.BatchID)
	s.Require().Len(env.Data, 2)
	s.Equal("TXN_000000000001", env.Data[0].TransactionID)
	s.Equal(types.TxCodeSuccess, env.Data[0].ErrorCode)
	s.Equal(types.TxCodeSuccess, env.Data[1].ErrorCode)

	s.NotEmpty(resp.Header.Get("X-RateLimit-Limit"))
	s.NotEmpty(resp.Header.Get("X-RateLimit-Remaining"))
	s.NotEmpty(resp.Header.Get("X-RateLimit-Reset"))
	s.NotEmpty(resp.Header.Get("X-Process-Time"))
}

func (s *HandlerTestSuite) TestDuplicateSecondSubmission() {
	_, env := s.postJSON(s.signedBatch("B1", tx("TXN_000000000001", 100)), nil)
	s.Equal(types.CodeSuccess, env.Code)

	// Resend under a different batchId: the transaction is rejected as a
	// duplicate, and since it was the only one, the batch code flips.
	_, env = s.postJSON(s.signedBatch("B2", tx("TXN_000000000001", 100)), nil)
	s.Equal(types.CodePartialFailed, env.Code)
	s.Require().Len(env.Data, 1)
	s.Equal(types.TxCodeDuplicate, env.Data[0].ErrorCode)
}

func (s *HandlerTestSuite) TestPartialFailure() {
	_, env := s.postJSON(s.signedBatch("B_PARTIAL",
		tx("TXN_000000000001", 100),
		tx("TXN_000000000002", -5), // invalid amount
	), nil)
	s.Equal(types.CodePartialFailed, env.Code)
	s.Require().Len(env.Data, 2)
	s.Equal(types.TxCodeSuccess, env.Data[0].ErrorCode)
	s.Equal(types.TxCodeFailed, env.Data[1].ErrorCode)
	s.Contains(env.Data[1].Description, "amount must be positive")
}

func (s *HandlerTestSuite) TestRateLimitExceeded() {
	s.server.Close()
	s.startServer(2, []string{"127.0.0.1", "::1"})

	for i := 0; i < 2; i++ {
		resp, env := s.postJSON(s.signedBatch(fmt.Sprintf("B_RL_%d", i), tx(fmt.Sprintf("TXN_00000000000%d", i), 100)), nil)
		s.Equal(types.CodeSuccess, env.Code)
		s.Equal("2", resp.Header.Get("X-RateLimit-Limit"))
	}

	resp, env := s.postJSON(s.signedBatch("B_RL_OVER", tx("TXN_000000000009", 100)), nil)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal(types.CodeRateLimited, env.Code)
	s.Empty(env.Data)
	s.Equal("0", resp.Header.Get("X-RateLimit-Remaining"))
	s.NotEmpty(resp.Header.Get("X-RateLimit-Window"))
}

func (s *HandlerTestSuite) TestAdminStatsAndCleanup() {
	_, env := s.postJSON(s.signedBatch("B_ADMIN", tx("TXN_000000000001", 100)), nil)
	s.Require().Equal(types.CodeSuccess, env.Code)

	resp, err := http.Get(s.server.URL + "/admin/processed-transactions/stats")
	s.NoError(err)
	s.Equal(http.StatusOK, resp.StatusCode)
	raw, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	s.Contains(string(raw), `"total_processed":1`)

	resp, err = http.Post(s.server.URL+"/admin/processed-transactions/cleanup?days_to_keep=0", "", nil)
	s.NoError(err)
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()

	resp, err = http.Post(s.server.URL+"/admin/processed-transactions/cleanup?days_to_keep=30", "", nil)
	s.NoError(err)
	s.Equal(http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()
}

func (s *HandlerTestSuite) TestAdminForbiddenOutsideTrustedSet() {
	req, _ := http.NewRequest(http.MethodGet, s.server.URL+"/admin/processed-transactions/stats", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	resp, err := http.DefaultClient.Do(req)
	s.NoError(err)
	s.Equal(http.StatusForbidden, resp.StatusCode)
	_ = resp.Body.Close()
}
