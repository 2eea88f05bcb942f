package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/edhedges/receive-kit/internal/config"
	"github.com/edhedges/receive-kit/internal/domain"
	"github.com/edhedges/receive-kit/internal/infra/crypto"
	"github.com/edhedges/receive-kit/internal/infra/ratelimit"
	"github.com/edhedges/receive-kit/internal/usecase"
)

const (
	testTx       = "0x00000000000000000000000000000000000000000000000000000000000000a1"
	testAttester = "0x2222222222222222222222222222222222222222"
	testHash     = "0x3333333333333333333333333333333333333333333333333333333333333333"
)

type stubFetcher struct {
	logs [][]domain.DecodedLog
	err  error
}

func (f *stubFetcher) FetchLogs(_ context.Context, _ []domain.DataRecord) ([][]domain.DecodedLog, error) {
	return f.logs, f.err
}

type stubVerifier struct {
	errs map[string][]domain.ValidationError
}

func (v *stubVerifier) VerifyRecord(record domain.DataRecord) []domain.ValidationError {
	return v.errs[record.Layer2Hash()]
}

func newTestServer(t *testing.T, cfg config.Config, fetcher usecase.LogFetcher, verifier domain.RecordVerifier, limiter domain.RateLimiter) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	s := NewServerWithDeps(cfg, ServerDeps{
		Verify: &usecase.VerifyAttestation{
			Records:  verifier,
			Fetcher:  fetcher,
			Registry: cfg.RegistryContract,
		},
		RateLimiter: limiter,
		Logger:      zerolog.Nop(),
	})
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func signedSubmission(t *testing.T) domain.Submission {
	t.Helper()
	sub := domain.Submission{
		Token: "tok-123",
		Data: []domain.DataRecord{{
			"tx":         testTx,
			"attester":   testAttester,
			"layer2Hash": testHash,
			"claim":      "kyc-passed",
		}},
	}
	packed, err := crypto.PackedPayloadHash(sub.Data, sub.Token)
	if err != nil {
		t.Fatalf("PackedPayloadHash: %v", err)
	}
	sub.PackedData = packed

	key, err := ethcrypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	sig, err := ethcrypto.Sign(accounts.TextHash(hexutil.MustDecode(packed)), key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	sub.Signature = hexutil.Encode(sig)
	sub.Subject = ethcrypto.PubkeyToAddress(key.PublicKey).Hex()
	return sub
}

func attestedLog(subject, attester, dataHash string) domain.DecodedLog {
	return domain.DecodedLog{
		Name:    domain.TraitAttestedEvent,
		Address: "0xaaaa00000000000000000000000000000000aaaa",
		Events: []domain.DecodedLogEvent{
			{Name: "subject", Type: "address", Value: strings.ToLower(subject)},
			{Name: "attester", Type: "address", Value: strings.ToLower(attester)},
			{Name: "dataHash", Type: "bytes32", Value: dataHash},
			{Name: "timestamp", Type: "uint256", Value: "1700000000"},
		},
	}
}

func postReceive(t *testing.T, srv *httptest.Server, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		t.Fatalf("encode body: %v", err)
	}
	resp, err := http.Post(srv.URL+"/api/receive", "application/json", &buf)
	if err != nil {
		t.Fatalf("POST /api/receive: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeErrors(t *testing.T, resp *http.Response) []domain.ValidationError {
	t.Helper()
	var body struct {
		Errors []domain.ValidationError `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Errors
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, config.Config{}, &stubFetcher{}, &stubVerifier{}, nil)
	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestReceiveAccepted(t *testing.T) {
	sub := signedSubmission(t)
	fetcher := &stubFetcher{logs: [][]domain.DecodedLog{
		{attestedLog(sub.Subject, testAttester, testHash)},
	}}
	srv := newTestServer(t, config.Config{}, fetcher, &stubVerifier{}, nil)

	resp := postReceive(t, srv, sub)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body struct {
		Success bool   `json:"success"`
		Token   string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Success || body.Token != "tok-123" {
		t.Fatalf("body = %+v", body)
	}
}

func TestReceiveMalformedJSON(t *testing.T) {
	srv := newTestServer(t, config.Config{}, &stubFetcher{}, &stubVerifier{}, nil)
	resp, err := http.Post(srv.URL+"/api/receive", "application/json", strings.NewReader("{not json"))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestReceiveShapeErrors(t *testing.T) {
	srv := newTestServer(t, config.Config{}, &stubFetcher{}, &stubVerifier{}, nil)
	resp := postReceive(t, srv, map[string]any{"token": "only-token"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	errs := decodeErrors(t, resp)
	if len(errs) != 4 {
		t.Fatalf("got %d errors, want 4: %v", len(errs), errs)
	}
}

func TestReceiveTamperedAttester(t *testing.T) {
	sub := signedSubmission(t)
	fetcher := &stubFetcher{logs: [][]domain.DecodedLog{
		{attestedLog(sub.Subject, "0x9999999999999999999999999999999999999999", testHash)},
	}}
	srv := newTestServer(t, config.Config{}, fetcher, &stubVerifier{}, nil)

	resp := postReceive(t, srv, sub)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	errs := decodeErrors(t, resp)
	if len(errs) != 1 || errs[0].Key != "attester" {
		t.Fatalf("errors = %v, want exactly one keyed attester", errs)
	}
}

func TestReceiveIntegrityFailureBody(t *testing.T) {
	sub := signedSubmission(t)
	verifier := &stubVerifier{errs: map[string][]domain.ValidationError{
		testHash: {{Key: "layer2Hash", Message: "content mismatch"}},
	}}
	srv := newTestServer(t, config.Config{}, &stubFetcher{}, verifier, nil)

	resp := postReceive(t, srv, sub)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body struct {
		Errors []domain.RecordResult `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Errors) != 1 || body.Errors[0].Layer2Hash != testHash || len(body.Errors[0].Errors) != 1 {
		t.Fatalf("body = %+v", body)
	}
}

func TestReceiveChainFailure(t *testing.T) {
	sub := signedSubmission(t)
	srv := newTestServer(t, config.Config{}, &stubFetcher{err: domain.ErrChainUnavailable}, &stubVerifier{}, nil)

	resp := postReceive(t, srv, sub)
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Code != "CHAIN_UNAVAILABLE" {
		t.Fatalf("code = %q", body.Code)
	}
}

func TestReceiveRateLimited(t *testing.T) {
	sub := signedSubmission(t)
	cfg := config.Config{RateLimitRequests: 1, RateLimitWindowSeconds: 60}
	fetcher := &stubFetcher{logs: [][]domain.DecodedLog{
		{attestedLog(sub.Subject, testAttester, testHash)},
	}}
	limiter := ratelimit.NewMemoryLimiter(nil, 0)
	srv := newTestServer(t, cfg, fetcher, &stubVerifier{}, limiter)

	if resp := postReceive(t, srv, sub); resp.StatusCode != http.StatusOK {
		t.Fatalf("first request status = %d", resp.StatusCode)
	}
	resp := postReceive(t, srv, sub)
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d", resp.StatusCode)
	}
	if resp.Header.Get("Retry-After") == "" {
		t.Fatal("missing Retry-After header")
	}
}

func TestRequestIDEchoed(t *testing.T) {
	srv := newTestServer(t, config.Config{}, &stubFetcher{}, &stubVerifier{}, nil)
	req, err := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("X-Request-ID", "req-42")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer resp.Body.Close()
	if got := resp.Header.Get("X-Request-ID"); got != "req-42" {
		t.Fatalf("X-Request-ID = %q", got)
	}

	resp2, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.Header.Get("X-Request-ID") == "" {
		t.Fatal("no request id minted")
	}
}
