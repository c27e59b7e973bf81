package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/algorand/go-algorand-sdk/v2/crypto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	x402 "github.com/algox402/algox402-go"
	"github.com/algox402/algox402-go/mechanisms/avm"
)

type accountSigner struct {
	account crypto.Account
}

func (s accountSigner) Address() string {
	return s.account.Address.String()
}

func (s accountSigner) SignBytes(message []byte) ([]byte, error) {
	return crypto.SignBytes(s.account.PrivateKey, message)
}

type stubCustody struct {
	calls int
	err   error
}

func (s *stubCustody) Address() string { return "CUSTODY" }

func (s *stubCustody) SendPayment(ctx context.Context, receiver string, amount uint64, assetID uint64, note []byte) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return fmt.Sprintf("AVMTX%d", s.calls), nil
}

func testStack(t *testing.T) (*gin.Engine, accountSigner, *stubCustody) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	custody := &stubCustody{}
	facilitator := x402.NewFacilitator(
		x402.WithLogger(log.New(io.Discard, "", 0)),
	).Register(x402.NetworkAlgorandTestnet, avm.NewExactAvmFacilitator(custody))

	server := NewFacilitatorServer(facilitator, log.New(io.Discard, "", 0))
	payer := accountSigner{account: crypto.GenerateAccount()}
	return server.Router(), payer, custody
}

func serverRequirements() x402.PaymentRequirements {
	return x402.PaymentRequirements{
		Scheme:            x402.SchemeExact,
		Network:           x402.NetworkAlgorandTestnet,
		MaxAmountRequired: "1000",
		PayTo:             "SELLER",
		Asset:             "0",
		Resource:          "/api/data",
	}
}

func signedHeader(t *testing.T, payer accountSigner) string {
	t.Helper()
	header, err := avm.NewExactAvmClient(payer).NewPaymentHeader(serverRequirements(), time.Minute)
	require.NoError(t, err)
	return header
}

func postJSON(t *testing.T, router *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestServerVerify(t *testing.T) {
	router, payer, _ := testStack(t)

	w := postJSON(t, router, "/verify", x402.VerifyRequest{
		X402Version:         x402.X402Version,
		PaymentHeader:       signedHeader(t, payer),
		PaymentRequirements: serverRequirements(),
	})
	require.Equal(t, http.StatusOK, w.Code)

	var response x402.VerifyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.True(t, response.IsValid, "reason: %s", response.InvalidReason)
	assert.Equal(t, payer.Address(), response.Payer)
}

func TestServerVerifyInvalidPayment(t *testing.T) {
	router, payer, _ := testStack(t)

	requirements := serverRequirements()
	requirements.MaxAmountRequired = "1"

	w := postJSON(t, router, "/verify", x402.VerifyRequest{
		X402Version:         x402.X402Version,
		PaymentHeader:       signedHeader(t, payer),
		PaymentRequirements: requirements,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var response x402.VerifyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.False(t, response.IsValid)
	assert.Equal(t, x402.ReasonAmountTooLarge, response.InvalidReason)
}

func TestServerSchemaValidation(t *testing.T) {
	router, _, _ := testStack(t)

	w := postJSON(t, router, "/verify", map[string]interface{}{
		"x402Version": x402.X402Version,
		// paymentHeader missing
		"paymentRequirements": serverRequirements(),
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_request")
}

func TestServerRejectsWrongRequestVersion(t *testing.T) {
	router, payer, _ := testStack(t)

	w := postJSON(t, router, "/verify", x402.VerifyRequest{
		X402Version:         99,
		PaymentHeader:       signedHeader(t, payer),
		PaymentRequirements: serverRequirements(),
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unsupported_x402_version")
}

func TestServerMalformedHeaderIs400(t *testing.T) {
	router, _, _ := testStack(t)

	w := postJSON(t, router, "/verify", x402.VerifyRequest{
		X402Version:         x402.X402Version,
		PaymentHeader:       "!!!garbage!!!",
		PaymentRequirements: serverRequirements(),
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServerSettleIdempotent(t *testing.T) {
	router, payer, custody := testStack(t)
	header := signedHeader(t, payer)

	request := x402.SettleRequest{
		X402Version:         x402.X402Version,
		PaymentHeader:       header,
		PaymentRequirements: serverRequirements(),
	}

	w := postJSON(t, router, "/settle", request)
	require.Equal(t, http.StatusOK, w.Code)
	var first x402.SettleResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &first))
	require.True(t, first.Success)
	assert.Equal(t, "AVMTX1", first.Transaction)

	w = postJSON(t, router, "/settle", request)
	require.Equal(t, http.StatusOK, w.Code)
	var second x402.SettleResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &second))
	assert.True(t, second.Success)
	assert.Equal(t, first.Transaction, second.Transaction)
	assert.Equal(t, 1, custody.calls)
}

func TestServerSupportedAndHealth(t *testing.T) {
	router, _, _ := testStack(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/supported", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var supported x402.SupportedResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &supported))
	require.Len(t, supported.Kinds, 1)
	assert.Equal(t, x402.NetworkAlgorandTestnet, supported.Kinds[0].Network)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestFacilitatorClientRoundTrip(t *testing.T) {
	router, payer, _ := testStack(t)
	upstream := httptest.NewServer(router)
	defer upstream.Close()

	client := NewFacilitatorClient(upstream.URL)

	verify, err := client.Verify(context.Background(), signedHeader(t, payer), serverRequirements())
	require.NoError(t, err)
	assert.True(t, verify.IsValid)

	header := signedHeader(t, payer)
	settle, err := client.Settle(context.Background(), header, serverRequirements())
	require.NoError(t, err)
	assert.True(t, settle.Success)
	assert.NotEmpty(t, settle.Transaction)

	supported, err := client.Supported(context.Background())
	require.NoError(t, err)
	assert.Len(t, supported.Kinds, 1)
}

func TestFacilitatorClientSurfacesHTTPErrors(t *testing.T) {
	router, _, _ := testStack(t)
	upstream := httptest.NewServer(router)
	defer upstream.Close()

	client := NewFacilitatorClient(upstream.URL)
	_, err := client.Verify(context.Background(), "!!!garbage!!!", serverRequirements())
	assert.Error(t, err)
}
