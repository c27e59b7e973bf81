package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/algorand/go-algorand-sdk/v2/crypto"
	"github.com/gin-gonic/gin"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	x402 "github.com/algox402/algox402-go"
	"github.com/algox402/algox402-go/mechanisms/avm"
)

type fakeProcessor struct {
	verify    x402.VerifyResponse
	verifyErr error
	settle    x402.SettleResponse
	settleErr error

	settleCalls int
}

func (p *fakeProcessor) Verify(ctx context.Context, paymentHeader string, requirements x402.PaymentRequirements) (x402.VerifyResponse, error) {
	return p.verify, p.verifyErr
}

func (p *fakeProcessor) Settle(ctx context.Context, paymentHeader string, requirements x402.PaymentRequirements) (x402.SettleResponse, error) {
	p.settleCalls++
	return p.settle, p.settleErr
}

func (p *fakeProcessor) Supported(ctx context.Context) (x402.SupportedResponse, error) {
	return x402.SupportedResponse{}, nil
}

func gateRequirements() x402.PaymentRequirements {
	return x402.PaymentRequirements{
		Scheme:            x402.SchemeExact,
		Network:           x402.NetworkAlgorandTestnet,
		MaxAmountRequired: "1000",
		PayTo:             "SELLER",
		Asset:             "0",
		Resource:          "/api/data",
	}
}

func TestGateChallengesWithoutPayment(t *testing.T) {
	processor := &fakeProcessor{}
	gate := NewPaymentGate(processor, gateRequirements())

	result := gate.Evaluate(context.Background(), "")
	assert.Equal(t, GateChallenge, result.Outcome)
	assert.Equal(t, http.StatusPaymentRequired, result.Status)
	require.NotNil(t, result.Body)
	assert.Empty(t, result.Body.Error)
	require.Len(t, result.Body.Accepts, 1)
	assert.Equal(t, "1000", result.Body.Accepts[0].MaxAmountRequired)
	assert.Equal(t, 0, processor.settleCalls)
}

func TestGateRejectsInvalidPayment(t *testing.T) {
	processor := &fakeProcessor{
		verify: x402.VerifyResponse{IsValid: false, InvalidReason: x402.ReasonInvalidSignature},
	}
	gate := NewPaymentGate(processor, gateRequirements())

	result := gate.Evaluate(context.Background(), "e30=")
	assert.Equal(t, GateRejected, result.Outcome)
	assert.Equal(t, http.StatusPaymentRequired, result.Status)
	assert.Equal(t, x402.ReasonInvalidSignature, result.Reason)
	require.NotNil(t, result.Body)
	assert.Equal(t, string(x402.ReasonInvalidSignature), result.Body.Error)
	assert.Equal(t, 0, processor.settleCalls, "settle must not run for invalid payments")
}

func TestGateRejectsFailedSettlement(t *testing.T) {
	processor := &fakeProcessor{
		verify: x402.VerifyResponse{IsValid: true, Payer: "PAYER"},
		settle: x402.SettleResponse{Success: false, ErrorReason: x402.ReasonOnchainSettleFailed},
	}
	gate := NewPaymentGate(processor, gateRequirements())

	result := gate.Evaluate(context.Background(), "e30=")
	assert.Equal(t, GateRejected, result.Outcome)
	assert.Equal(t, x402.ReasonOnchainSettleFailed, result.Reason)
}

func TestGateProcessorErrorIsInternal(t *testing.T) {
	processor := &fakeProcessor{verifyErr: errors.New("facilitator unreachable")}
	gate := NewPaymentGate(processor, gateRequirements())

	result := gate.Evaluate(context.Background(), "e30=")
	assert.Equal(t, GateRejected, result.Outcome)
	assert.Equal(t, http.StatusInternalServerError, result.Status)
	assert.Equal(t, x402.ReasonInternalError, result.Reason)
	assert.NotContains(t, result.Body.Error, "unreachable")
}

func TestGateGrantsSettledPayment(t *testing.T) {
	processor := &fakeProcessor{
		verify: x402.VerifyResponse{IsValid: true, Payer: "PAYER"},
		settle: x402.SettleResponse{
			Success:     true,
			Transaction: "TX-1",
			Network:     x402.NetworkAlgorandTestnet,
			Payer:       "PAYER",
		},
	}
	gate := NewPaymentGate(processor, gateRequirements())

	result := gate.Evaluate(context.Background(), "e30=")
	assert.Equal(t, GateGranted, result.Outcome)
	assert.Equal(t, "PAYER", result.Payer)
	assert.Equal(t, "TX-1", result.Transaction)

	settled, err := x402.DecodeSettlementHeader(result.ResponseHeader)
	require.NoError(t, err)
	assert.True(t, settled.Success)
	assert.Equal(t, "TX-1", settled.Transaction)
}

func TestGateSelectsMatchingRequirements(t *testing.T) {
	processor := &fakeProcessor{
		verify: x402.VerifyResponse{IsValid: true, Payer: "PAYER"},
		settle: x402.SettleResponse{Success: true, Transaction: "TX-1", Payer: "PAYER"},
	}
	avmReq := gateRequirements()
	evmReq := gateRequirements()
	evmReq.Network = x402.NetworkBaseSepolia
	gate := NewPaymentGate(processor, evmReq, avmReq)

	header, err := x402.EncodePaymentHeader(&x402.PaymentHeader{
		X402Version: x402.X402Version,
		Scheme:      x402.SchemeExact,
		Network:     x402.NetworkAlgorandTestnet,
		Payload:     map[string]interface{}{},
	})
	require.NoError(t, err)

	selected := gate.selectRequirements(header)
	assert.Equal(t, x402.NetworkAlgorandTestnet, selected.Network)

	selected = gate.selectRequirements("not-a-header")
	assert.Equal(t, x402.NetworkBaseSepolia, selected.Network, "fallback is the first accepted entry")
}

// End-to-end through gin: an embedded facilitator behind the middleware.
func TestGinMiddlewarePaidRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)

	custody := &stubCustody{}
	facilitator := x402.NewFacilitator().
		Register(x402.NetworkAlgorandTestnet, avm.NewExactAvmFacilitator(custody))
	gate := NewPaymentGate(&x402.LocalProcessor{Facilitator: facilitator}, gateRequirements())

	router := gin.New()
	router.GET("/api/data", GinMiddleware(gate), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"payer": c.GetString(PayerContextKey)})
	})

	// No payment: challenge.
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/data", nil))
	require.Equal(t, http.StatusPaymentRequired, w.Code)
	var challenge x402.PaymentRequired
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &challenge))
	require.Len(t, challenge.Accepts, 1)

	// Signed payment: granted with a settlement receipt.
	payer := accountSigner{account: crypto.GenerateAccount()}
	header, err := avm.NewExactAvmClient(payer).NewPaymentHeader(challenge.Accepts[0], time.Minute)
	require.NoError(t, err)

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/data", nil)
	req.Header.Set(PaymentHeader, header)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), payer.Address())
	assert.Equal(t, 1, custody.calls)

	settled, err := x402.DecodeSettlementHeader(w.Header().Get(PaymentResponseHeader))
	require.NoError(t, err)
	assert.True(t, settled.Success)
	assert.Equal(t, payer.Address(), settled.Payer)
}

func TestEchoMiddlewarePaidRequest(t *testing.T) {
	custody := &stubCustody{}
	facilitator := x402.NewFacilitator().
		Register(x402.NetworkAlgorandTestnet, avm.NewExactAvmFacilitator(custody))
	gate := NewPaymentGate(&x402.LocalProcessor{Facilitator: facilitator}, gateRequirements())

	e := echo.New()
	e.GET("/api/data", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"payer": c.Get(PayerContextKey).(string)})
	}, EchoMiddleware(gate))

	w := httptest.NewRecorder()
	e.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/data", nil))
	require.Equal(t, http.StatusPaymentRequired, w.Code)

	payer := accountSigner{account: crypto.GenerateAccount()}
	header, err := avm.NewExactAvmClient(payer).NewPaymentHeader(gateRequirements(), time.Minute)
	require.NoError(t, err)

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/data", nil)
	req.Header.Set(PaymentHeader, header)
	e.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), payer.Address())
	assert.NotEmpty(t, w.Header().Get(PaymentResponseHeader))
}
