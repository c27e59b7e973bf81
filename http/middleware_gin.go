package http

import (
	"github.com/gin-gonic/gin"
)

// PayerContextKey is the gin context key under which the paying address is
// stored for downstream handlers.
const PayerContextKey = "x402.payer"

// GinMiddleware returns a gin middleware enforcing payment through the gate.
// Unpaid requests receive a 402 challenge; settled requests proceed with the
// settlement receipt in the X-Payment-Response header.
func GinMiddleware(gate *PaymentGate) gin.HandlerFunc {
	return func(c *gin.Context) {
		result := gate.Evaluate(c.Request.Context(), c.GetHeader(PaymentHeader))
		switch result.Outcome {
		case GateChallenge, GateRejected:
			c.AbortWithStatusJSON(result.Status, result.Body)
		case GateGranted:
			c.Header(PaymentResponseHeader, result.ResponseHeader)
			c.Set(PayerContextKey, result.Payer)
			c.Next()
		}
	}
}
