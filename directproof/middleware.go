package directproof

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// NonceHeader names the request header carrying the payment request nonce
// when a proof is presented.
const NonceHeader = "X-Algox402-Nonce"

// ProofQueryParam names the query parameter carrying the payment
// transaction ID.
const ProofQueryParam = "payment_proof"

// Middleware returns a gin middleware guarding a route with the
// direct-proof flow. Requests without a proof get a 402 carrying the
// payment request; requests with an invalid proof get a 402 with the
// rejection code; valid proofs pass through.
func Middleware(gate *Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		description := fmt.Sprintf("%s %s", c.Request.Method, c.Request.URL.Path)
		result := gate.Evaluate(
			c.Request.Context(),
			c.Query(ProofQueryParam),
			c.GetHeader(NonceHeader),
			description,
		)

		switch result.Outcome {
		case OutcomeChallenge:
			c.AbortWithStatusJSON(http.StatusPaymentRequired, gin.H{
				"payment": result.Challenge,
			})
		case OutcomeRejected:
			body := gin.H{"error": result.ErrorCode}
			if result.Detail != "" {
				body["detail"] = result.Detail
			}
			c.AbortWithStatusJSON(http.StatusPaymentRequired, body)
		case OutcomeGranted:
			c.Next()
		}
	}
}
