package http

import (
	"github.com/labstack/echo/v4"
)

// EchoMiddleware returns an echo middleware enforcing payment through the
// gate, mirroring GinMiddleware for echo-based services.
func EchoMiddleware(gate *PaymentGate) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			result := gate.Evaluate(c.Request().Context(), c.Request().Header.Get(PaymentHeader))
			switch result.Outcome {
			case GateChallenge, GateRejected:
				return c.JSON(result.Status, result.Body)
			default:
				c.Response().Header().Set(PaymentResponseHeader, result.ResponseHeader)
				c.Set(PayerContextKey, result.Payer)
				return next(c)
			}
		}
	}
}
