// Package http provides the HTTP surfaces of the payment protocol: the
// facilitator server and client, and the payment gate middleware for
// resource servers.
package http

// Protocol header names.
const (
	// PaymentHeader carries the base64 payment payload on a request.
	PaymentHeader = "X-Payment"
	// PaymentResponseHeader carries the base64 settlement result on a
	// paid response.
	PaymentResponseHeader = "X-Payment-Response"
)
