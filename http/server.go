package http

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	x402 "github.com/algox402/algox402-go"
)

// FacilitatorServer exposes a Facilitator over HTTP:
//
//	POST /verify    check a payment against requirements
//	POST /settle    execute a payment at most once
//	GET  /supported list settleable (scheme, network) pairs
//	GET  /health    liveness probe
type FacilitatorServer struct {
	facilitator *x402.Facilitator
	logger      *log.Logger
}

// NewFacilitatorServer wraps a facilitator for HTTP serving.
func NewFacilitatorServer(facilitator *x402.Facilitator, logger *log.Logger) *FacilitatorServer {
	if logger == nil {
		logger = log.Default()
	}
	return &FacilitatorServer{facilitator: facilitator, logger: logger}
}

// Router builds the gin engine serving the facilitator endpoints.
func (s *FacilitatorServer) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.POST("/verify", s.handleVerify)
	router.POST("/settle", s.handleSettle)
	router.GET("/supported", s.handleSupported)
	router.GET("/health", s.handleHealth)
	return router
}

func (s *FacilitatorServer) readRequest(c *gin.Context) (*x402.VerifyRequest, bool) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return nil, false
	}
	if err := validateFacilitatorRequest(body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "detail": err.Error()})
		return nil, false
	}
	var request x402.VerifyRequest
	if err := json.Unmarshal(body, &request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "detail": err.Error()})
		return nil, false
	}
	if request.X402Version != x402.X402Version {
		c.JSON(http.StatusBadRequest, gin.H{"error": string(x402.ReasonUnsupportedVersion)})
		return nil, false
	}
	return &request, true
}

func (s *FacilitatorServer) handleVerify(c *gin.Context) {
	request, ok := s.readRequest(c)
	if !ok {
		return
	}

	response, err := s.facilitator.Verify(c.Request.Context(), request.PaymentHeader, request.PaymentRequirements)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}

func (s *FacilitatorServer) handleSettle(c *gin.Context) {
	request, ok := s.readRequest(c)
	if !ok {
		return
	}

	response, err := s.facilitator.Settle(c.Request.Context(), request.PaymentHeader, request.PaymentRequirements)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}

func (s *FacilitatorServer) handleSupported(c *gin.Context) {
	c.JSON(http.StatusOK, s.facilitator.Supported())
}

func (s *FacilitatorServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// writeError maps protocol errors (malformed headers, unregistered schemes)
// to 400 and everything else to a 500 internal_error. Internal detail is
// logged, never echoed.
func (s *FacilitatorServer) writeError(c *gin.Context, err error) {
	var paymentErr *x402.PaymentError
	if errors.As(err, &paymentErr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": paymentErr.Code, "detail": paymentErr.Message})
		return
	}
	s.logger.Printf("facilitator error: %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": string(x402.ReasonInternalError)})
}
