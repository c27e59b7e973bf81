package directproof

import (
	"sync"
	"time"
)

// RequestStore holds issued payment requests by nonce until they are paid or
// expire. Entries are never evicted implicitly: a request for which a buyer
// already paid on chain must stay claimable, so expired entries are only
// removed by Purge or by being consumed.
type RequestStore struct {
	mu       sync.Mutex
	requests map[string]PaymentRequest
}

// NewRequestStore creates an empty store.
func NewRequestStore() *RequestStore {
	return &RequestStore{
		requests: make(map[string]PaymentRequest),
	}
}

// Put records an issued request under its nonce.
func (s *RequestStore) Put(request PaymentRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[request.Nonce] = request
}

// Get looks up a request by nonce.
func (s *RequestStore) Get(nonce string) (PaymentRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	request, ok := s.requests[nonce]
	return request, ok
}

// Delete removes a request. Called after a proof is accepted so the same
// payment can never grant access twice.
func (s *RequestStore) Delete(nonce string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.requests, nonce)
}

// Purge drops every request whose expiry, plus the given grace, lies before
// now. The grace keeps a just-expired request around long enough for an
// in-flight verification to report payment_expired instead of not-found.
func (s *RequestStore) Purge(now time.Time, grace time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-grace).Unix()
	removed := 0
	for nonce, request := range s.requests {
		if request.Expiry < cutoff {
			delete(s.requests, nonce)
			removed++
		}
	}
	return removed
}

// Len reports the number of outstanding requests.
func (s *RequestStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}
