package mcp

import (
	"encoding/json"
	"math"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// visitor holds the limiter for one client address and when it last
// made a request.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipRateLimiter keeps one rate.Limiter per client address.
type ipRateLimiter struct {
	mu       sync.Mutex
	visitors map[netip.Addr]*visitor
	limit    rate.Limit
	burst    int
	proxies  []netip.Prefix
	now      func() time.Time
}

func newIPRateLimiter(rps float64, burst int, proxies []netip.Prefix) *ipRateLimiter {
	return &ipRateLimiter{
		visitors: make(map[netip.Addr]*visitor),
		limit:    rate.Limit(rps),
		burst:    burst,
		proxies:  proxies,
		now:      time.Now,
	}
}

func (l *ipRateLimiter) enabled() bool {
	return l != nil && l.limit > 0 && l.burst > 0
}

// allow spends one token from the bucket for addr. Unparseable addresses
// share the zero-value bucket.
func (l *ipRateLimiter) allow(addr netip.Addr) bool {
	if !l.enabled() {
		return true
	}
	now := l.now()
	return l.getVisitor(addr, now).AllowN(now, 1)
}

func (l *ipRateLimiter) getVisitor(addr netip.Addr, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, ok := l.visitors[addr]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[addr] = v
	}
	v.lastSeen = now
	return v.limiter
}

// cleanup drops visitors idle for longer than maxAge.
func (l *ipRateLimiter) cleanup(maxAge time.Duration) {
	if l == nil || maxAge <= 0 {
		return
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()
	for addr, v := range l.visitors {
		if now.Sub(v.lastSeen) > maxAge {
			delete(l.visitors, addr)
		}
	}
}

// retryAfter is the whole number of seconds one token takes to refill.
func (l *ipRateLimiter) retryAfter() string {
	secs := math.Ceil(1 / float64(l.limit))
	if secs < 1 || math.IsInf(secs, 0) || math.IsNaN(secs) {
		secs = 1
	}
	return strconv.FormatInt(int64(secs), 10)
}

func (l *ipRateLimiter) trusted(addr netip.Addr) bool {
	for _, p := range l.proxies {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// clientAddr returns the address to rate limit r under. X-Forwarded-For
// is read only when the peer is a trusted proxy. The client is the
// rightmost hop that is not itself a trusted proxy, else the leftmost
// valid hop. forwarded reports whether the address came from the header.
func (l *ipRateLimiter) clientAddr(r *http.Request) (addr netip.Addr, forwarded bool) {
	peer := parseAddr(r.RemoteAddr)
	if !peer.IsValid() || !l.trusted(peer) {
		return peer, false
	}

	hops := strings.Split(strings.Join(r.Header.Values("X-Forwarded-For"), ","), ",")
	var last netip.Addr
	for i := len(hops) - 1; i >= 0; i-- {
		hop := parseAddr(hops[i])
		if !hop.IsValid() {
			break
		}
		if !l.trusted(hop) {
			return hop, true
		}
		last = hop
	}
	if last.IsValid() {
		return last, true
	}
	return peer, false
}

// exempt reports whether a request bypasses limiting. Only a loopback peer
// is exempt; a forwarded address never is.
func exempt(addr netip.Addr, forwarded bool) bool {
	return !forwarded && addr.IsValid() && addr.IsLoopback()
}

// parseAddr accepts "ip", "ip:port", "[ip]:port" and zoned IPv6 forms.
func parseAddr(s string) netip.Addr {
	s = strings.TrimSpace(s)
	if ap, err := netip.ParseAddrPort(s); err == nil {
		return ap.Addr().Unmap().WithZone("")
	}
	if addr, err := netip.ParseAddr(strings.Trim(s, "[]")); err == nil {
		return addr.Unmap().WithZone("")
	}
	return netip.Addr{}
}

// rateLimit rejects over-budget clients with 429 and a JSON-RPC error body
// so MCP clients can surface it.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	if !s.limiter.enabled() {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		addr, forwarded := s.limiter.clientAddr(r)
		if exempt(addr, forwarded) || s.limiter.allow(addr) {
			next.ServeHTTP(w, r)
			return
		}
		s.logger.Warn("rate limited",
			zap.Stringer("client_ip", addr),
			zap.Bool("forwarded", forwarded),
			zap.String("path", r.URL.Path),
		)

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Retry-After", s.limiter.retryAfter())
		w.WriteHeader(http.StatusTooManyRequests)
		body := mcpgo.JSONRPCError{JSONRPC: mcpgo.JSONRPC_VERSION, ID: mcpgo.NewRequestId(nil)}
		body.Error.Code = mcpgo.INTERNAL_ERROR
		body.Error.Message = "rate limit exceeded"
		_ = json.NewEncoder(w).Encode(body)
	})
}
