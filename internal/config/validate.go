package config

import (
	"fmt"
	"net/netip"
	"strings"
)

var (
	Transports     = []string{TransportStreamableHTTP, TransportStdio}
	Providers      = []string{ProviderGroq, ProviderOpenAI, ProviderGemini, ProviderMock}
	SearchBackends = []string{SearchBackendDuckDuckGo}
	LogLevels      = []string{"debug", "info", "warn", "error"}
	LogFormats     = []string{"console", "json"}
)

// Validate checks ranges and enum fields. A missing API key is not an
// error: the resolver degrades to mock responses instead.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: nil config", ErrInvalid)
	}
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port=%d out of range 0-65535", ErrInvalid, cfg.Server.Port)
	}
	if !strings.HasPrefix(cfg.Server.MCPPath, "/") {
		return fmt.Errorf("%w: server.mcp_path=%q must start with \"/\"", ErrInvalid, cfg.Server.MCPPath)
	}
	if cfg.Server.PortRangeStart < 1 || cfg.Server.PortRangeEnd > 65536 || cfg.Server.PortRangeStart >= cfg.Server.PortRangeEnd {
		return fmt.Errorf("%w: port range [%d, %d) is invalid", ErrInvalid, cfg.Server.PortRangeStart, cfg.Server.PortRangeEnd)
	}
	if cfg.Server.RateLimitRPS < 0 || cfg.Server.RateLimitBurst < 0 {
		return fmt.Errorf("%w: rate limit values must be >= 0", ErrInvalid)
	}
	for _, p := range cfg.Server.TrustedProxies {
		if _, err := ParseProxy(p); err != nil {
			return fmt.Errorf("%w: server.trusted_proxies entry %q is not an IP or CIDR", ErrInvalid, p)
		}
	}
	if cfg.Search.MaxResults < 1 || cfg.Search.MaxResults > DefaultSearchMaxResults {
		return fmt.Errorf("%w: search.max_results=%d must be in 1-%d", ErrInvalid, cfg.Search.MaxResults, DefaultSearchMaxResults)
	}

	enums := []struct {
		key     string
		value   string
		allowed []string
	}{
		{"server.transport", cfg.Server.Transport, Transports},
		{"llm.provider", cfg.LLM.Provider, Providers},
		{"search.backend", cfg.Search.Backend, SearchBackends},
		{"log.level", cfg.Log.Level, LogLevels},
		{"log.format", cfg.Log.Format, LogFormats},
	}
	for _, e := range enums {
		if !stringIn(e.value, e.allowed) {
			return fmt.Errorf("%w: %s=%q; allowed: %s", ErrInvalid, e.key, e.value, strings.Join(e.allowed, ", "))
		}
	}
	return nil
}

// ParseProxy reads a trusted proxy entry. A bare address is a single-host
// prefix.
func ParseProxy(s string) (netip.Prefix, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, "/") {
		p, err := netip.ParsePrefix(s)
		if err != nil {
			return netip.Prefix{}, err
		}
		return p.Masked(), nil
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Prefix{}, err
	}
	addr = addr.Unmap()
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

func stringIn(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
