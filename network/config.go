package network

import (
	"context"
	"fmt"
	"strings"
)

// EnvEndpoints overrides the endpoint list (comma-separated).
const EnvEndpoints = "ETOKEN_ENDPOINTS"

// NetworkPresets lists the default indexer endpoints per network, in
// priority order. Testnet and regtest have no preset and require explicit
// configuration.
var NetworkPresets = map[string][]string{
	"mainnet": {
		"https://chronik.fabien.cash/xec",
		"https://chronik.pay2stay.com/xec",
		"https://chronik.be.cash/xec",
	},
}

// EndpointSources are the inputs to ResolveEndpoints.
type EndpointSources struct {
	Network  string
	Config   []string          // from the config file
	Flags    []string          // from the command line
	Env      map[string]string // process environment
	DNSSeed  string            // optional discovery domain
	Resolver TXTResolver       // used when DNSSeed is set
}

// ResolveEndpoints picks the endpoint list from, in increasing priority:
//  1. Network presets
//  2. DNS TXT discovery under DNSSeed
//  3. The config file
//  4. The ETOKEN_ENDPOINTS environment variable
//  5. Command-line flags
//
// A higher layer replaces the list rather than merging into it. A failed DNS
// discovery is ignored when a lower layer already provides endpoints.
func ResolveEndpoints(ctx context.Context, src EndpointSources) ([]string, error) {
	result := append([]string(nil), NetworkPresets[src.Network]...)

	if src.DNSSeed != "" && src.Resolver != nil {
		found, err := DiscoverEndpoints(ctx, src.Resolver, src.DNSSeed)
		switch {
		case err == nil:
			result = found
		case len(result) == 0:
			return nil, err
		}
	}

	if len(src.Config) > 0 {
		result = append([]string(nil), src.Config...)
	}

	if v := strings.TrimSpace(src.Env[EnvEndpoints]); v != "" {
		result = splitEndpoints(v)
	}

	if len(src.Flags) > 0 {
		result = append([]string(nil), src.Flags...)
	}

	if len(result) == 0 {
		return nil, fmt.Errorf("%w: %s requires explicit endpoints (set --endpoint, %s, or config file)",
			ErrNoEndpoints, src.Network, EnvEndpoints)
	}
	return dedupe(result), nil
}

func splitEndpoints(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
