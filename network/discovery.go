package network

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/miekg/dns"
)

const (
	// defaultUpstream is used when no system resolver is configured.
	defaultUpstream = "8.8.8.8:53"

	dnsTimeout   = 5 * time.Second
	edns0BufSize = 4096

	// endpointRecordTag marks TXT records that advertise an indexer.
	endpointRecordTag = "v=etoken1"
)

// TXTResolver looks up TXT records.
type TXTResolver interface {
	LookupTXT(ctx context.Context, name string) ([]string, error)
}

// DNSResolver queries an upstream recursive resolver with miekg/dns.
type DNSResolver struct {
	// Upstream is the resolver address, e.g. "8.8.8.8:53".
	Upstream string

	// RequireDNSSEC rejects answers without the AD flag.
	RequireDNSSEC bool
}

// NewDNSResolver creates a resolver for upstream. An empty upstream uses the
// first nameserver in /etc/resolv.conf, or 8.8.8.8:53.
func NewDNSResolver(upstream string, requireDNSSEC bool) *DNSResolver {
	if upstream == "" {
		upstream = systemUpstream()
	}
	return &DNSResolver{Upstream: upstream, RequireDNSSEC: requireDNSSEC}
}

func systemUpstream() string {
	cfg, err := dns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil || len(cfg.Servers) == 0 {
		return defaultUpstream
	}
	return net.JoinHostPort(cfg.Servers[0], cfg.Port)
}

// LookupTXT implements TXTResolver.
func (r *DNSResolver) LookupTXT(ctx context.Context, name string) ([]string, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), dns.TypeTXT)
	msg.RecursionDesired = true
	msg.SetEdns0(edns0BufSize, r.RequireDNSSEC)

	client := &dns.Client{Timeout: dnsTimeout}
	resp, _, err := client.ExchangeContext(ctx, msg, r.Upstream)
	if err != nil {
		return nil, fmt.Errorf("%w: TXT %s: %w", ErrDNSLookupFailed, name, err)
	}
	if resp.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf("%w: TXT %s: rcode %s", ErrDNSLookupFailed, name, dns.RcodeToString[resp.Rcode])
	}
	if r.RequireDNSSEC && !resp.AuthenticatedData {
		return nil, fmt.Errorf("%w: AD flag not set for TXT %s", ErrDNSLookupFailed, name)
	}

	var txts []string
	for _, rr := range resp.Answer {
		if txt, ok := rr.(*dns.TXT); ok {
			txts = append(txts, strings.Join(txt.Txt, ""))
		}
	}
	return txts, nil
}

type discovered struct {
	url  string
	prio int
}

// DiscoverEndpoints reads indexer endpoints published as TXT records under
// domain. Records look like "v=etoken1 prio=10 url=https://host/xec" and are
// returned by ascending prio, then URL. Records without the tag are skipped.
func DiscoverEndpoints(ctx context.Context, resolver TXTResolver, domain string) ([]string, error) {
	txts, err := resolver.LookupTXT(ctx, domain)
	if err != nil {
		return nil, err
	}

	var found []discovered
	seen := make(map[string]bool)
	for _, txt := range txts {
		d, ok := parseEndpointRecord(txt)
		if !ok || seen[d.url] {
			continue
		}
		seen[d.url] = true
		found = append(found, d)
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("%w: no endpoint records under %s", ErrDNSLookupFailed, domain)
	}

	sort.SliceStable(found, func(i, j int) bool {
		if found[i].prio != found[j].prio {
			return found[i].prio < found[j].prio
		}
		return found[i].url < found[j].url
	})

	urls := make([]string, len(found))
	for i, d := range found {
		urls[i] = d.url
	}
	return urls, nil
}

func parseEndpointRecord(txt string) (discovered, bool) {
	fields := strings.Fields(txt)
	if len(fields) == 0 || fields[0] != endpointRecordTag {
		return discovered{}, false
	}
	d := discovered{prio: 100}
	for _, f := range fields[1:] {
		key, value, ok := strings.Cut(f, "=")
		if !ok {
			continue
		}
		switch key {
		case "url":
			u, err := url.Parse(value)
			if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
				return discovered{}, false
			}
			d.url = value
		case "prio":
			p, err := strconv.Atoi(value)
			if err != nil || p < 0 {
				return discovered{}, false
			}
			d.prio = p
		}
	}
	return d, d.url != ""
}
