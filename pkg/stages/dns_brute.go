package stages

import (
	"context"
	"sync"

	"github.com/miekg/dns"

	"golang.org/x/sync/semaphore"
)

// MinerDNSResolver is the built-in fallback brute resolver used when ffuf
// is not installed: it resolves "<word>.<target>" A records directly
// against a configured nameserver, bounded by its own small worker cap so
// it never needs the main Governor (DNS lookups are cheap and local).
type MinerDNSResolver struct {
	Nameserver string // "host:53"; defaults to "1.1.1.1:53" if empty
	Concurrent int64  // defaults to 50 if zero
}

// Resolve returns every "<word>.<target>" candidate with at least one A
// record, sorted by unionSorted at the caller.
func (m MinerDNSResolver) Resolve(ctx context.Context, target string, words []string) []string {
	ns := m.Nameserver
	if ns == "" {
		ns = "1.1.1.1:53"
	}
	concurrency := m.Concurrent
	if concurrency <= 0 {
		concurrency = 50
	}

	sem := semaphore.NewWeighted(concurrency)
	client := &dns.Client{}
	var mu sync.Mutex
	var found []string
	var wg sync.WaitGroup

	for _, word := range words {
		if word == "" {
			continue
		}
		candidate := word + "." + target
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(host string) {
			defer wg.Done()
			defer sem.Release(1)

			msg := new(dns.Msg)
			msg.SetQuestion(dns.Fqdn(host), dns.TypeA)
			resp, _, err := client.ExchangeContext(ctx, msg, ns)
			if err != nil || resp == nil || resp.Rcode != dns.RcodeSuccess {
				return
			}
			for _, rr := range resp.Answer {
				if _, ok := rr.(*dns.A); ok {
					mu.Lock()
					found = append(found, host)
					mu.Unlock()
					return
				}
			}
		}(candidate)
	}
	wg.Wait()
	return found
}
