// Package discovery is the device-resolution boundary: it turns whatever a
// caller's mDNS/DNS-SD client resolves into the identity this library's
// device package needs to dial. It deliberately ships no resolution
// mechanism of its own; a caller supplies a Resolver, and this package only
// reads the "fn" TXT attribute every Cast receiver advertises.
package discovery

import (
	"context"
	"strconv"
	"sync"
)

// ResolvedService is the minimum a caller's resolver must produce for one
// advertised receiver. Addr is a dotted-quad or hostname; Attributes holds
// the service's TXT record key/value pairs, of which only "fn" (friendly
// name) is consumed here.
type ResolvedService struct {
	InstanceName string
	Addr         string
	Port         int
	Attributes   map[string]string
}

// Resolver is satisfied by a caller-supplied mDNS/DNS-SD client. Resolve
// should close the returned channel once the browse either completes or ctx
// is cancelled.
type Resolver interface {
	Resolve(ctx context.Context) (<-chan ResolvedService, error)
}

// Identity names one receiver discoverable or reachable on the network.
type Identity struct {
	ID           string
	Address      string
	FriendlyName string
}

func (svc ResolvedService) address() string {
	if svc.Port == 0 {
		return svc.Addr
	}
	return svc.Addr + ":" + strconv.Itoa(svc.Port)
}

func friendlyName(svc ResolvedService) string {
	if name, ok := svc.Attributes["fn"]; ok && name != "" {
		return name
	}
	return svc.InstanceName
}

// Browser accumulates the Identity of every service a Resolver surfaces and
// lets callers either stream or snapshot them.
type Browser struct {
	resolver Resolver

	mu    sync.Mutex
	known map[string]Identity
}

// NewBrowser constructs a Browser over resolver.
func NewBrowser(resolver Resolver) *Browser {
	return &Browser{resolver: resolver, known: make(map[string]Identity)}
}

// Browse resolves services until ctx is cancelled or the resolver's channel
// closes, delivering the Identity of every resolved service on the returned
// channel, including services already seen. The channel is closed once
// browsing stops.
func (b *Browser) Browse(ctx context.Context) (<-chan Identity, error) {
	resolved, err := b.resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	out := make(chan Identity)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case svc, ok := <-resolved:
				if !ok {
					return
				}
				identity := b.remember(svc)
				select {
				case out <- identity:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (b *Browser) remember(svc ResolvedService) Identity {
	identity := Identity{
		ID:           svc.InstanceName,
		Address:      svc.address(),
		FriendlyName: friendlyName(svc),
	}

	b.mu.Lock()
	b.known[identity.ID] = identity
	b.mu.Unlock()
	return identity
}

// VisitAll calls visitor with every Identity seen so far, stopping early if
// visitor returns false. It returns the number of identities visited.
func (b *Browser) VisitAll(visitor func(Identity) bool) int {
	b.mu.Lock()
	snapshot := make([]Identity, 0, len(b.known))
	for _, identity := range b.known {
		snapshot = append(snapshot, identity)
	}
	b.mu.Unlock()

	count := 0
	for _, identity := range snapshot {
		count++
		if !visitor(identity) {
			break
		}
	}
	return count
}
