package discovery

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeResolver struct {
	services []ResolvedService
}

func (r *fakeResolver) Resolve(ctx context.Context) (<-chan ResolvedService, error) {
	out := make(chan ResolvedService, len(r.services))
	for _, svc := range r.services {
		out <- svc
	}
	close(out)
	return out, nil
}

func TestBrowseReadsFriendlyNameAttribute(t *testing.T) {
	require := require.New(t)

	resolver := &fakeResolver{services: []ResolvedService{
		{
			InstanceName: "Chromecast-ABCD",
			Addr:         "192.168.1.42",
			Port:         8009,
			Attributes:   map[string]string{"fn": "Living Room TV"},
		},
	}}

	browser := NewBrowser(resolver)
	identities, err := browser.Browse(context.Background())
	require.NoError(err)

	select {
	case identity := <-identities:
		require.Equal("Living Room TV", identity.FriendlyName)
		require.Equal("192.168.1.42:8009", identity.Address)
	case <-time.After(time.Second):
		t.Fatal("did not receive resolved identity")
	}
}

func TestBrowseFallsBackToInstanceNameWithoutFriendlyNameAttribute(t *testing.T) {
	require := require.New(t)

	resolver := &fakeResolver{services: []ResolvedService{
		{InstanceName: "Chromecast-WXYZ", Addr: "192.168.1.7", Port: 8009},
	}}

	browser := NewBrowser(resolver)
	identities, err := browser.Browse(context.Background())
	require.NoError(err)

	identity := <-identities
	require.Equal("Chromecast-WXYZ", identity.FriendlyName)
}

func TestVisitAllSeesEveryResolvedIdentity(t *testing.T) {
	require := require.New(t)

	resolver := &fakeResolver{services: []ResolvedService{
		{InstanceName: "a", Addr: "10.0.0.1", Port: 8009},
		{InstanceName: "b", Addr: "10.0.0.2", Port: 8009},
	}}

	browser := NewBrowser(resolver)
	identities, err := browser.Browse(context.Background())
	require.NoError(err)
	for range identities {
	}

	seen := map[string]bool{}
	count := browser.VisitAll(func(identity Identity) bool {
		seen[identity.ID] = true
		return true
	})
	require.Equal(2, count)
	require.True(seen["a"])
	require.True(seen["b"])
}

func TestVisitAllStopsEarlyWhenVisitorReturnsFalse(t *testing.T) {
	require := require.New(t)

	resolver := &fakeResolver{services: []ResolvedService{
		{InstanceName: "a", Addr: "10.0.0.1"},
		{InstanceName: "b", Addr: "10.0.0.2"},
	}}

	browser := NewBrowser(resolver)
	identities, err := browser.Browse(context.Background())
	require.NoError(err)
	for range identities {
	}

	count := browser.VisitAll(func(Identity) bool { return false })
	require.Equal(1, count)
}
