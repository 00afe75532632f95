package network

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ipfs/go-cid"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/stretchr/testify/require"
)

func startHTTPNet(t *testing.T, self PeerAddr, bootNodes []PeerAddr, hasFn func(cid.Cid) bool) (*HTTPNet, func()) {
	t.Helper()
	n := NewHTTPNet(self, bootNodes, hasFn)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := n.ListenAndServe(ctx); err != nil {
			t.Logf("ListenAndServe: %v", err)
		}
	}()
	// Give the listener a moment to bind before the test issues requests.
	time.Sleep(50 * time.Millisecond)

	return n, func() {
		cancel()
		wg.Wait()
	}
}

func TestHTTPNetProvidersProbesHasEndpoint(t *testing.T) {
	c := testCid(t, "http shared content")

	bob := PeerAddr{ID: peer.ID("bob"), Addr: "127.0.0.1:18081"}
	_, stopBob := startHTTPNet(t, bob, nil, func(probe cid.Cid) bool { return probe.Equals(c) })
	defer stopBob()

	alice := PeerAddr{ID: peer.ID("alice"), Addr: "127.0.0.1:18082"}
	aliceNet, stopAlice := startHTTPNet(t, alice, []PeerAddr{bob}, func(cid.Cid) bool { return false })
	defer stopAlice()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := aliceNet.Subscribe(ctx)

	aliceNet.Providers(ctx, c)

	select {
	case ev := <-events:
		require.Equal(t, Providers, ev.Kind)
		require.Len(t, ev.Peers, 1)
		require.Equal(t, peer.ID("bob"), ev.Peers[0])
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for Providers event")
	}
}

func TestHTTPNetWantAndSendRoundTrip(t *testing.T) {
	c := testCid(t, "http want content")

	alice := PeerAddr{ID: peer.ID("alice"), Addr: "127.0.0.1:18083"}
	bob := PeerAddr{ID: peer.ID("bob"), Addr: "127.0.0.1:18084"}

	aliceNet, stopAlice := startHTTPNet(t, alice, []PeerAddr{bob}, func(cid.Cid) bool { return false })
	defer stopAlice()
	bobNet, stopBob := startHTTPNet(t, bob, []PeerAddr{alice}, func(cid.Cid) bool { return false })
	defer stopBob()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bobEvents := bobNet.Subscribe(ctx)
	aliceEvents := aliceNet.Subscribe(ctx)

	aliceNet.Want(c, 1)

	select {
	case ev := <-bobEvents:
		require.Equal(t, ReceivedWant, ev.Kind)
		require.Equal(t, peer.ID("alice"), ev.Peer)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for bob to see the want")
	}

	bobNet.SendTo(peer.ID("alice"), c, []byte("http payload"))

	select {
	case ev := <-aliceEvents:
		require.Equal(t, ReceivedBlock, ev.Kind)
		require.Equal(t, "http payload", string(ev.Bytes))
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for alice to receive the block")
	}
}
