package coordinator

import (
	"context"
	"testing"
	"time"

	"github.com/ipfs/go-cid"
	"github.com/libp2p/go-libp2p/core/peer"
	mh "github.com/multiformats/go-multihash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/holdfast/internal/block"
	"github.com/dreamware/holdfast/internal/network"
	"github.com/dreamware/holdfast/internal/storage"
)

func newTestEngine(t *testing.T) *storage.Engine {
	t.Helper()
	e, err := storage.Open(storage.NewMemory(), block.DefaultRegistry(), storage.Config{
		SweepInterval: time.Hour,
		CacheSize:     1_000_000,
	})
	require.NoError(t, err)
	return e
}

func testCid(t *testing.T, s string) cid.Cid {
	t.Helper()
	h, err := mh.Sum([]byte(s), mh.SHA2_256, -1)
	require.NoError(t, err)
	return cid.NewCidV1(cid.Raw, h)
}

func TestGetFetchesFromNetworkOnMiss(t *testing.T) {
	hub := network.NewHub()

	remoteEngine := newTestEngine(t)
	remoteNet := network.NewLoopback(hub, peer.ID("remote"))
	remoteCoord := New(remoteEngine, remoteNet, Config{NetworkTimeout: time.Second})

	localEngine := newTestEngine(t)
	localNet := network.NewLoopback(hub, peer.ID("local"))
	localCoord := New(localEngine, localNet, Config{NetworkTimeout: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go remoteCoord.Run(ctx)
	go localCoord.Run(ctx)

	leaf := block.Block{Cid: testCid(t, "shared leaf"), Data: []byte("remote has this")}
	require.NoError(t, remoteEngine.Insert(ctx, leaf))
	remoteNet.Provide(leaf.Cid)

	got, err := localCoord.Get(ctx, leaf.Cid)
	require.NoError(t, err)
	assert.Equal(t, "remote has this", string(got))
}

func TestGetTimesOutWithNoProviders(t *testing.T) {
	hub := network.NewHub()
	engine := newTestEngine(t)
	net := network.NewLoopback(hub, peer.ID("lonely"))
	coord := New(engine, net, Config{NetworkTimeout: 50 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go coord.Run(ctx)

	_, err := coord.Get(ctx, testCid(t, "nobody has this"))
	assert.Equal(t, storage.ErrBlockNotFound, err)
}

func TestSecondGetForSameCidJoinsExistingWant(t *testing.T) {
	hub := network.NewHub()

	remoteEngine := newTestEngine(t)
	remoteNet := network.NewLoopback(hub, peer.ID("remote"))
	remoteCoord := New(remoteEngine, remoteNet, Config{NetworkTimeout: time.Second})

	localEngine := newTestEngine(t)
	localNet := network.NewLoopback(hub, peer.ID("local"))
	localCoord := New(localEngine, localNet, Config{NetworkTimeout: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go remoteCoord.Run(ctx)
	go localCoord.Run(ctx)

	leaf := block.Block{Cid: testCid(t, "joined want"), Data: []byte("payload")}
	require.NoError(t, remoteEngine.Insert(ctx, leaf))
	remoteNet.Provide(leaf.Cid)

	results := make(chan string, 2)
	for i := 0; i < 2; i++ {
		go func() {
			data, err := localCoord.Get(ctx, leaf.Cid)
			if err != nil {
				results <- "error: " + err.Error()
				return
			}
			results <- string(data)
		}()
	}

	for i := 0; i < 2; i++ {
		select {
		case r := <-results:
			assert.Equalf(t, "payload", r, "concurrent Get #%d", i)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for concurrent Get to resolve")
		}
	}
}

// TestReceivedWantBeforeInsertStillServesTheBlock exercises the ordering the
// coordinator must tolerate between its storage and network event streams:
// a peer's want can be recorded before the coordinator has processed the
// local insert that satisfies it, since the two streams carry no relative
// ordering guarantee. The want is recorded on the transport the moment
// Want is called, independent of when the coordinator's event loop gets
// around to handling the corresponding ReceivedWant event, so the later
// insert's advertise-and-send still reaches the asking peer.
func TestReceivedWantBeforeInsertStillServesTheBlock(t *testing.T) {
	hub := network.NewHub()

	hostEngine := newTestEngine(t)
	hostNet := network.NewLoopback(hub, peer.ID("host"))
	hostCoord := New(hostEngine, hostNet, Config{NetworkTimeout: time.Second})

	peerNet := network.NewLoopback(hub, peer.ID("asker"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hostCoord.Run(ctx)

	leaf := block.Block{Cid: testCid(t, "raced insert"), Data: []byte("arrived just in time")}

	peerEvents := peerNet.Subscribe(ctx)

	// host advertises before it actually has the block, and the peer's
	// want arrives and is recorded before the insert below ever happens.
	hostNet.Provide(leaf.Cid)
	peerNet.Want(leaf.Cid, 1)

	require.NoError(t, hostEngine.Insert(ctx, leaf))

	select {
	case ev := <-peerEvents:
		require.Equal(t, network.ReceivedBlock, ev.Kind)
		assert.Equal(t, leaf.Data, ev.Bytes)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the block served after a want raced an insert")
	}
}
