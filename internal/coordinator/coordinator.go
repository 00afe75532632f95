package coordinator

import (
	"context"
	"sync"
	"time"

	"github.com/ipfs/go-cid"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dreamware/holdfast/internal/network"
	"github.com/dreamware/holdfast/internal/storage"
)

// getRequest is what Store.Get sends the coordinator for a block that
// wasn't found locally.
type getRequest struct {
	cid   cid.Cid
	reply chan<- getResult
}

// getResult is delivered on a waiter's reply channel when its block
// arrives. The channel is closed, never sent a zero value, on timeout.
type getResult struct {
	data []byte
}

// wanted tracks one outstanding network want: every local caller blocked on
// the same CID shares this single entry.
type wanted struct {
	waiters          []chan<- getResult
	firstRequestedAt time.Time
}

// Config tunes the coordinator's want-timeout behavior.
type Config struct {
	// NetworkTimeout bounds how long an outstanding want is pursued
	// before its waiters are told the block could not be found, and is
	// also the coordinator's own sweep-tick period.
	NetworkTimeout time.Duration
	Logger         zerolog.Logger
}

func DefaultConfig() Config {
	return Config{NetworkTimeout: 30 * time.Second, Logger: log.Logger}
}

// Coordinator is Holdfast's Exchange Coordinator: the single goroutine
// bridging the storage engine and the network.
type Coordinator struct {
	storage *storage.Engine
	net     network.Network
	cfg     Config
	log     zerolog.Logger

	requests chan getRequest

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs a Coordinator over the given storage engine and network.
// Call Run to start its event loop.
func New(st *storage.Engine, net network.Network, cfg Config) *Coordinator {
	return &Coordinator{
		storage:  st,
		net:      net,
		cfg:      cfg,
		log:      cfg.Logger,
		requests: make(chan getRequest),
	}
}

// Get asks the coordinator to fetch cid from the network, blocking until it
// arrives, ctx is canceled, or NetworkTimeout elapses. It is the only
// goroutine-safe entry point into the coordinator from outside its own loop.
func (c *Coordinator) Get(ctx context.Context, id cid.Cid) ([]byte, error) {
	reply := make(chan getResult, 1)
	select {
	case c.requests <- getRequest{cid: id, reply: reply}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res, ok := <-reply:
		if !ok {
			return nil, storage.ErrBlockNotFound
		}
		return res.data, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Run starts the coordinator's event loop in the current goroutine and
// blocks until ctx is done. Run owns every field below it is closed over;
// nothing outside the loop touches the wanted map or the bootstrap flag.
func (c *Coordinator) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.wg.Add(1)
	defer c.wg.Done()

	netEvents := c.net.Subscribe(ctx)
	storeEvents := c.storage.Subscribe(ctx)

	ticker := time.NewTicker(c.cfg.NetworkTimeout)
	defer ticker.Stop()

	wants := make(map[string]*wanted)
	// The reference behavior treats bootstrap as complete from the
	// start, letting a late BootstrapComplete event re-confirm it rather
	// than gating on an event that some Network implementations never
	// send (the loopback transport, for one).
	bootstrapComplete := true

	c.log.Info().Dur("timeout", c.cfg.NetworkTimeout).Msg("exchange coordinator started")

	for {
		select {
		case req := <-c.requests:
			c.handleGetRequest(wants, req)

		case ev, ok := <-netEvents:
			if !ok {
				netEvents = nil
				continue
			}
			c.handleNetworkEvent(wants, ev, &bootstrapComplete)

		case ev, ok := <-storeEvents:
			if !ok {
				storeEvents = nil
				continue
			}
			if bootstrapComplete {
				c.handleStorageEvent(ctx, ev)
			}

		case <-ticker.C:
			c.sweepWants(wants)

		case <-ctx.Done():
			c.log.Info().Msg("exchange coordinator stopping")
			return
		}
	}
}

// Close stops the coordinator's event loop and waits for it to exit.
func (c *Coordinator) Close() {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
}

// defaultWantPriority is used for every want broadcast; the coordinator
// makes no attempt at priority scheduling.
const defaultWantPriority = 1

func (c *Coordinator) handleGetRequest(wants map[string]*wanted, req getRequest) {
	key := req.cid.String()
	w, exists := wants[key]
	if !exists {
		w = &wanted{firstRequestedAt: time.Now()}
		wants[key] = w
		c.net.Providers(context.Background(), req.cid)
		c.net.Want(req.cid, defaultWantPriority)
	}
	w.waiters = append(w.waiters, req.reply)
}

func (c *Coordinator) handleNetworkEvent(wants map[string]*wanted, ev network.Event, bootstrapComplete *bool) {
	switch ev.Kind {
	case network.BootstrapComplete:
		*bootstrapComplete = true
		c.log.Info().Msg("network bootstrap complete")

	case network.Providers:
		if len(ev.Peers) > 0 {
			if err := c.net.Connect(context.Background(), ev.Peers[0]); err != nil {
				c.log.Warn().Err(err).Stringer("cid", ev.Cid).Msg("failed to connect to provider")
				return
			}
			c.net.Want(ev.Cid, 1)
		}

	case network.GetProvidersFailed:
		c.log.Debug().Stringer("cid", ev.Cid).Msg("no providers found")

	case network.ReceivedBlock:
		c.deliverBlock(wants, ev.Cid, ev.Bytes)

	case network.ReceivedWant:
		c.serveWant(ev.Peer, ev.Cid)

	case network.Providing, network.StartProvidingFailed:
		// Informational only; nothing in the wanted map depends on it.
	}
}

func (c *Coordinator) deliverBlock(wants map[string]*wanted, id cid.Cid, data []byte) {
	key := id.String()
	w, ok := wants[key]
	if !ok {
		return
	}
	delete(wants, key)

	for _, waiter := range w.waiters {
		cp := make([]byte, len(data))
		copy(cp, data)
		waiter <- getResult{data: cp}
		close(waiter)
	}
}

func (c *Coordinator) serveWant(p peer.ID, id cid.Cid) {
	data, ok, err := c.storage.Get(context.Background(), id)
	if err != nil {
		c.log.Warn().Err(err).Stringer("cid", id).Msg("storage lookup failed while serving a want")
		return
	}
	if !ok {
		c.log.Debug().Stringer("cid", id).Str("peer", p.String()).Msg("want missed: block not stored locally")
		return
	}
	c.net.SendTo(p, id, data)
}

func (c *Coordinator) handleStorageEvent(ctx context.Context, ev storage.StorageEvent) {
	switch ev.Kind {
	case storage.BlockInserted:
		data, ok, err := c.storage.Get(ctx, ev.Cid)
		if err != nil || !ok {
			return
		}
		c.net.Provide(ev.Cid)
		c.net.Send(ev.Cid, data)

	case storage.BlockRemoved:
		c.net.Unprovide(ev.Cid)
	}
}

func (c *Coordinator) sweepWants(wants map[string]*wanted) {
	deadline := time.Now().Add(-c.cfg.NetworkTimeout)
	for key, w := range wants {
		if w.firstRequestedAt.After(deadline) {
			continue
		}
		c.net.Cancel(mustParseCid(key))
		for _, waiter := range w.waiters {
			close(waiter)
		}
		delete(wants, key)
	}
}

func mustParseCid(s string) cid.Cid {
	c, err := cid.Decode(s)
	if err != nil {
		return cid.Undef
	}
	return c
}
