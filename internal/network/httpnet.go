package network

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ipfs/go-cid"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/multiformats/go-multiaddr"
)

// httpClient is the shared client used for all peer-to-peer requests: a
// short timeout so an unresponsive peer fails fast rather than hanging a
// coordinator tick.
var httpClient = &http.Client{Timeout: 5 * time.Second}

// PeerAddr pairs a peer identity with the HTTP address it listens on,
// Holdfast's equivalent of a bootstrap multiaddr for the reference
// transport.
type PeerAddr struct {
	ID   peer.ID
	Addr string // host:port
}

// postJSON encodes body as JSON, POSTs it to url, and decodes the response
// into out if out is non-nil.
func postJSON(ctx context.Context, url string, body, out any) error {
	reqBody, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("http %s: %d", url, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// getJSON GETs url and decodes the JSON response into out.
func getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("http %s: %d", url, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type wantRequest struct {
	Cid      string `json:"cid"`
	From     string `json:"from"`
	Priority uint32 `json:"priority"`
}

type blockRequest struct {
	Cid  string `json:"cid"`
	From string `json:"from"`
	Data []byte `json:"data"`
}

type hasResponse struct {
	Has bool `json:"has"`
}

// HTTPNet is the reference Network transport: plain HTTP POSTs between
// known peer addresses. Its peer set is the bootNodes list passed to
// NewHTTPNet; it has no discovery layer of its own.
type HTTPNet struct {
	self  PeerAddr
	addr  multiaddr.Multiaddr
	peers map[peer.ID]string

	mu     sync.RWMutex
	hasFn  func(cid.Cid) bool
	server *http.Server
	bus    *bus
}

// NewHTTPNet constructs an HTTPNet identified by self, aware of bootNodes
// as its initial peer set. hasFn lets the caller answer "/has/{cid}" probes
// by checking local storage without HTTPNet importing the storage package.
func NewHTTPNet(self PeerAddr, bootNodes []PeerAddr, hasFn func(cid.Cid) bool) *HTTPNet {
	addr, _ := multiaddr.NewMultiaddr(fmt.Sprintf("/dns4/%s", self.Addr))
	peers := make(map[peer.ID]string, len(bootNodes))
	for _, p := range bootNodes {
		peers[p.ID] = p.Addr
	}
	return &HTTPNet{
		self:  self,
		addr:  addr,
		peers: peers,
		hasFn: hasFn,
		bus:   newBus(),
	}
}

// ListenAndServe starts the HTTP server backing this peer's endpoints. It
// blocks until ctx is done or the server fails.
func (h *HTTPNet) ListenAndServe(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/holdfast/want", h.handleWant)
	mux.HandleFunc("/holdfast/block", h.handleBlock)
	mux.HandleFunc("/holdfast/has/", h.handleHas)

	h.server = &http.Server{Addr: h.self.Addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() { errCh <- h.server.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return h.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func (h *HTTPNet) handleWant(w http.ResponseWriter, r *http.Request) {
	var req wantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	c, err := cid.Decode(req.Cid)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.bus.publish(Event{Kind: ReceivedWant, Peer: peer.ID(req.From), Cid: c, Priority: req.Priority})
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPNet) handleBlock(w http.ResponseWriter, r *http.Request) {
	var req blockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	c, err := cid.Decode(req.Cid)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.bus.publish(Event{Kind: ReceivedBlock, Peer: peer.ID(req.From), Cid: c, Bytes: req.Data})
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPNet) handleHas(w http.ResponseWriter, r *http.Request) {
	cidStr := r.URL.Path[len("/holdfast/has/"):]
	c, err := cid.Decode(cidStr)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	json.NewEncoder(w).Encode(hasResponse{Has: h.hasFn(c)})
}

func (h *HTTPNet) LocalPeerID() peer.ID { return h.self.ID }

func (h *HTTPNet) ExternalAddresses() []multiaddr.Multiaddr {
	return []multiaddr.Multiaddr{h.addr}
}

// Providers probes every known peer's /has/{cid} endpoint and reports
// whichever responded positively. This stands in for real DHT-based
// discovery, which is out of scope for the core.
func (h *HTTPNet) Providers(ctx context.Context, c cid.Cid) {
	h.mu.RLock()
	peers := make(map[peer.ID]string, len(h.peers))
	for id, addr := range h.peers {
		peers[id] = addr
	}
	h.mu.RUnlock()

	var found []peer.ID
	for id, addr := range peers {
		var resp hasResponse
		url := fmt.Sprintf("http://%s/holdfast/has/%s", addr, c.String())
		if err := getJSON(ctx, url, &resp); err == nil && resp.Has {
			found = append(found, id)
		}
	}

	if len(found) == 0 {
		h.bus.publish(Event{Kind: GetProvidersFailed, Cid: c})
		return
	}
	h.bus.publish(Event{Kind: Providers, Cid: c, Peers: found})
}

func (h *HTTPNet) Want(c cid.Cid, priority uint32) {
	h.mu.RLock()
	peers := make([]string, 0, len(h.peers))
	for _, addr := range h.peers {
		peers = append(peers, addr)
	}
	h.mu.RUnlock()

	req := wantRequest{Cid: c.String(), From: string(h.self.ID), Priority: priority}
	for _, addr := range peers {
		url := fmt.Sprintf("http://%s/holdfast/want", addr)
		_ = postJSON(context.Background(), url, req, nil)
	}
}

// Cancel is a no-op for the reference transport: a want not followed up on
// simply expires on the remote peer's own bookkeeping, if any. A richer
// transport would send an explicit cancel message.
func (h *HTTPNet) Cancel(c cid.Cid) {}

func (h *HTTPNet) Connect(ctx context.Context, p peer.ID) error {
	h.mu.RLock()
	_, ok := h.peers[p]
	h.mu.RUnlock()
	if !ok {
		return errPeerUnknown(p)
	}
	return nil
}

// Provide is a no-op beyond answering /has probes truthfully via hasFn;
// there is no separate provider-record table to update for this transport.
func (h *HTTPNet) Provide(c cid.Cid) {}

func (h *HTTPNet) Unprovide(c cid.Cid) {}

func (h *HTTPNet) Send(c cid.Cid, data []byte) {
	h.mu.RLock()
	peers := make([]string, 0, len(h.peers))
	for _, addr := range h.peers {
		peers = append(peers, addr)
	}
	h.mu.RUnlock()

	req := blockRequest{Cid: c.String(), From: string(h.self.ID), Data: data}
	for _, addr := range peers {
		url := fmt.Sprintf("http://%s/holdfast/block", addr)
		_ = postJSON(context.Background(), url, req, nil)
	}
}

func (h *HTTPNet) SendTo(p peer.ID, c cid.Cid, data []byte) {
	h.mu.RLock()
	addr, ok := h.peers[p]
	h.mu.RUnlock()
	if !ok {
		return
	}
	req := blockRequest{Cid: c.String(), From: string(h.self.ID), Data: data}
	url := fmt.Sprintf("http://%s/holdfast/block", addr)
	_ = postJSON(context.Background(), url, req, nil)
}

func (h *HTTPNet) Subscribe(ctx context.Context) <-chan Event {
	ch, unsubscribe := h.bus.subscribe(64)
	go func() {
		<-ctx.Done()
		unsubscribe()
	}()
	return ch
}
