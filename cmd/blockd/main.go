// Package main implements blockd, a standalone daemon exposing a Holdfast
// block store over HTTP and exchanging blocks with other blockd instances
// over Holdfast's reference peer-to-peer transport.
//
// blockd serves two independent HTTP listeners:
//   - the client API (BLOCKD_API_LISTEN), for inserting blocks, fetching them
//     by CID, and managing aliases
//   - the peer wire endpoint (BLOCKD_LISTEN), Holdfast's HTTPNet transport,
//     used for want/block/has exchanges with other blockd peers
//
// Configuration:
//   - BLOCKD_ID: this peer's identifier (required)
//   - BLOCKD_LISTEN: peer wire listen address, also what BLOCKD_PEERS
//     entries for this node should name (default ":8082")
//   - BLOCKD_API_LISTEN: client API listen address (default ":8081")
//   - BLOCKD_DATA_DIR: badger data directory; if unset, blocks are kept
//     in memory only
//   - BLOCKD_PEERS: comma-separated "id=host:port" bootstrap peers
//   - BLOCKD_CACHE_SIZE: soft cap on stored unpinned blocks (default 100000)
//   - BLOCKD_SWEEP_INTERVAL: GC sweep period, a Go duration (default "1m")
//   - BLOCKD_NETWORK_TIMEOUT: per-want deadline, a Go duration (default "30s")
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/ipfs/go-cid"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/rs/zerolog/log"

	"github.com/dreamware/holdfast"
	"github.com/dreamware/holdfast/internal/network"
	"github.com/dreamware/holdfast/internal/storage"
)

// logFatal is a variable to allow mocking log.Fatal in tests.
var logFatal = func(format string, args ...any) {
	log.Fatal().Msgf(format, args...)
}

func main() {
	id := mustGetenv("BLOCKD_ID")
	listen := getenv("BLOCKD_LISTEN", ":8082")
	apiListen := getenv("BLOCKD_API_LISTEN", ":8081")
	dataDir := getenv("BLOCKD_DATA_DIR", "")
	cacheSize := getenvInt("BLOCKD_CACHE_SIZE", 100_000)
	sweepInterval := getenvDuration("BLOCKD_SWEEP_INTERVAL", time.Minute)
	networkTimeout := getenvDuration("BLOCKD_NETWORK_TIMEOUT", 30*time.Second)

	ds, err := openDatastore(dataDir)
	if err != nil {
		logFatal("open datastore: %v", err)
	}

	bootNodes, err := parsePeers(getenv("BLOCKD_PEERS", ""))
	if err != nil {
		logFatal("parse BLOCKD_PEERS: %v", err)
	}

	self := network.PeerAddr{ID: peer.ID(id), Addr: listen}

	var store *holdfast.Store
	net := network.NewHTTPNet(self, bootNodes, func(c cid.Cid) bool {
		if store == nil {
			return false
		}
		pinned, known, err := store.Pinned(context.Background(), c)
		return err == nil && known && pinned
	})

	cfg := holdfast.DefaultConfig()
	cfg.Storage.CacheSize = cacheSize
	cfg.Storage.SweepInterval = sweepInterval
	cfg.Storage.Logger = log.Logger
	cfg.Coordinator.NetworkTimeout = networkTimeout
	cfg.Coordinator.Logger = log.Logger

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err = holdfast.Open(ctx, ds, net, cfg)
	if err != nil {
		logFatal("open store: %v", err)
	}
	defer store.Close()

	go func() {
		log.Info().Str("addr", listen).Msg("blockd peer wire listening")
		if err := net.ListenAndServe(ctx); err != nil {
			log.Error().Err(err).Msg("peer wire server stopped")
		}
	}()

	apiSrv := newAPIServer(store, apiListen)
	go func() {
		log.Info().Str("addr", apiListen).Msg("blockd client API listening")
		if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logFatal("client API listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := apiSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("client API shutdown error")
	}
	cancel()
	log.Info().Str("id", id).Msg("blockd stopped")
}

func openDatastore(dataDir string) (storage.Datastore, error) {
	if dataDir == "" {
		return storage.NewMemory(), nil
	}
	return storage.OpenBadger(dataDir)
}

// parsePeers decodes BLOCKD_PEERS entries of the form "id=host:port".
func parsePeers(raw string) ([]network.PeerAddr, error) {
	if raw == "" {
		return nil, nil
	}
	var out []network.PeerAddr
	for _, entry := range strings.Split(raw, ",") {
		idAddr := strings.SplitN(entry, "=", 2)
		if len(idAddr) != 2 || idAddr[0] == "" || idAddr[1] == "" {
			return nil, fmt.Errorf("invalid peer entry %q, want id=host:port", entry)
		}
		out = append(out, network.PeerAddr{ID: peer.ID(idAddr[0]), Addr: idAddr[1]})
	}
	return out, nil
}

// newAPIServer builds the client-facing HTTP API wrapping store.
func newAPIServer(store *holdfast.Store, listen string) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/blocks/", func(w http.ResponseWriter, r *http.Request) {
		handleBlocks(store, w, r)
	})
	mux.HandleFunc("/aliases/", func(w http.ResponseWriter, r *http.Request) {
		handleAliases(store, w, r)
	})

	return &http.Server{
		Addr:              listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// handleBlocks serves GET/PUT /blocks/{cid}.
//
//	GET  /blocks/{cid}   fetch a block's bytes, faulting in over the network
//	PUT  /blocks/{cid}   store the request body as the block for {cid}; the bytes are not re-hashed or checked against {cid}
func handleBlocks(store *holdfast.Store, w http.ResponseWriter, r *http.Request) {
	cidStr := strings.TrimPrefix(r.URL.Path, "/blocks/")
	if cidStr == "" {
		http.Error(w, "missing cid", http.StatusBadRequest)
		return
	}
	c, err := cid.Decode(cidStr)
	if err != nil {
		http.Error(w, "invalid cid: "+err.Error(), http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		data, err := store.Get(r.Context(), c)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		if _, err := w.Write(data); err != nil {
			log.Warn().Err(err).Msg("write block response")
		}

	case http.MethodPut:
		data, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "read body: "+err.Error(), http.StatusBadRequest)
			return
		}
		blk := holdfast.Block{Cid: c, Data: data}
		if err := store.Insert(r.Context(), blk); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleAliases serves GET/PUT/DELETE /aliases/{name}.
func handleAliases(store *holdfast.Store, w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/aliases/")
	if name == "" {
		http.Error(w, "missing alias name", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		c, ok, err := store.Resolve(r.Context(), []byte(name))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if !ok {
			http.Error(w, "alias not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(struct {
			Cid string `json:"cid"`
		}{Cid: c.String()})

	case http.MethodPut:
		var body struct {
			Cid string `json:"cid"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "decode body: "+err.Error(), http.StatusBadRequest)
			return
		}
		c, err := cid.Decode(body.Cid)
		if err != nil {
			http.Error(w, "invalid cid: "+err.Error(), http.StatusBadRequest)
			return
		}
		if err := store.Alias(r.Context(), []byte(name), &c); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	case http.MethodDelete:
		if err := store.Alias(r.Context(), []byte(name), nil); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func mustGetenv(k string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	logFatal("missing env %s", k)
	return ""
}

func getenvInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logFatal("invalid %s: %v", k, err)
	}
	return n
}

func getenvDuration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		logFatal("invalid %s: %v", k, err)
	}
	return d
}
