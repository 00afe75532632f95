package storage

import (
	"github.com/dreamware/holdfast/internal/id"
)

// Table prefixes multiplex several logical tables onto one flat Datastore
// keyspace. Each is one byte so prefix Scans stay cheap and the tables sort
// independently of one another.
const (
	tableCidToID    = 'c'
	tableIDToCid    = 'i'
	tableBlockData  = 'd'
	tableChildren   = 'h'
	tableReferrers  = 'r'
	tableAliasRoot  = 'a'
	tableAliasReach = 'p'
	tableNextIDCtr  = 'n'
)

func cidToIDKey(cidBytes []byte) []byte {
	return append([]byte{tableCidToID}, cidBytes...)
}

func idToCidKey(i id.Id) []byte {
	return append([]byte{tableIDToCid}, i.Bytes()...)
}

func blockDataKey(i id.Id) []byte {
	return append([]byte{tableBlockData}, i.Bytes()...)
}

func childrenKey(i id.Id) []byte {
	return append([]byte{tableChildren}, i.Bytes()...)
}

func referrersKey(i id.Id) []byte {
	return append([]byte{tableReferrers}, i.Bytes()...)
}

func aliasRootKey(name []byte) []byte {
	return append([]byte{tableAliasRoot}, name...)
}

func aliasReachKey(name []byte) []byte {
	return append([]byte{tableAliasReach}, name...)
}

// nextIDCounterKey is a single fixed key holding the monotonic counter used
// to mint fresh Ids.
var nextIDCounterKey = []byte{tableNextIDCtr}
