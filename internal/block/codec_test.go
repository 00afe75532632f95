package block

import (
	"testing"

	"github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRawCodecHasNoLinks(t *testing.T) {
	links, err := RawCodec{}.Links([]byte("leaf data"))
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestCBORCodecFindsEmbeddedLinks(t *testing.T) {
	child, err := New([]byte("child"), mh.SHA2_256, cid.Raw)
	require.NoError(t, err)

	doc := map[string]interface{}{
		"name": "parent",
		"link": LinkValue(child.Cid),
	}
	data, err := MarshalTagged(doc)
	require.NoError(t, err)

	links, err := CBORCodec{}.Links(data)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.True(t, links[0].Equals(child.Cid))
}

func TestDefaultRegistryDispatchesByCodec(t *testing.T) {
	reg := DefaultRegistry()

	leaf, err := New([]byte("leaf"), mh.SHA2_256, cid.Raw)
	require.NoError(t, err)
	links, err := reg.Links(leaf.Cid, leaf.Data)
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestRegistryTreatsUnknownCodecAsOpaque(t *testing.T) {
	reg := DefaultRegistry()
	c := cid.NewCidV1(cid.DagProtobuf, mustHash(t, []byte("x")))

	links, err := reg.Links(c, []byte("x"))
	require.NoError(t, err)
	assert.Nil(t, links)
}

func mustHash(t *testing.T, data []byte) mh.Multihash {
	t.Helper()
	h, err := mh.Sum(data, mh.SHA2_256, -1)
	require.NoError(t, err)
	return h
}
