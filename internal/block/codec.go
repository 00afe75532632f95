package block

import (
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"github.com/ipfs/go-cid"
)

// Codec extracts the child links out of a block's raw bytes, for codecs that
// know how to do so. The storage engine selects a Codec by a block's CID
// codec field and never parses block bytes itself.
type Codec interface {
	// Links returns the CIDs this block's data references. A codec that
	// cannot find any structure (or whose format carries no links, like
	// raw bytes) returns a nil slice and no error.
	Links(data []byte) ([]cid.Cid, error)
}

// Registry maps a CID codec code (cid.Raw, cid.DagCBOR, ...) to the Codec
// responsible for it.
type Registry map[uint64]Codec

// DefaultRegistry returns the Codec set Holdfast ships with: raw blocks
// (leaves, no links) and dag-cbor blocks (links found by walking the
// decoded value for embedded CIDs).
func DefaultRegistry() Registry {
	return Registry{
		cid.Raw:     RawCodec{},
		cid.DagCBOR: CBORCodec{},
	}
}

// Links dispatches to the Codec registered for c's codec code. An
// unregistered codec is treated as opaque: no links, no error, so storing a
// block of an unrecognized type degrades to leaf behavior rather than
// failing Insert outright.
func (r Registry) Links(c cid.Cid, data []byte) ([]cid.Cid, error) {
	codec, ok := r[c.Type()]
	if !ok {
		return nil, nil
	}
	links, err := codec.Links(data)
	if err != nil {
		return nil, fmt.Errorf("block: extract links for codec %d: %w", c.Type(), err)
	}
	return links, nil
}

// RawCodec handles raw leaf blocks, which carry no structure and therefore
// no child links.
type RawCodec struct{}

func (RawCodec) Links([]byte) ([]cid.Cid, error) { return nil, nil }

// CBORCodec extracts links from dag-cbor encoded blocks by decoding into a
// generic interface{} tree and collecting every embedded CID tag value.
// This mirrors the shape of a dag-cbor link (CBOR tag 42 wrapping a
// multibase-prefixed binary CID) without committing Holdfast to a full
// IPLD schema layer.
type CBORCodec struct{}

// cidLink is the Go type a dag-cbor tag-42 value decodes into: the raw bytes
// following the CBOR byte-string wrapper, with the leading multibase
// identity-prefix byte stripped per the dag-cbor spec.
type cidLink []byte

// cborTagCID is the CBOR tag number IPLD uses for an embedded link, per the
// dag-cbor codec specification.
const cborTagCID = 42

// linkTags associates cidLink with tag 42 for both directions; linkEncMode
// and linkDecMode below are the Enc/DecMode pair built from it. Marshaling a
// cidLink with the package's bare cbor.Marshal would silently drop the tag,
// since fxamacker/cbor only applies a TagSet through an explicit Mode.
var linkTags = func() cbor.TagSet {
	tags := cbor.NewTagSet()
	if err := tags.Add(
		cbor.TagOptions{EncTag: cbor.EncTagRequired, DecTag: cbor.DecTagRequired},
		reflect.TypeOf(cidLink(nil)), cborTagCID,
	); err != nil {
		panic(err)
	}
	return tags
}()

var linkDecMode = func() cbor.DecMode {
	mode, err := cbor.DecOptions{}.DecModeWithTags(linkTags)
	if err != nil {
		panic(err)
	}
	return mode
}()

var linkEncMode = func() cbor.EncMode {
	mode, err := cbor.EncOptions{}.EncModeWithTags(linkTags)
	if err != nil {
		panic(err)
	}
	return mode
}()

func (CBORCodec) Links(data []byte) ([]cid.Cid, error) {
	var v interface{}
	if err := linkDecMode.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode dag-cbor: %w", err)
	}

	var links []cid.Cid
	collectLinks(v, &links)
	return links, nil
}

// LinkValue wraps c as the value a dag-cbor link field holds. Marshal the
// containing document with MarshalTagged, not the package-level cbor.Marshal,
// or the tag-42 wrapper is silently dropped.
func LinkValue(c cid.Cid) interface{} {
	return cidLink(append([]byte{0}, c.Bytes()...))
}

// MarshalTagged encodes v with the tag set CBORCodec.Links decodes against,
// so any LinkValue embedded in v survives as a recognizable link.
func MarshalTagged(v interface{}) ([]byte, error) {
	return linkEncMode.Marshal(v)
}

// collectLinks walks a decoded CBOR value tree looking for link byte
// strings, recursing through maps and slices the way a dag-cbor document
// nests them.
func collectLinks(v interface{}, out *[]cid.Cid) {
	switch t := v.(type) {
	case cidLink:
		if c, err := cid.Cast(t[1:]); err == nil {
			*out = append(*out, c)
		}
	case map[interface{}]interface{}:
		for _, child := range t {
			collectLinks(child, out)
		}
	case []interface{}:
		for _, child := range t {
			collectLinks(child, out)
		}
	}
}
