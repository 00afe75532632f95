// Package block defines Holdfast's unit of storage — an immutable,
// content-addressed Block — and the Codec contract used to discover a
// block's child links without the storage engine understanding any
// particular data format.
//
// # Overview
//
// A Block pairs a CID with its raw bytes. The storage engine never
// interprets those bytes itself; it asks a Codec, selected by the CID's
// codec field, to extract the CIDs the block links to (its children). This
// keeps internal/storage format-agnostic: dag-cbor, dag-json, raw, and any
// future codec all plug in through the same Links method.
package block
