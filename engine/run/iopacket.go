package run

import (
	"context"
	"encoding/json"
	"fmt"
)

// IOPacketStoreType is the dataType sentinel an offloaded packet carries;
// its data field holds a storage locator rather than inline bytes
// (spec.md §3, §9).
const IOPacketStoreType = "application/store"

// JSONPayloadType is the default payloadType/metadataType the request
// normalizer assumes when the caller omits one (spec.md §6).
const JSONPayloadType = "application/json"

// IOPacket is the tagged union carrying either an inline serialized blob
// or, once offloaded, a storage locator. The type tag is DataType itself
// (spec.md §9): inline data has the caller's original content type,
// offloaded data is tagged IOPacketStoreType, and a packet with neither
// Data set is the "empty" binary/unknown-inline variant.
type IOPacket struct {
	Data     *string
	DataType string
}

// IsOffloaded reports whether p's Data is a storage locator rather than
// inline bytes.
func (p IOPacket) IsOffloaded() bool {
	return p.DataType == IOPacketStoreType
}

// BuildPacket implements the payload/metadata packing rules of spec.md
// §4.5 steps 1-3. payload may be a string, nil, or any JSON-marshalable
// value.
func BuildPacket(payload any, payloadType string) (IOPacket, error) {
	if payloadType == JSONPayloadType {
		raw, err := json.Marshal(payload)
		if err != nil {
			return IOPacket{}, fmt.Errorf("failed to serialize payload: %w", err)
		}
		data := string(raw)
		return IOPacket{Data: &data, DataType: JSONPayloadType}, nil
	}
	if s, ok := payload.(string); ok {
		return IOPacket{Data: &s, DataType: payloadType}, nil
	}
	return IOPacket{DataType: payloadType}, nil
}

// ObjectStore is the out-of-scope collaborator the payload packet handler
// spills large packets to (spec.md §6).
type ObjectStore interface {
	Upload(ctx context.Context, filename string, data []byte, contentType string) error
}

// OffloadPolicy decides whether a packet's body exceeds thresholdBytes
// and, if so, performs the upload and rewrites the packet to point at its
// storage locator. The returned size is always the serialized byte count
// of the packet's Data, even when no offload occurred (spec.md §4.5).
type OffloadPolicy struct {
	Store          ObjectStore
	ThresholdBytes int
}

// packetRequiresOffloading mirrors the predicate named in spec.md §4.5:
// it never offloads a packet with no inline Data (nothing to spill).
func packetRequiresOffloading(packet IOPacket, thresholdBytes int) (bool, int) {
	if packet.Data == nil {
		return false, 0
	}
	size := len(*packet.Data)
	return size > thresholdBytes, size
}

// Apply runs the offload predicate against packet and, if it trips,
// uploads packet.Data to runFriendlyID's payload path and rewrites
// packet in place to the application/store locator form. A packet that
// does not need offloading is returned unchanged.
func (o OffloadPolicy) Apply(ctx context.Context, packet IOPacket, runFriendlyID string) (IOPacket, int, error) {
	needsOffloading, size := packetRequiresOffloading(packet, o.ThresholdBytes)
	if !needsOffloading {
		return packet, size, nil
	}
	filename := fmt.Sprintf("%s/payload.json", runFriendlyID)
	if err := o.Store.Upload(ctx, filename, []byte(*packet.Data), packet.DataType); err != nil {
		return IOPacket{}, size, fmt.Errorf("failed to offload payload: %w", err)
	}
	return IOPacket{Data: &filename, DataType: IOPacketStoreType}, size, nil
}

// BuildMetadataPacket implements handleMetadataPacket (spec.md §4.5): a
// synchronous, never-offloaded sibling of BuildPacket used for the
// metadata field.
func BuildMetadataPacket(metadata any, metadataType string) (IOPacket, error) {
	return BuildPacket(metadata, metadataType)
}
