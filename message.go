package wire

import (
	"sort"

	"github.com/Zereker/wire/component"
)

// Message is a decoded packet. Applications usually define one type per
// packet and decode them with a codec built by Packets.
type Message = any

// Codec converts messages to and from frame bodies. Size must report
// exactly what Encode writes; the connection checks this for every frame.
type Codec = component.Codec[Message]

// Packet is a message that knows its own packet id.
type Packet interface {
	PacketID() int32
}

// Packets returns a Codec that writes each Packet as its VarInt id followed
// by the body written by the codec registered for that id. Decoding an id
// with no registered codec fails with component.ErrInvalidVariant.
func Packets(codecs map[int32]Codec) Codec {
	ids := make([]int32, 0, len(codecs))
	for id := range codecs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	variants := make([]component.Variant[int32, Message], 0, len(ids))
	for _, id := range ids {
		variants = append(variants, component.Variant[int32, Message]{Key: id, Codec: codecs[id]})
	}

	return component.Union[int32, Message]{
		Key:      component.VarInt{},
		KeyOf:    packetID,
		Variants: variants,
	}
}

// packetID returns -1 for values that are not packets so encoding them
// fails on the variant lookup.
func packetID(m Message) int32 {
	if p, ok := m.(Packet); ok {
		return p.PacketID()
	}
	return -1
}
