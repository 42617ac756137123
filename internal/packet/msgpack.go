package packet

import (
	"github.com/vmihailenco/msgpack/v5"
)

type msgpackCodec struct{}

// Msgpack uses the same field names as JSON in a compact binary encoding.
var Msgpack Codec = msgpackCodec{}

func (msgpackCodec) Name() string { return "msgpack" }
func (msgpackCodec) Binary() bool { return true }

func (msgpackCodec) Marshal(p Packet) ([]byte, error) {
	w, err := toWire(p)
	if err != nil {
		return nil, err
	}
	return msgpack.Marshal(w)
}

func (msgpackCodec) Unmarshal(b []byte) (Packet, error) {
	return decodeTagged(b, msgpack.Unmarshal)
}
