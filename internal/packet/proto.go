package packet

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of the protobuf encoding. One flat message covers all three variants, the
// tag field says which of the others are meaningful.
const (
	fieldTag  protowire.Number = 1
	fieldX    protowire.Number = 2
	fieldY    protowire.Number = 3
	fieldVX   protowire.Number = 4
	fieldVY   protowire.Number = 5
	fieldP1Y  protowire.Number = 6
	fieldS1   protowire.Number = 7
	fieldS2   protowire.Number = 8
	fieldPadY protowire.Number = 9
	fieldData protowire.Number = 10
)

type protoCodec struct{}

// Proto writes packets in protobuf wire format.
var Proto Codec = protoCodec{}

func (protoCodec) Name() string { return "proto" }
func (protoCodec) Binary() bool { return true }

func (protoCodec) Marshal(p Packet) ([]byte, error) {
	var b []byte
	switch v := p.(type) {
	case Update:
		b = appendString(b, fieldTag, string(TagUpdate))
		b = appendDouble(b, fieldX, v.Ball.X)
		b = appendDouble(b, fieldY, v.Ball.Y)
		b = appendDouble(b, fieldVX, v.Ball.VX)
		b = appendDouble(b, fieldVY, v.Ball.VY)
		b = appendDouble(b, fieldP1Y, v.P1Y)
		b = appendVarint(b, fieldS1, uint64(v.S1))
		b = appendVarint(b, fieldS2, uint64(v.S2))
	case PaddleMove:
		b = appendString(b, fieldTag, string(TagPaddleMove))
		b = appendDouble(b, fieldPadY, v.Y)
	case VideoFrame:
		b = appendString(b, fieldTag, string(TagVideoFrame))
		b = appendString(b, fieldData, v.Data)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownTag, p)
	}
	return b, nil
}

func (protoCodec) Unmarshal(b []byte) (Packet, error) {
	var (
		tag  Tag
		u    Update
		pm   PaddleMove
		vf   VideoFrame
		seen = map[protowire.Number]bool{}
	)

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPacket, protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case typ == protowire.BytesType && (num == fieldTag || num == fieldData):
			s, m := protowire.ConsumeString(b)
			if m < 0 {
				return nil, fmt.Errorf("%w: %v", ErrInvalidPacket, protowire.ParseError(m))
			}
			if num == fieldTag {
				tag = Tag(s)
			} else {
				vf.Data = s
			}
			n = m
		case typ == protowire.Fixed64Type:
			v, m := protowire.ConsumeFixed64(b)
			if m < 0 {
				return nil, fmt.Errorf("%w: %v", ErrInvalidPacket, protowire.ParseError(m))
			}
			f := math.Float64frombits(v)
			switch num {
			case fieldX:
				u.Ball.X = f
			case fieldY:
				u.Ball.Y = f
			case fieldVX:
				u.Ball.VX = f
			case fieldVY:
				u.Ball.VY = f
			case fieldP1Y:
				u.P1Y = f
			case fieldPadY:
				pm.Y = f
			}
			n = m
		case typ == protowire.VarintType && (num == fieldS1 || num == fieldS2):
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return nil, fmt.Errorf("%w: %v", ErrInvalidPacket, protowire.ParseError(m))
			}
			if v > math.MaxInt32 {
				return nil, fmt.Errorf("%w: score %d out of range", ErrInvalidPacket, v)
			}
			if num == fieldS1 {
				u.S1 = int(v)
			} else {
				u.S2 = int(v)
			}
			n = m
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("%w: %v", ErrInvalidPacket, protowire.ParseError(n))
			}
		}
		seen[num] = true
		b = b[n:]
	}

	var p Packet
	switch tag {
	case TagUpdate:
		p = u
	case TagPaddleMove:
		p = pm
	case TagVideoFrame:
		p = vf
	default:
		if !seen[fieldTag] {
			return nil, fmt.Errorf("%w: missing tag", ErrInvalidPacket)
		}
		return nil, fmt.Errorf("%w: %q", ErrUnknownTag, tag)
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func appendDouble(b []byte, num protowire.Number, v float64) []byte {
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}
