package collective

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

const codecName = "mpibench-wire"

// Envelope field numbers on the wire.
const (
	fieldSeq    protowire.Number = 1
	fieldRank   protowire.Number = 2
	fieldRoot   protowire.Number = 3
	fieldKind   protowire.Number = 4
	fieldScalar protowire.Number = 5
	fieldData   protowire.Number = 6
	fieldCounts protowire.Number = 7
)

// wireCodec is the gRPC codec for Envelope. The encoding is protobuf
// compatible: scalars are varints, Scalar is sint64 and the two slices
// are packed sint32.
type wireCodec struct{}

func (wireCodec) Name() string { return codecName }

func (wireCodec) Marshal(v any) ([]byte, error) {
	env, ok := v.(*Envelope)
	if !ok {
		return nil, fmt.Errorf("%s: cannot marshal %T", codecName, v)
	}
	return env.appendWire(nil), nil
}

func (wireCodec) Unmarshal(data []byte, v any) error {
	env, ok := v.(*Envelope)
	if !ok {
		return fmt.Errorf("%s: cannot unmarshal into %T", codecName, v)
	}
	*env = Envelope{}
	return env.consumeWire(data)
}

func (e *Envelope) appendWire(b []byte) []byte {
	if e.Seq != 0 {
		b = protowire.AppendTag(b, fieldSeq, protowire.VarintType)
		b = protowire.AppendVarint(b, e.Seq)
	}
	if e.Rank != 0 {
		b = protowire.AppendTag(b, fieldRank, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(e.Rank))
	}
	if e.Root != 0 {
		b = protowire.AppendTag(b, fieldRoot, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(e.Root))
	}
	if e.Kind != 0 {
		b = protowire.AppendTag(b, fieldKind, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(e.Kind))
	}
	if e.Scalar != 0 {
		b = protowire.AppendTag(b, fieldScalar, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeZigZag(e.Scalar))
	}
	b = appendPacked(b, fieldData, e.Data)
	b = appendPacked(b, fieldCounts, e.Counts)
	return b
}

func appendPacked(b []byte, num protowire.Number, vs []int32) []byte {
	if len(vs) == 0 {
		return b
	}
	size := 0
	for _, v := range vs {
		size += protowire.SizeVarint(protowire.EncodeZigZag(int64(v)))
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	b = protowire.AppendVarint(b, uint64(size))
	for _, v := range vs {
		b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(v)))
	}
	return b
}

func (e *Envelope) consumeWire(b []byte) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		switch {
		case typ == protowire.VarintType && num <= fieldScalar:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			b = b[n:]
			switch num {
			case fieldSeq:
				e.Seq = v
			case fieldRank:
				e.Rank = int32(v)
			case fieldRoot:
				e.Root = int32(v)
			case fieldKind:
				e.Kind = Kind(v)
			case fieldScalar:
				e.Scalar = protowire.DecodeZigZag(v)
			}
		case typ == protowire.BytesType && (num == fieldData || num == fieldCounts):
			packed, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			b = b[n:]
			var err error
			if num == fieldData {
				e.Data, err = consumePacked(e.Data, packed)
			} else {
				e.Counts, err = consumePacked(e.Counts, packed)
			}
			if err != nil {
				return err
			}
		case typ == protowire.VarintType && (num == fieldData || num == fieldCounts):
			// unpacked repeated element
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			b = b[n:]
			if num == fieldData {
				e.Data = append(e.Data, int32(protowire.DecodeZigZag(v)))
			} else {
				e.Counts = append(e.Counts, int32(protowire.DecodeZigZag(v)))
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return nil
}

func consumePacked(dst []int32, packed []byte) ([]int32, error) {
	// every varint ends in exactly one byte below 0x80
	n := 0
	for _, c := range packed {
		if c < 0x80 {
			n++
		}
	}
	if dst == nil {
		dst = make([]int32, 0, n)
	}
	for len(packed) > 0 {
		v, m := protowire.ConsumeVarint(packed)
		if m < 0 {
			return dst, protowire.ParseError(m)
		}
		dst = append(dst, int32(protowire.DecodeZigZag(v)))
		packed = packed[m:]
	}
	return dst, nil
}
