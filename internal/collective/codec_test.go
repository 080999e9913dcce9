package collective

import (
	"math"
	"reflect"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"
)

func TestCodecRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		env  *Envelope
	}{
		{"Zero", &Envelope{}},
		{"Header only", &Envelope{Seq: 7, Rank: 3, Root: 1, Kind: KindBarrier}},
		{"Negative scalar", &Envelope{Seq: 1, Kind: KindReduceMax, Scalar: math.MinInt32}},
		{"Large sum", &Envelope{Seq: 2, Kind: KindReduceSum, Scalar: 19_999_980_000_000}},
		{"Data and counts", &Envelope{Seq: 3, Kind: KindScatter, Data: []int32{0, -1, 999_999, math.MaxInt32, math.MinInt32}, Counts: []int32{2, 0, 3}}},
	}

	codec := wireCodec{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := codec.Marshal(tt.env)
			if err != nil {
				t.Fatalf("Marshal error: %v", err)
			}
			got := new(Envelope)
			if err := codec.Unmarshal(b, got); err != nil {
				t.Fatalf("Unmarshal error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.env) {
				t.Errorf("round trip = %+v, expected %+v", got, tt.env)
			}
		})
	}
}

func TestCodecSkipsUnknownFields(t *testing.T) {
	var b []byte
	b = protowire.AppendTag(b, 99, protowire.BytesType)
	b = protowire.AppendBytes(b, []byte("future"))
	b = protowire.AppendTag(b, fieldSeq, protowire.VarintType)
	b = protowire.AppendVarint(b, 42)

	got := new(Envelope)
	if err := (wireCodec{}).Unmarshal(b, got); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if got.Seq != 42 {
		t.Errorf("Seq = %d, expected 42", got.Seq)
	}
}

func TestCodecAcceptsUnpackedData(t *testing.T) {
	var b []byte
	for _, v := range []int64{5, -6} {
		b = protowire.AppendTag(b, fieldData, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeZigZag(v))
	}

	got := new(Envelope)
	if err := (wireCodec{}).Unmarshal(b, got); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if !reflect.DeepEqual(got.Data, []int32{5, -6}) {
		t.Errorf("Data = %v, expected [5 -6]", got.Data)
	}
}

func TestCodecRejectsTruncatedInput(t *testing.T) {
	b, err := (wireCodec{}).Marshal(&Envelope{Seq: 1, Data: []int32{1, 2, 3, 400_000}})
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	if err := (wireCodec{}).Unmarshal(b[:len(b)-1], new(Envelope)); err == nil {
		t.Error("Unmarshal of truncated input returned no error")
	}
}

func TestCodecRejectsForeignTypes(t *testing.T) {
	if _, err := (wireCodec{}).Marshal("not an envelope"); err == nil {
		t.Error("Marshal(string) returned no error")
	}
	var s string
	if err := (wireCodec{}).Unmarshal(nil, &s); err == nil {
		t.Error("Unmarshal into *string returned no error")
	}
}
