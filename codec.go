package bmt

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// A persisted record is a protobuf message:
//
//	message Record { uint64 count = 1; Value left = 2; Value right = 3; }
//	message Value  { oneof kind { bytes leaf = 1; bytes link = 2; } }
//
// The oneof is the leaf-tagging convention: a leaf and a link with the same
// bytes encode differently.
const (
	recordCount protowire.Number = 1
	recordLeft  protowire.Number = 2
	recordRight protowire.Number = 3

	valueLeaf protowire.Number = 1
	valueLink protowire.Number = 2
)

type record struct {
	count uint64
	node  Node
}

func appendValue(buf []byte, v Value) []byte {
	if v.IsLink() {
		buf = protowire.AppendTag(buf, valueLink, protowire.BytesType)
		return protowire.AppendBytes(buf, []byte(v.Link()))
	}
	buf = protowire.AppendTag(buf, valueLeaf, protowire.BytesType)
	return protowire.AppendBytes(buf, v.leaf)
}

func marshalRecord(r record) []byte {
	var buf []byte
	buf = protowire.AppendTag(buf, recordCount, protowire.VarintType)
	buf = protowire.AppendVarint(buf, r.count)
	buf = protowire.AppendTag(buf, recordLeft, protowire.BytesType)
	buf = protowire.AppendBytes(buf, appendValue(nil, r.node.Left))
	buf = protowire.AppendTag(buf, recordRight, protowire.BytesType)
	buf = protowire.AppendBytes(buf, appendValue(nil, r.node.Right))
	return buf
}

func unmarshalValue(buf []byte) (Value, error) {
	var v Value
	seen := false
	for len(buf) > 0 {
		num, typ, n := protowire.ConsumeTag(buf)
		if n < 0 {
			return Value{}, protowire.ParseError(n)
		}
		buf = buf[n:]
		if typ != protowire.BytesType || (num != valueLeaf && num != valueLink) {
			n = protowire.ConsumeFieldValue(num, typ, buf)
			if n < 0 {
				return Value{}, protowire.ParseError(n)
			}
			buf = buf[n:]
			continue
		}
		b, n := protowire.ConsumeBytes(buf)
		if n < 0 {
			return Value{}, protowire.ParseError(n)
		}
		buf = buf[n:]
		if num == valueLink {
			v = LinkValue(Hash(b))
		} else {
			v = LeafValue(b)
		}
		seen = true
	}
	if !seen {
		return Value{}, errors.New("value has neither leaf nor link")
	}
	return v, nil
}

func unmarshalRecord(buf []byte) (record, error) {
	var r record
	var haveLeft, haveRight bool
	for len(buf) > 0 {
		num, typ, n := protowire.ConsumeTag(buf)
		if n < 0 {
			return record{}, protowire.ParseError(n)
		}
		buf = buf[n:]
		switch {
		case num == recordCount && typ == protowire.VarintType:
			r.count, n = protowire.ConsumeVarint(buf)
		case (num == recordLeft || num == recordRight) && typ == protowire.BytesType:
			var b []byte
			b, n = protowire.ConsumeBytes(buf)
			if n < 0 {
				break
			}
			v, err := unmarshalValue(b)
			if err != nil {
				return record{}, fmt.Errorf("field %d: %w", num, err)
			}
			if num == recordLeft {
				r.node.Left, haveLeft = v, true
			} else {
				r.node.Right, haveRight = v, true
			}
		default:
			n = protowire.ConsumeFieldValue(num, typ, buf)
		}
		if n < 0 {
			return record{}, protowire.ParseError(n)
		}
		buf = buf[n:]
	}
	if !haveLeft || !haveRight {
		return record{}, errors.New("record is missing a child")
	}
	return r, nil
}
