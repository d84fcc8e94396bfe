package sml

import (
	"errors"
	"fmt"
)

// The frame payload is a sequence of type-length encoded nodes. The
// upper type nibble of the leading byte selects octet string, boolean,
// signed or unsigned integer, or list; the 0x80 bit chains additional
// length bytes for values longer than 15 bytes.

type nodeType uint8

const (
	typeNil nodeType = iota
	typeOctet
	typeBool
	typeInt
	typeUint
	typeList
)

type node struct {
	kind  nodeType
	octet []byte
	b     bool
	i     int64
	u     uint64
	list  []node
}

var errTruncated = errors.New("sml payload truncated")

type byteReader struct {
	data []byte
	pos  int
}

func (r *byteReader) remaining() int {
	return len(r.data) - r.pos
}

func (r *byteReader) next() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, errTruncated
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *byteReader) take(n int) ([]byte, error) {
	if r.remaining() < n {
		return nil, errTruncated
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// parseNode reads one TL-encoded node, recursing into lists.
func parseNode(r *byteReader) (node, error) {
	tag, err := r.next()
	if err != nil {
		return node{}, err
	}
	if tag == 0x00 {
		// End-of-message marker / absent optional value.
		return node{kind: typeNil}, nil
	}

	kind := (tag >> 4) & 0x07
	length := int(tag & 0x0f)
	tlBytes := 1
	for tag&0x80 != 0 {
		tag, err = r.next()
		if err != nil {
			return node{}, err
		}
		length = length<<4 | int(tag&0x0f)
		tlBytes++
	}

	switch kind {
	case 0x0: // octet string; length includes the TL bytes
		content, err := r.take(length - tlBytes)
		if err != nil {
			return node{}, err
		}
		return node{kind: typeOctet, octet: content}, nil
	case 0x4: // boolean
		content, err := r.take(length - tlBytes)
		if err != nil {
			return node{}, err
		}
		if len(content) != 1 {
			return node{}, fmt.Errorf("bad boolean length %d", len(content))
		}
		return node{kind: typeBool, b: content[0] != 0}, nil
	case 0x5: // signed integer, sign-extended from the leading byte
		content, err := r.take(length - tlBytes)
		if err != nil {
			return node{}, err
		}
		if len(content) == 0 || len(content) > 8 {
			return node{}, fmt.Errorf("bad integer length %d", len(content))
		}
		v := int64(int8(content[0]))
		for _, b := range content[1:] {
			v = v<<8 | int64(b)
		}
		return node{kind: typeInt, i: v}, nil
	case 0x6: // unsigned integer
		content, err := r.take(length - tlBytes)
		if err != nil {
			return node{}, err
		}
		if len(content) == 0 || len(content) > 8 {
			return node{}, fmt.Errorf("bad integer length %d", len(content))
		}
		var v uint64
		for _, b := range content {
			v = v<<8 | uint64(b)
		}
		return node{kind: typeUint, u: v}, nil
	case 0x7: // list; length is the element count
		list := make([]node, 0, length)
		for i := 0; i < length; i++ {
			child, err := parseNode(r)
			if err != nil {
				return node{}, err
			}
			list = append(list, child)
		}
		return node{kind: typeList, list: list}, nil
	default:
		return node{}, fmt.Errorf("unknown sml type nibble %#x", kind)
	}
}

// parsePayload reads all top-level messages from a frame payload.
func parsePayload(payload []byte) ([]node, error) {
	r := &byteReader{data: payload}
	var messages []node
	for r.remaining() > 0 {
		n, err := parseNode(r)
		if err != nil {
			return nil, err
		}
		if n.kind == typeNil {
			continue
		}
		messages = append(messages, n)
	}
	return messages, nil
}

// numeric returns the node's value as int64 for integer-typed nodes.
func (n node) numeric() (int64, bool) {
	switch n.kind {
	case typeInt:
		return n.i, true
	case typeUint:
		return int64(n.u), true
	default:
		return 0, false
	}
}
