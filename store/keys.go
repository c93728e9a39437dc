package store

import (
	"bytes"
	"encoding/binary"
)

// Key layout, adapted from the teacher's hexastore scheme in
// pkg/index/index.go (index name + escaped field values joined by a
// separator byte) but generalized from SPO-style triple indexes to the
// three record kinds this module needs: vertices, the external-id
// secondary index, and per-layer edges.
const (
	keySeparator = ':'
	vertexPrefix = "vtx"
	extIDPrefix  = "vid"
	edgePrefix   = "edge"
	metaPrefix   = "meta"
)

var nextIDKey = []byte(metaPrefix + string(keySeparator) + "nextid")
var entryPointKey = []byte(metaPrefix + string(keySeparator) + "entrypoint")

// escape doubles backslashes and escapes the separator, exactly the way
// pkg/index/index.go's Escape protects SPO fields that might themselves
// contain the separator.
func escape(b []byte) []byte {
	var out bytes.Buffer
	for _, c := range b {
		switch c {
		case '\\', keySeparator:
			out.WriteByte('\\')
		}
		out.WriteByte(c)
	}
	return out.Bytes()
}

func vertexKey(id VertexID) []byte {
	buf := make([]byte, len(vertexPrefix)+1+8)
	n := copy(buf, vertexPrefix)
	buf[n] = keySeparator
	binary.BigEndian.PutUint64(buf[n+1:], uint64(id))
	return buf
}

func externalIDKey(externalID []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString(extIDPrefix)
	buf.WriteByte(keySeparator)
	buf.Write(escape(externalID))
	return buf.Bytes()
}

// edgeTypeName is the "edgeTypePrefix || decimal(level)" naming spec.md §6
// prescribes. Nothing in the module calls it: the on-disk key below
// encodes level as a fixed-width integer instead of decimal text so
// ranges sort correctly, and carries no edge-type prefix.
func edgeTypeName(prefix string, level int) string {
	return prefix + itoa(level)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var digits [20]byte
	i := len(digits)
	for n > 0 {
		i--
		digits[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		digits[i] = '-'
	}
	return string(digits[i:])
}

// edgePrefixKey returns the range prefix "edge:<level>:<from>:" (level as
// 4 big-endian bytes, from as 8, ':' the separator byte) that
// OutNeighbors/OutDegree scan; all edges for a vertex at a level sort
// contiguously under it.
func edgePrefixKey(level int, from VertexID) []byte {
	buf := make([]byte, 0, len(edgePrefix)+1+4+1+8+1)
	buf = append(buf, edgePrefix...)
	buf = append(buf, keySeparator)
	buf = appendUint32(buf, uint32(level))
	buf = append(buf, keySeparator)
	buf = appendUint64(buf, uint64(from))
	buf = append(buf, keySeparator)
	return buf
}

func edgeKey(level int, from, to VertexID) []byte {
	buf := edgePrefixKey(level, from)
	return appendUint64(buf, uint64(to))
}

// edgeRangeUpperBound returns the exclusive upper bound for a prefix scan,
// the same "increment the last byte" trick pkg/index/index.go's upperBound
// uses for hexastore range queries.
func edgeRangeUpperBound(prefix []byte) []byte {
	upper := make([]byte, len(prefix))
	copy(upper, prefix)
	for i := len(upper) - 1; i >= 0; i-- {
		if upper[i] < 0xff {
			upper[i]++
			return upper[:i+1]
		}
	}
	return nil
}

func appendUint32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendUint64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

func vertexIDFromEdgeKey(key []byte) VertexID {
	return VertexID(binary.BigEndian.Uint64(key[len(key)-8:]))
}
