package kv

import "bytes"

func init() {
	RegisterComparator("default", DefaultComparator)
}

// DefaultComparator orders keys lexicographically, with a shorter key
// sorting before a longer one that shares its full length as a prefix
// (§4.4). This matches bytes.Compare exactly, since Go's byte-slice
// comparison already breaks ties on length this way.
func DefaultComparator(a, b []byte) int {
	return bytes.Compare(a, b)
}
