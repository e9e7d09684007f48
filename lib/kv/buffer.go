package kv

// --------------------------------------------------------------------------
// Non-owning buffer views (§4.1)
// --------------------------------------------------------------------------

// Run is a non-owning view over a run of n concatenated elements: a flat
// byte slice holding all of them back to back, plus a parallel slice of
// per-element sizes. It is the Go equivalent of the UserMem +
// BasicUserMem<size_t> pair described in the design document.
type Run struct {
	Data  []byte
	Sizes []uint64
}

// Len returns the number of elements described by the run.
func (r Run) Len() int {
	return len(r.Sizes)
}

// Total returns the sum of all element sizes.
func (r Run) Total() uint64 {
	var total uint64
	for _, s := range r.Sizes {
		total += s
	}
	return total
}

// At returns the byte slice for element i, assuming Data holds the
// concatenation of all elements in order. offset must have been computed
// by the caller by summing Sizes[0:i]; callers typically iterate with
// Iter instead of calling At directly.
func (r Run) At(offset uint64, i int) []byte {
	return r.Data[offset : offset+r.Sizes[i]]
}

// Iter calls fn once per element with its byte slice and index, stopping
// early if fn returns false. A KeyNotFound or SizeTooSmall slot is passed
// to fn as a nil slice and takes no bytes of Data; iteration ends at the
// first NoMoreKeys slot.
func (r Run) Iter(fn func(i int, elem []byte) bool) {
	var offset uint64
	for i, size := range r.Sizes {
		if size == NoMoreKeys {
			return
		}
		if IsSentinel(size) {
			if !fn(i, nil) {
				return
			}
			continue
		}
		if !fn(i, r.Data[offset:offset+size]) {
			return
		}
		offset += size
	}
}

// Validate checks the invariants required of every incoming run: the
// sizes must not overflow the data slice, and (unless allowEmpty) no
// element may have zero length - this is used to reject empty keys per
// §3.
func (r Run) Validate(allowEmpty bool) Status {
	var total uint64
	for _, size := range r.Sizes {
		if size == 0 && !allowEmpty {
			return StatusInvalidArgs
		}
		total += size
	}
	if total > uint64(len(r.Data)) {
		return StatusInvalidArgs
	}
	return StatusOK
}

// --------------------------------------------------------------------------
// BitField (§4.3 exists())
// --------------------------------------------------------------------------

// BitField is a non-owning packed bit array used to return boolean flags
// for a batch of n existence tests: bit i occupies byte i/8, bit i%8.
type BitField struct {
	Data []byte
	N    int
}

// NewBitField allocates a zeroed BitField capable of holding n flags.
func NewBitField(n int) BitField {
	return BitField{Data: make([]byte, (n+7)/8), N: n}
}

// Set sets flag i to value.
func (b BitField) Set(i int, value bool) {
	if value {
		b.Data[i/8] |= 1 << uint(i%8)
	} else {
		b.Data[i/8] &^= 1 << uint(i%8)
	}
}

// Get returns flag i.
func (b BitField) Get(i int) bool {
	return b.Data[i/8]&(1<<uint(i%8)) != 0
}

// --------------------------------------------------------------------------
// Output sinks: packed vs. unpacked result layout (§4.1)
// --------------------------------------------------------------------------

// UnpackedSink checks each element against its own capacity Sizes[i]
// (capacities are read from Sizes on entry) and overwrites Sizes[i] with
// the actual length written (or a sentinel). Element i is written at the
// sum of the Sizes entries of slots 0..i-1 as they stand at that moment;
// once those slots are written, that is the sum of their actual lengths
// (sentinel slots count zero), so elements written in index order lie back
// to back in Data. Slot i does not start at the sum of the earlier
// capacities.
type UnpackedSink struct {
	Data  []byte
	Sizes []uint64
}

// Write stores elem at logical position i, respecting the pre-assigned
// capacity Sizes[i], and returns the length written (or a sentinel).
func (s UnpackedSink) Write(i int, elem []byte) uint64 {
	offset := s.offset(i)
	capacity := s.Sizes[i]
	if uint64(len(elem)) > capacity {
		s.Sizes[i] = SizeTooSmall
		return SizeTooSmall
	}
	copy(s.Data[offset:], elem)
	s.Sizes[i] = uint64(len(elem))
	return uint64(len(elem))
}

// MarkNotFound stamps slot i as KeyNotFound without writing any bytes.
func (s UnpackedSink) MarkNotFound(i int) {
	s.Sizes[i] = KeyNotFound
}

// MarkNoMoreKeys stamps slot i as NoMoreKeys, used by listing operations
// once the underlying iterator is exhausted before filling every slot.
func (s UnpackedSink) MarkNoMoreKeys(i int) {
	s.Sizes[i] = NoMoreKeys
}

// Len returns the number of slots this sink can hold.
func (s UnpackedSink) Len() int {
	return len(s.Sizes)
}

func (s UnpackedSink) offset(i int) uint64 {
	var offset uint64
	for j := 0; j < i; j++ {
		size := s.Sizes[j]
		if IsSentinel(size) {
			// an already-written slot stamped with a sentinel holds no
			// bytes in Data.
			continue
		}
		offset += size
	}
	return offset
}

// PackedSink appends elements contiguously to Data starting at Offset and
// writes the per-element length into Sizes[i]. Once the destination
// overflows, every subsequent slot in the stream is stamped SizeTooSmall
// and no further bytes are written (§3 invariant on packed overflow
// monotonicity).
type PackedSink struct {
	Data    []byte
	Sizes   []uint64
	Offset  uint64
	Overflo bool
}

// Write appends elem at the current offset, or stamps the slot
// SizeTooSmall if it (or any earlier element in this sink) already
// overflowed the destination.
func (s *PackedSink) Write(i int, elem []byte) uint64 {
	if s.Overflo {
		s.Sizes[i] = SizeTooSmall
		return SizeTooSmall
	}
	remaining := uint64(len(s.Data)) - s.Offset
	if uint64(len(elem)) > remaining {
		s.Overflo = true
		s.Sizes[i] = SizeTooSmall
		return SizeTooSmall
	}
	copy(s.Data[s.Offset:], elem)
	s.Sizes[i] = uint64(len(elem))
	s.Offset += uint64(len(elem))
	return uint64(len(elem))
}

// MarkNotFound stamps slot i as KeyNotFound without writing any bytes or
// advancing the offset.
func (s *PackedSink) MarkNotFound(i int) {
	s.Sizes[i] = KeyNotFound
}

// MarkNoMoreKeys stamps slot i as NoMoreKeys, used by listing operations
// once the underlying iterator is exhausted before filling every slot.
func (s *PackedSink) MarkNoMoreKeys(i int) {
	s.Sizes[i] = NoMoreKeys
}

// Len returns the number of slots this sink can hold.
func (s *PackedSink) Len() int {
	return len(s.Sizes)
}

// FillRemaining stamps every slot from index from (inclusive) to sink.Len() with
// NoMoreKeys, used when a listing iterator is exhausted before filling
// the whole destination (§3 invariant).
func FillRemaining(sink ResultSink, from int) {
	for j := from; j < sink.Len(); j++ {
		sink.MarkNoMoreKeys(j)
	}
}

// --------------------------------------------------------------------------
// keyCopy / valCopy policy (§4.3.1)
// --------------------------------------------------------------------------

// KeyCopyPolicy computes the bytes that should be emitted for a key during
// a listing operation, honoring IgnoreKeys/KeepLast/NoPrefix/Suffix. It
// does not itself write to any destination; it returns the slice the
// caller should hand to a sink's Write.
//
// filterSize is the number of bytes matched by the active filter (0 if the
// filter wasn't a literal prefix/suffix match), stripped from the key when
// NoPrefix is set.
func KeyCopyPolicy(mode Mode, key []byte, filterSize int, isLast bool) []byte {
	if mode.Has(ModeIgnoreKeys) && !(isLast && mode.Has(ModeKeepLast)) {
		return nil
	}
	if !mode.Has(ModeNoPrefix) {
		return key
	}
	if filterSize > len(key) {
		filterSize = len(key)
	}
	if mode.Has(ModeSuffix) {
		return key[:len(key)-filterSize]
	}
	return key[filterSize:]
}
