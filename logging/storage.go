package logging

import (
	"encoding/binary"
	"sync"

	"github.com/ehrlich-b/go-mcufw/ringbuf"
)

// frame prefix: record size as uint16 little-endian
const prefixSize = 2

// RingStorage keeps records in a ring buffer, length-prefixed. It is
// the default storage and is safe for concurrent writers and readers.
type RingStorage struct {
	mu    sync.Mutex
	ring  *ringbuf.Ring
	count int
}

// NewRingStorage allocates a ring-backed storage. The usable capacity
// is the largest power of two that fits in size.
func NewRingStorage(size int) (*RingStorage, error) {
	r, err := ringbuf.New(size)
	if err != nil {
		return nil, err
	}
	return &RingStorage{ring: r}, nil
}

// NewRingStorageStatic wraps caller-owned storage.
func NewRingStorageStatic(buf []byte) (*RingStorage, error) {
	r, err := ringbuf.NewStatic(buf)
	if err != nil {
		return nil, err
	}
	return &RingStorage{ring: r}, nil
}

// Write stores one record. The record is dropped, and 0 returned, when
// the ring has no room for the whole frame.
func (s *RingStorage) Write(rec []byte) int {
	if len(rec) == 0 || len(rec) > 0xFFFF {
		return 0
	}
	var prefix [prefixSize]byte
	binary.LittleEndian.PutUint16(prefix[:], uint16(len(rec)))

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ring.Capacity()-s.ring.Length() < prefixSize+len(rec) {
		return 0
	}
	s.ring.Write(prefix[:])
	n := s.ring.Write(rec)
	s.count++
	return n
}

func (s *RingStorage) peekLocked(buf []byte) int {
	var prefix [prefixSize]byte
	if s.ring.Peek(0, prefix[:]) != prefixSize {
		return 0
	}
	size := int(binary.LittleEndian.Uint16(prefix[:]))
	if size > len(buf) {
		return 0
	}
	return s.ring.Peek(prefixSize, buf[:size])
}

// Peek fills buf with the oldest record without removing it. It
// returns 0 when the storage is empty or buf is too small.
func (s *RingStorage) Peek(buf []byte) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peekLocked(buf)
}

// Read fills buf with the oldest record and removes it.
func (s *RingStorage) Read(buf []byte) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.peekLocked(buf)
	if n > 0 {
		s.ring.Consume(prefixSize + n)
		s.count--
	}
	return n
}

// Consume removes the oldest record and returns its size. n is not
// used; the whole oldest record is removed whatever its value.
func (s *RingStorage) Consume(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var prefix [prefixSize]byte
	if s.ring.Peek(0, prefix[:]) != prefixSize {
		return 0
	}
	size := int(binary.LittleEndian.Uint16(prefix[:]))
	if !s.ring.Consume(prefixSize + size) {
		return 0
	}
	s.count--
	return size
}

// Count returns the number of stored records.
func (s *RingStorage) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

var _ Storage = (*RingStorage)(nil)
