//go:build unix

package logging

import (
	"encoding/binary"
	"io"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// FileStorage appends records to a file, length-prefixed, for POSIX
// hosts and simulators. Every write is fsync'd so a crashed run keeps
// its tail. Reads walk the file from the oldest unconsumed record;
// consumed records are not reclaimed until Reset.
type FileStorage struct {
	mu      sync.Mutex
	f       *os.File
	readOff int64
	count   int
}

// NewFileStorage opens or creates path and indexes any records already
// present.
func NewFileStorage(path string) (*FileStorage, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}
	s := &FileStorage{f: f}
	if err := s.scan(); err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

// scan counts the records already in the file and positions the write
// end past the last complete frame.
func (s *FileStorage) scan() error {
	var off int64
	var prefix [prefixSize]byte
	for {
		if _, err := s.f.ReadAt(prefix[:], off); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				break
			}
			return err
		}
		size := int64(binary.LittleEndian.Uint16(prefix[:]))
		end, err := s.f.Seek(0, io.SeekEnd)
		if err != nil {
			return err
		}
		if off+prefixSize+size > end {
			break // truncated trailing frame
		}
		off += prefixSize + size
		s.count++
	}
	return s.f.Truncate(off)
}

// Write appends one record and syncs it to disk.
func (s *FileStorage) Write(rec []byte) int {
	if len(rec) == 0 || len(rec) > 0xFFFF {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var prefix [prefixSize]byte
	binary.LittleEndian.PutUint16(prefix[:], uint16(len(rec)))

	end, err := s.f.Seek(0, io.SeekEnd)
	if err != nil {
		return 0
	}
	if _, err := s.f.Write(prefix[:]); err != nil {
		s.f.Truncate(end)
		return 0
	}
	if _, err := s.f.Write(rec); err != nil {
		s.f.Truncate(end)
		return 0
	}
	if err := unix.Fsync(int(s.f.Fd())); err != nil {
		return 0
	}
	s.count++
	return len(rec)
}

func (s *FileStorage) peekLocked(buf []byte) int {
	var prefix [prefixSize]byte
	if _, err := s.f.ReadAt(prefix[:], s.readOff); err != nil {
		return 0
	}
	size := int(binary.LittleEndian.Uint16(prefix[:]))
	if size > len(buf) {
		return 0
	}
	n, err := s.f.ReadAt(buf[:size], s.readOff+prefixSize)
	if err != nil {
		return 0
	}
	return n
}

// Peek fills buf with the oldest unconsumed record.
func (s *FileStorage) Peek(buf []byte) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peekLocked(buf)
}

// Read fills buf with the oldest unconsumed record and consumes it.
func (s *FileStorage) Read(buf []byte) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.peekLocked(buf)
	if n > 0 {
		s.readOff += prefixSize + int64(n)
		s.count--
	}
	return n
}

// Consume skips the oldest unconsumed record and returns its size.
func (s *FileStorage) Consume(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var prefix [prefixSize]byte
	if _, err := s.f.ReadAt(prefix[:], s.readOff); err != nil {
		return 0
	}
	size := int(binary.LittleEndian.Uint16(prefix[:]))
	s.readOff += prefixSize + int64(size)
	s.count--
	return size
}

// Count returns the number of unconsumed records.
func (s *FileStorage) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Reset truncates the file and rewinds the read cursor.
func (s *FileStorage) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.f.Truncate(0); err != nil {
		return err
	}
	s.readOff = 0
	s.count = 0
	return nil
}

// Close closes the underlying file.
func (s *FileStorage) Close() error {
	return s.f.Close()
}

var _ Storage = (*FileStorage)(nil)
