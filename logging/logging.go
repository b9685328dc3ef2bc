// Package logging captures fixed-layout binary log records and hands
// them to a pluggable storage. Records are not human text; Stringify
// renders a stored record for display off the hot path.
//
// Each record carries the capture site (program counter and, when the
// runtime exposes it, the caller's return address) so a stripped-down
// build can still attribute a record to code without storing strings.
package logging

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"
)

// TagsMax bounds the per-tag level table.
const TagsMax = 8

var (
	ErrInvalidParam = errors.New("invalid parameters")
	ErrTagTableFull = errors.New("tag table full")
)

// Storage persists encoded records. Write stores one record and
// returns the bytes written (0 when the record was dropped). Peek and
// Read fill buf with the oldest record; Read also removes it. Consume
// removes the oldest record and returns its size. Count reports stored
// records.
type Storage interface {
	Write(rec []byte) int
	Peek(buf []byte) int
	Read(buf []byte) int
	Consume(n int) int
	Count() int
}

// Context overrides the capture site of a record.
type Context struct {
	Tag string
	PC  uint64
	LR  uint64
}

type tagLevel struct {
	tag   string
	level Severity
}

// Pipeline gates records by severity and forwards them to a Storage.
type Pipeline struct {
	mu      sync.Mutex
	storage Storage
	global  Severity
	tags    []tagLevel
	nowFn   func() int64
}

// New creates a pipeline on top of storage. The global level starts at
// SeverityDebug, so only Verbose records are gated by default.
func New(storage Storage) (*Pipeline, error) {
	if storage == nil {
		return nil, ErrInvalidParam
	}
	return &Pipeline{
		storage: storage,
		global:  SeverityDebug,
		tags:    make([]tagLevel, 0, TagsMax),
		nowFn:   func() int64 { return time.Now().Unix() },
	}, nil
}

// SetLevelGlobal changes the minimum severity stored for every tag.
func (p *Pipeline) SetLevelGlobal(min Severity) {
	if min >= numSeverities {
		return
	}
	p.mu.Lock()
	p.global = min
	p.mu.Unlock()
}

// GetLevelGlobal returns the global minimum severity.
func (p *Pipeline) GetLevelGlobal() Severity {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.global
}

// SetLevel changes the minimum severity stored for the tag. A record is
// stored only when its severity passes both the global and the tag
// threshold.
func (p *Pipeline) SetLevel(tag string, min Severity) error {
	if tag == "" || min >= numSeverities {
		return ErrInvalidParam
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.tags {
		if p.tags[i].tag == tag {
			p.tags[i].level = min
			return nil
		}
	}
	if len(p.tags) == TagsMax {
		return ErrTagTableFull
	}
	p.tags = append(p.tags, tagLevel{tag: tag, level: min})
	return nil
}

// GetLevel returns the tag's minimum severity, SeverityVerbose when the
// tag has never been configured.
func (p *Pipeline) GetLevel(tag string) Severity {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tagLevelLocked(tag)
}

func (p *Pipeline) tagLevelLocked(tag string) Severity {
	for i := range p.tags {
		if p.tags[i].tag == tag {
			return p.tags[i].level
		}
	}
	return SeverityVerbose
}

// CountTags returns the number of configured tags.
func (p *Pipeline) CountTags() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.tags)
}

// IterateTags calls fn for every configured tag.
func (p *Pipeline) IterateTags(fn func(tag string, min Severity)) {
	p.mu.Lock()
	snapshot := append([]tagLevel(nil), p.tags...)
	p.mu.Unlock()
	for _, t := range snapshot {
		fn(t.tag, t.level)
	}
}

// Save composes one record at the caller's site and writes it to
// storage when its severity passes the level gates. The tag defaults to
// the caller's file. It returns the bytes written, 0 when gated or
// dropped by storage.
func (p *Pipeline) Save(sev Severity, format string, args ...any) int {
	return p.save(sev, 2, Context{}, format, args)
}

// SaveContext is Save with an explicit capture site.
func (p *Pipeline) SaveContext(sev Severity, ctx Context, format string, args ...any) int {
	return p.save(sev, 2, ctx, format, args)
}

// Severity wrappers, mirroring the record severities.
func (p *Pipeline) Verbose(format string, args ...any) int {
	return p.save(SeverityVerbose, 2, Context{}, format, args)
}

func (p *Pipeline) Debug(format string, args ...any) int {
	return p.save(SeverityDebug, 2, Context{}, format, args)
}

func (p *Pipeline) Info(format string, args ...any) int {
	return p.save(SeverityInfo, 2, Context{}, format, args)
}

func (p *Pipeline) Notice(format string, args ...any) int {
	return p.save(SeverityNotice, 2, Context{}, format, args)
}

func (p *Pipeline) Warn(format string, args ...any) int {
	return p.save(SeverityWarn, 2, Context{}, format, args)
}

func (p *Pipeline) Error(format string, args ...any) int {
	return p.save(SeverityError, 2, Context{}, format, args)
}

func (p *Pipeline) Alert(format string, args ...any) int {
	return p.save(SeverityAlert, 2, Context{}, format, args)
}

func (p *Pipeline) save(sev Severity, skip int, ctx Context, format string, args []any) int {
	if sev >= numSeverities {
		return 0
	}
	if ctx.Tag == "" || ctx.PC == 0 {
		pc, file, _, ok := runtime.Caller(skip)
		if ok {
			if ctx.PC == 0 {
				ctx.PC = uint64(pc)
				if lr, _, _, ok := runtime.Caller(skip + 1); ok && ctx.LR == 0 {
					ctx.LR = uint64(lr)
				}
			}
			if ctx.Tag == "" {
				ctx.Tag = file
			}
		}
	}

	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	if len(msg) > MessageMaxLen {
		msg = msg[:MessageMaxLen]
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if sev < p.global || sev < p.tagLevelLocked(ctx.Tag) {
		return 0
	}

	rec := Record{
		Timestamp: p.nowFn(),
		PC:        ctx.PC,
		LR:        ctx.LR,
		Severity:  sev,
		Message:   []byte(msg),
	}
	rec.Magic = computeMagic(rec.PC, rec.LR)

	var buf [RecordMaxSize]byte
	n := encodeRecord(buf[:], &rec)
	return p.storage.Write(buf[:n])
}

// Peek fills buf with the oldest stored record without removing it.
func (p *Pipeline) Peek(buf []byte) int {
	return p.storage.Peek(buf)
}

// Read fills buf with the oldest stored record and removes it.
func (p *Pipeline) Read(buf []byte) int {
	return p.storage.Read(buf)
}

// Consume removes the oldest stored record.
func (p *Pipeline) Consume(n int) int {
	return p.storage.Consume(n)
}

// Count returns the number of stored records.
func (p *Pipeline) Count() int {
	return p.storage.Count()
}
