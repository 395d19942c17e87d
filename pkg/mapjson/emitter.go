// Package mapjson streams map geometry as JSON and reads it back.
//
// Output is produced while the model tree is walked; nothing larger than a
// single scalar is buffered beyond the bufio layer in front of the sink.
package mapjson

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
)

// Emitter errors.
var (
	ErrNonFinite = errors.New("non-finite number cannot be encoded")
)

// Kind is the type of a container.
type Kind int

const (
	KindArray  Kind = iota // [ ... ]
	KindObject             // { ... }
)

func (k Kind) delims() (open, close byte) {
	if k == KindObject {
		return '{', '}'
	}
	return '[', ']'
}

// Emitter writes JSON punctuation and scalars to a sink.
// The first write error is sticky: later writes are dropped and Err returns it.
type Emitter struct {
	w       *bufio.Writer
	err     error
	scratch []byte
	str     bytes.Buffer
	strEnc  *json.Encoder
}

// NewEmitter returns an emitter writing to w.
func NewEmitter(w io.Writer) *Emitter {
	e := &Emitter{
		w:       bufio.NewWriter(w),
		scratch: make([]byte, 0, 32),
	}
	e.strEnc = json.NewEncoder(&e.str)
	e.strEnc.SetEscapeHTML(false)
	return e
}

// Err returns the first error seen by the emitter.
func (e *Emitter) Err() error {
	return e.err
}

// Flush writes buffered output to the sink.
func (e *Emitter) Flush() error {
	if e.err != nil {
		return e.err
	}
	if err := e.w.Flush(); err != nil {
		e.err = err
	}
	return e.err
}

func (e *Emitter) fail(err error) {
	if e.err == nil {
		e.err = err
	}
}

func (e *Emitter) writeByte(b byte) {
	if e.err != nil {
		return
	}
	if err := e.w.WriteByte(b); err != nil {
		e.err = err
	}
}

func (e *Emitter) write(p []byte) {
	if e.err != nil {
		return
	}
	if _, err := e.w.Write(p); err != nil {
		e.err = err
	}
}

// Int writes an integer.
func (e *Emitter) Int(i int) {
	e.scratch = strconv.AppendInt(e.scratch[:0], int64(i), 10)
	e.write(e.scratch)
}

// Float32 writes f in the shortest form that reads back as the same float32.
func (e *Emitter) Float32(f float32) {
	if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
		e.fail(fmt.Errorf("%w: %v", ErrNonFinite, f))
		return
	}
	e.scratch = strconv.AppendFloat(e.scratch[:0], float64(f), 'g', -1, 32)
	e.write(e.scratch)
}

// String writes s as a quoted, escaped JSON string.
func (e *Emitter) String(s string) {
	if e.err != nil {
		return
	}
	e.str.Reset()
	if err := e.strEnc.Encode(s); err != nil {
		e.fail(err)
		return
	}
	// Encode appends a newline.
	e.write(bytes.TrimRight(e.str.Bytes(), "\n"))
}

// Open writes the opening delimiter of a new, empty container.
func (e *Emitter) Open(kind Kind) *Container {
	open, _ := kind.delims()
	e.writeByte(open)
	return &Container{e: e, kind: kind}
}

// Array runs fn inside an array. The closing bracket is written on every
// exit path, including a panic in fn.
func (e *Emitter) Array(fn func(c *Container) error) error {
	return e.scope(KindArray, fn)
}

// Object runs fn inside an object. See Array.
func (e *Emitter) Object(fn func(c *Container) error) error {
	return e.scope(KindObject, fn)
}

func (e *Emitter) scope(kind Kind, fn func(c *Container) error) (err error) {
	c := e.Open(kind)
	defer func() {
		c.Close()
		if err == nil {
			err = e.err
		}
	}()
	return fn(c)
}

// Container is an open array or object. Each container tracks on its own
// whether it has received an item.
type Container struct {
	e      *Emitter
	kind   Kind
	items  int
	closed bool
}

// Next must be called once before every element, including the first.
// It writes the separating comma when the container is not empty.
func (c *Container) Next() {
	if c.items > 0 {
		c.e.writeByte(',')
	}
	c.items++
}

// Field starts an object member: separator, key and colon.
func (c *Container) Field(name string) {
	c.Next()
	c.e.String(name)
	c.e.writeByte(':')
}

// Len returns the number of elements started so far.
func (c *Container) Len() int {
	return c.items
}

// Close writes the closing delimiter. Closing twice is a no-op.
func (c *Container) Close() {
	if c.closed {
		return
	}
	c.closed = true
	_, end := c.kind.delims()
	c.e.writeByte(end)
}
