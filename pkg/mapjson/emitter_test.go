package mapjson

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
)

var errSink = errors.New("sink failed")

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, errSink
}

func emitInts(t *testing.T, n int) string {
	t.Helper()
	var buf bytes.Buffer
	e := NewEmitter(&buf)
	c := e.Open(KindArray)
	for i := 0; i < n; i++ {
		c.Next()
		e.Int(i)
	}
	c.Close()
	if err := e.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	return buf.String()
}

func TestContainer_CommaCount(t *testing.T) {
	tests := []struct {
		name string
		n    int
		want string
	}{
		{"empty", 0, "[]"},
		{"one", 1, "[0]"},
		{"two", 2, "[0,1]"},
		{"three", 3, "[0,1,2]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := emitInts(t, tt.n); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestContainer_CommaCountLarge(t *testing.T) {
	const n = 10000
	out := emitInts(t, n)

	if got := strings.Count(out, ","); got != n-1 {
		t.Errorf("comma count = %d, want %d", got, n-1)
	}
	if strings.Contains(out, "[,") || strings.Contains(out, ",]") || strings.Contains(out, ",,") {
		t.Error("found leading, trailing or doubled comma")
	}

	var values []int
	if err := json.Unmarshal([]byte(out), &values); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(values) != n {
		t.Errorf("decoded %d values, want %d", len(values), n)
	}
}

func TestContainer_IndependentState(t *testing.T) {
	var buf bytes.Buffer
	e := NewEmitter(&buf)

	outer := e.Open(KindArray)
	for n := 0; n < 3; n++ {
		outer.Next()
		inner := e.Open(KindArray)
		for i := 0; i < n; i++ {
			inner.Next()
			e.Int(i)
		}
		inner.Close()
	}
	outer.Close()
	e.Flush()

	want := "[[],[0],[0,1]]"
	if got := buf.String(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestContainer_Object(t *testing.T) {
	var buf bytes.Buffer
	e := NewEmitter(&buf)

	err := e.Object(func(o *Container) error {
		o.Field("a")
		e.Int(1)
		o.Field("b")
		return e.Array(func(c *Container) error { return nil })
	})
	if err != nil {
		t.Fatalf("Object: %v", err)
	}
	e.Flush()

	want := `{"a":1,"b":[]}`
	if got := buf.String(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestContainer_Len(t *testing.T) {
	e := NewEmitter(&bytes.Buffer{})
	c := e.Open(KindArray)
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}
	c.Next()
	c.Next()
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
}

func TestContainer_CloseTwice(t *testing.T) {
	var buf bytes.Buffer
	e := NewEmitter(&buf)
	c := e.Open(KindObject)
	c.Close()
	c.Close()
	e.Flush()
	if got := buf.String(); got != "{}" {
		t.Errorf("got %q, want %q", got, "{}")
	}
}

func TestEmitter_String(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", `"plain"`},
		{"", `""`},
		{`a"b`, `"a\"b"`},
		{`back\slash`, `"back\\slash"`},
		{"line\nbreak", `"line\nbreak"`},
		{"ctl\x01", `"ctl\u0001"`},
		{"<tag>&", `"<tag>&"`},
		{"日本語", `"日本語"`},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			var buf bytes.Buffer
			e := NewEmitter(&buf)
			e.String(tt.in)
			e.Flush()

			if got := buf.String(); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
			var back string
			if err := json.Unmarshal(buf.Bytes(), &back); err != nil {
				t.Fatalf("invalid JSON string: %v", err)
			}
			if back != tt.in {
				t.Errorf("round trip = %q, want %q", back, tt.in)
			}
		})
	}
}

func TestEmitter_Float32(t *testing.T) {
	tests := []struct {
		in   float32
		want string
	}{
		{0, "0"},
		{10, "10"},
		{-250, "-250"},
		{1.5, "1.5"},
		{0.1, "0.1"},
		{1e7, "1e+07"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			var buf bytes.Buffer
			e := NewEmitter(&buf)
			e.Float32(tt.in)
			e.Flush()
			if got := buf.String(); got != tt.want {
				t.Errorf("Float32(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestEmitter_NonFinite(t *testing.T) {
	var buf bytes.Buffer
	e := NewEmitter(&buf)
	e.Float32(float32(math.Inf(1)))
	if !errors.Is(e.Err(), ErrNonFinite) {
		t.Errorf("Err() = %v, want ErrNonFinite", e.Err())
	}
}

func TestEmitter_SinkFailure(t *testing.T) {
	e := NewEmitter(failingWriter{})
	err := e.Array(func(c *Container) error {
		for i := 0; i < 5000; i++ {
			c.Next()
			e.Int(i)
		}
		return nil
	})
	if !errors.Is(err, errSink) {
		t.Errorf("Array() = %v, want sink error", err)
	}
	if !errors.Is(e.Flush(), errSink) {
		t.Errorf("Flush() = %v, want sink error", e.Flush())
	}
}

func TestEmitter_SinkFailureOnFlush(t *testing.T) {
	e := NewEmitter(failingWriter{})
	e.Int(1)
	if e.Err() != nil {
		t.Fatalf("buffered write should not fail yet: %v", e.Err())
	}
	if err := e.Flush(); !errors.Is(err, errSink) {
		t.Errorf("Flush() = %v, want sink error", err)
	}
}

func TestScope_ClosesOnError(t *testing.T) {
	var buf bytes.Buffer
	e := NewEmitter(&buf)
	errBoom := errors.New("boom")

	err := e.Object(func(o *Container) error {
		o.Field("items")
		return e.Array(func(c *Container) error {
			c.Next()
			e.Int(1)
			return errBoom
		})
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("got %v, want boom", err)
	}
	e.Flush()

	want := `{"items":[1]}`
	if got := buf.String(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestScope_ClosesOnPanic(t *testing.T) {
	var buf bytes.Buffer
	e := NewEmitter(&buf)

	func() {
		defer func() { recover() }()
		e.Array(func(c *Container) error {
			panic("boom")
		})
	}()
	e.Flush()

	if got := buf.String(); got != "[]" {
		t.Errorf("got %q, want %q", got, "[]")
	}
}
