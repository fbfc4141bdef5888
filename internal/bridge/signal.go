package bridge

import (
	"bufio"
	"fmt"
	"io"
	"sync"
)

// Signaler emits a phase-transition marker for an outer dispatcher to
// observe. The engine drives the state machine; it never decides what
// a signal causes to happen next.
type Signaler interface {
	Emit(name string, iteration int)
}

// StdoutSignaler writes line-buffered `SIGNAL:<name>:<iteration>`
// markers, flushing after every line so a dispatcher tailing the
// process's stdout sees each signal as soon as it fires.
type StdoutSignaler struct {
	mu sync.Mutex
	w  *bufio.Writer
}

func NewStdoutSignaler(w io.Writer) *StdoutSignaler {
	return &StdoutSignaler{w: bufio.NewWriter(w)}
}

func (s *StdoutSignaler) Emit(name string, iteration int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "SIGNAL:%s:%d\n", name, iteration)
	s.w.Flush()
}

// noopSignaler discards signals; used by tests that don't care about
// the emitted sequence.
type noopSignaler struct{}

func (noopSignaler) Emit(string, int) {}
