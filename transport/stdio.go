package transport

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
)

// stdioClientID is the implicit, sole client id of a Stdio transport:
// the process on the other end of stdin/stdout.
const stdioClientID ClientID = "stdio"

// Stdio is a Transport that frames messages with a trailing Unicode LF,
// reading from r and writing to wc. It has exactly one client, whose id
// is always "stdio". Outbound records may not themselves contain LF.
type Stdio struct {
	wc  io.WriteCloser
	buf *bufio.Reader
	in  chan ClientMessage

	mu     sync.Mutex
	closed bool
}

// NewStdio starts a Stdio transport reading framed messages from r and
// writing them to wc. The returned transport owns a background goroutine
// that stops once r is exhausted or closed.
func NewStdio(r io.Reader, wc io.WriteCloser) *Stdio {
	s := &Stdio{wc: wc, buf: bufio.NewReader(r), in: make(chan ClientMessage, 16)}
	go s.readLoop()
	return s
}

func (s *Stdio) readLoop() {
	defer close(s.in)
	for {
		line, err := s.readLine()
		if len(line) > 0 {
			s.in <- ClientMessage{ClientID: stdioClientID, Payload: line}
		}
		if err != nil {
			return
		}
	}
}

func (s *Stdio) readLine() ([]byte, error) {
	var buf bytes.Buffer
	for {
		chunk, err := s.buf.ReadSlice('\n')
		buf.Write(chunk)
		switch err {
		case bufio.ErrBufferFull:
			continue
		case nil:
			line := buf.Bytes()
			return line[:len(line)-1], nil
		default:
			return buf.Bytes(), err
		}
	}
}

func (s *Stdio) ClientMessages() <-chan ClientMessage { return s.in }

// Send writes payload terminated by LF. id must be "stdio".
func (s *Stdio) Send(ctx context.Context, id ClientID, payload []byte) error {
	if id != stdioClientID {
		return fmt.Errorf("transport: unknown client %q", id)
	}
	if bytes.ContainsAny(payload, "\n") {
		return errors.New("transport: message contains LF")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return io.ErrClosedPipe
	}
	out := make([]byte, len(payload)+1)
	copy(out, payload)
	out[len(payload)] = '\n'
	_, err := s.wc.Write(out)
	return err
}

func (s *Stdio) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.wc.Close()
}
