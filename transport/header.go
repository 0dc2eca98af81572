package transport

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
)

// headerClientID is the implicit sole client id of a Header transport.
const headerClientID ClientID = "header"

// Header is a Transport that frames messages the way editor-integration
// clients of MCP commonly do, reusing the Language Server Protocol's
// header/body framing:
//
//	Content-Type: <mime-type>\r\n
//	Content-Length: <nbytes>\r\n
//	\r\n
//	<payload>
//
// It has exactly one client, whose id is always "header".
type Header struct {
	mimeType string
	wc       io.WriteCloser
	rd       *bufio.Reader
	in       chan ClientMessage

	mu     sync.Mutex
	closed bool
}

// NewHeader starts a Header transport with the given Content-Type value,
// reading from r and writing to wc.
func NewHeader(mimeType string, r io.Reader, wc io.WriteCloser) *Header {
	h := &Header{
		mimeType: mimeType,
		wc:       wc,
		rd:       bufio.NewReader(r),
		in:       make(chan ClientMessage, 16),
	}
	go h.readLoop()
	return h
}

func (h *Header) readLoop() {
	defer close(h.in)
	for {
		payload, err := h.readMessage()
		if payload != nil {
			h.in <- ClientMessage{ClientID: headerClientID, Payload: payload}
		}
		if err != nil {
			return
		}
	}
}

func (h *Header) readMessage() ([]byte, error) {
	headers := make(map[string]string)
	for {
		raw, err := h.rd.ReadString('\n')
		line := strings.TrimRight(raw, "\r\n")
		if line != "" {
			parts := strings.SplitN(line, ":", 2)
			if len(parts) != 2 {
				return nil, errors.New("transport: invalid header line")
			}
			headers[strings.ToLower(parts[0])] = strings.TrimSpace(parts[1])
		}
		if err == io.EOF {
			if len(headers) == 0 {
				return nil, io.EOF
			}
			break
		} else if err != nil {
			return nil, err
		} else if line == "" {
			break
		}
	}

	if ctype, ok := headers["content-type"]; !ok || ctype != h.mimeType {
		return nil, errors.New("transport: unexpected content-type")
	}
	clen, ok := headers["content-length"]
	if !ok {
		return nil, errors.New("transport: missing content-length")
	}
	size, err := strconv.Atoi(clen)
	if err != nil || size < 0 {
		return nil, fmt.Errorf("transport: invalid content-length %q", clen)
	}

	data := make([]byte, size)
	if _, err := io.ReadFull(h.rd, data); err != nil {
		return nil, err
	}
	return data, nil
}

func (h *Header) ClientMessages() <-chan ClientMessage { return h.in }

// Send writes payload framed with Content-Type/Content-Length headers.
func (h *Header) Send(ctx context.Context, id ClientID, payload []byte) error {
	if id != headerClientID {
		return fmt.Errorf("transport: unknown client %q", id)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return io.ErrClosedPipe
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Content-Type: %s\r\n", h.mimeType)
	fmt.Fprintf(&buf, "Content-Length: %d\r\n\r\n", len(payload))
	buf.Write(payload)
	_, err := h.wc.Write(buf.Bytes())
	return err
}

func (h *Header) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	return h.wc.Close()
}
