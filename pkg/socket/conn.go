// Package socket implements the socket level fault scenarios: the connection
// primitives, the scenario table, the port registry and the per scenario listener.
package socket

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	crlf = "\r\n"

	// bodyWait bounds how long ConsumeRequest waits for request body bytes that are
	// not yet available.
	bodyWait = 50 * time.Millisecond

	// maxLineLength caps a single request or header line.
	maxLineLength = 64 << 10
)

var ErrLineTooLong = errors.New("request line exceeds maximum length")

// Conn wraps an accepted connection. Reads go through a line reader and writes are
// buffered until a flush is requested, which is what lets a scenario emit a chopped
// fragment and then tear the connection down.
type Conn struct {
	conn      net.Conn
	reader    *bufio.Reader
	writer    *bufio.Writer
	id        string
	logger    *zap.Logger
	closeOnce sync.Once
	closeErr  error
}

func NewConn(logger *zap.Logger, c net.Conn) *Conn {
	id := uuid.NewString()
	peer := ""
	if addr := c.RemoteAddr(); addr != nil {
		peer = addr.String()
	}
	return &Conn{
		conn:   c,
		reader: bufio.NewReader(c),
		writer: bufio.NewWriter(c),
		id:     id,
		logger: logger.With(zap.String("conn", id), zap.String("peer", peer)),
	}
}

func (c *Conn) ID() string {
	return c.id
}

func (c *Conn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// ReadLine reads up to a CRLF or bare LF and returns the line without its
// terminator. A blank line yields ("", nil) while a stream that ends before any byte
// yields ("", io.EOF). A trailing unterminated line is returned as is; the following
// call reports io.EOF.
func (c *Conn) ReadLine() (string, error) {
	var line []byte
	for {
		frag, err := c.reader.ReadSlice('\n')
		if len(line)+len(frag) > maxLineLength {
			return "", ErrLineTooLong
		}
		line = append(line, frag...)
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if err != nil {
			if errors.Is(err, io.EOF) && len(line) > 0 {
				return strings.TrimSuffix(string(line), "\r"), nil
			}
			return "", err
		}
		line = bytes.TrimSuffix(line, []byte("\n"))
		return string(bytes.TrimSuffix(line, []byte("\r"))), nil
	}
}

// ReadHeaderBlock reads lines until a blank line or the end of the stream. Header
// syntax is not validated.
func (c *Conn) ReadHeaderBlock() ([]string, error) {
	var headers []string
	for {
		line, err := c.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return headers, nil
			}
			return headers, err
		}
		if line == "" {
			return headers, nil
		}
		c.logger.Debug("got HTTP request header", zap.String("header", line))
		headers = append(headers, line)
	}
}

// Request is what ConsumeRequest managed to read. It is only structural.
type Request struct {
	Line          string
	Headers       []string
	ContentLength int
	Body          []byte
}

// ConsumeRequest reads the request line, the header block and as much of the
// declared body as is readily available.
func (c *Conn) ConsumeRequest() (*Request, error) {
	line, err := c.ReadLine()
	if err != nil {
		return nil, err
	}
	req := &Request{Line: line}
	if line == "" {
		c.logger.Warn("missing HTTP request line")
	} else {
		c.logger.Info("got HTTP request line", zap.String("line", line))
	}

	req.Headers, err = c.ReadHeaderBlock()
	if err != nil {
		return req, err
	}
	req.ContentLength = contentLength(req.Headers)
	if req.ContentLength == 0 {
		return req, nil
	}

	req.Body, err = c.readAvailable(req.ContentLength)
	c.logger.Debug("got HTTP request payload", zap.Int("contentLength", req.ContentLength), zap.Int("read", len(req.Body)))
	return req, err
}

// readAvailable reads up to n bytes, giving the peer at most bodyWait to deliver
// what is not buffered yet. Running out of time is not an error.
func (c *Conn) readAvailable(n int) ([]byte, error) {
	var body bytes.Buffer
	buffered := c.reader.Buffered()
	if buffered > n {
		buffered = n
	}
	if _, err := io.CopyN(&body, c.reader, int64(buffered)); err != nil {
		return body.Bytes(), err
	}
	if body.Len() == n {
		return body.Bytes(), nil
	}

	if err := c.conn.SetReadDeadline(time.Now().Add(bodyWait)); err != nil {
		return body.Bytes(), nil
	}
	defer func() { _ = c.conn.SetReadDeadline(time.Time{}) }()

	_, err := io.CopyN(&body, c.reader, int64(n-body.Len()))
	if err != nil && (errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, io.EOF)) {
		err = nil
	}
	return body.Bytes(), err
}

func contentLength(headers []string) int {
	for _, h := range headers {
		name, value, ok := strings.Cut(h, ":")
		if !ok || !strings.EqualFold(strings.TrimSpace(name), "content-length") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n < 0 {
			return 0
		}
		return n
	}
	return 0
}

// WriteFragment buffers data and only pushes it to the peer when flush is set.
func (c *Conn) WriteFragment(data string, flush bool) error {
	if _, err := c.writer.WriteString(data); err != nil {
		return err
	}
	c.logger.Debug("wrote data", zap.String("data", data), zap.Bool("flush", flush))
	if flush {
		return c.writer.Flush()
	}
	return nil
}

func (c *Conn) WriteStatusLine(code int, status string, flush bool) error {
	return c.WriteFragment("HTTP/1.1 "+strconv.Itoa(code)+" "+status+crlf, flush)
}

func (c *Conn) WriteHeader(name, value string, flush bool) error {
	return c.WriteFragment(name+": "+value+crlf, flush)
}

// WriteLineBreak terminates the header block.
func (c *Conn) WriteLineBreak(flush bool) error {
	return c.WriteFragment(crlf, flush)
}

// Pause blocks for d. It returns early only when ctx is done.
func (c *Conn) Pause(ctx context.Context, d time.Duration) error {
	c.logger.Info("pausing connection", zap.Duration("duration", d))
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CloseAbrupt drops the connection with SO_LINGER=0 so the peer receives a reset.
// Anything still sitting in the write buffer is discarded.
func (c *Conn) CloseAbrupt() error {
	c.closeOnce.Do(func() {
		if tc, ok := c.conn.(*net.TCPConn); ok {
			_ = tc.SetLinger(0)
		}
		c.logger.Info("closing connection", zap.Bool("abrupt", true))
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

// CloseGraceful flushes pending writes before closing.
func (c *Conn) CloseGraceful() error {
	c.closeOnce.Do(func() {
		flushErr := c.writer.Flush()
		c.logger.Info("closing connection", zap.Bool("abrupt", false))
		c.closeErr = errors.Join(flushErr, c.conn.Close())
	})
	return c.closeErr
}
