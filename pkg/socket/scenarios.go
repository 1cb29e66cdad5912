package socket

import (
	"context"
	"strconv"

	"go.uber.org/zap"
)

const (
	incompleteBody   = "incomplete data"
	declaredLength   = 1000
	choppedStatus    = "HTTP/1.1 "
	choppedHeader    = "Content-Len"
	validBody        = "OK"
	contentTypePlain = "text/plain"
)

func immediateTermination(_ context.Context, c *Conn, _ Options) error {
	return c.CloseAbrupt()
}

func resetAfterRequestLine(_ context.Context, c *Conn, _ Options) error {
	line, err := c.ReadLine()
	if err != nil {
		return err
	}
	if line == "" {
		c.logger.Warn("missing HTTP request line")
	} else {
		c.logger.Info("got HTTP request line", zap.String("line", line))
	}
	return c.CloseAbrupt()
}

func resetAfterRequestHeaders(_ context.Context, c *Conn, _ Options) error {
	line, err := c.ReadLine()
	if err != nil {
		return err
	}
	if line == "" {
		c.logger.Warn("missing HTTP request line")
		return c.CloseAbrupt()
	}
	c.logger.Info("got HTTP request line", zap.String("line", line))
	if _, err := c.ReadHeaderBlock(); err != nil {
		return err
	}
	return c.CloseAbrupt()
}

func resetAfterRequest(_ context.Context, c *Conn, _ Options) error {
	if _, err := c.ConsumeRequest(); err != nil {
		return err
	}
	return c.CloseAbrupt()
}

func resetAfterResponseLine(_ context.Context, c *Conn, _ Options) error {
	if _, err := c.ConsumeRequest(); err != nil {
		return err
	}
	if err := c.WriteStatusLine(200, "OK", true); err != nil {
		return err
	}
	return c.CloseAbrupt()
}

func resetIncompleteResponse(_ context.Context, c *Conn, _ Options) error {
	if _, err := c.ConsumeRequest(); err != nil {
		return err
	}
	if err := c.WriteStatusLine(200, "OK", false); err != nil {
		return err
	}
	if err := c.WriteHeader("Content-Length", strconv.Itoa(declaredLength), true); err != nil {
		return err
	}
	if err := c.WriteLineBreak(false); err != nil {
		return err
	}
	if err := c.WriteFragment(incompleteBody, true); err != nil {
		return err
	}
	return c.CloseAbrupt()
}

func resetWithChoppedResponseHeader(_ context.Context, c *Conn, _ Options) error {
	if _, err := c.ConsumeRequest(); err != nil {
		return err
	}
	if err := c.WriteStatusLine(200, "OK", false); err != nil {
		return err
	}
	if err := c.WriteHeader("Content-Type", contentTypePlain, false); err != nil {
		return err
	}
	if err := c.WriteFragment(choppedHeader, true); err != nil {
		return err
	}
	return c.CloseAbrupt()
}

func resetWithChoppedResponseLine(_ context.Context, c *Conn, _ Options) error {
	if _, err := c.ConsumeRequest(); err != nil {
		return err
	}
	if err := c.WriteFragment(choppedStatus, true); err != nil {
		return err
	}
	return c.CloseAbrupt()
}

// HTTP clients are expected to give up long before the pause ends.
func timeoutBeforeRequest(ctx context.Context, c *Conn, opts Options) error {
	if err := c.Pause(ctx, opts.Pause); err != nil {
		return err
	}
	if _, err := c.ConsumeRequest(); err != nil {
		return err
	}
	return c.CloseGraceful()
}

func timeoutAfterRequest(ctx context.Context, c *Conn, opts Options) error {
	if _, err := c.ConsumeRequest(); err != nil {
		return err
	}
	if err := c.Pause(ctx, opts.Pause); err != nil {
		return err
	}
	return c.CloseAbrupt()
}

func timeoutAfterResponseHeaders(ctx context.Context, c *Conn, opts Options) error {
	if _, err := c.ConsumeRequest(); err != nil {
		return err
	}
	if err := c.WriteStatusLine(200, "OK", false); err != nil {
		return err
	}
	if err := c.WriteHeader("Content-Type", contentTypePlain, false); err != nil {
		return err
	}
	if err := c.WriteHeader("Content-Length", strconv.Itoa(declaredLength), false); err != nil {
		return err
	}
	if err := c.WriteLineBreak(true); err != nil {
		return err
	}
	if err := c.Pause(ctx, opts.Pause); err != nil {
		return err
	}
	return c.CloseAbrupt()
}

func validResponse(_ context.Context, c *Conn, _ Options) error {
	if _, err := c.ConsumeRequest(); err != nil {
		return err
	}
	if err := c.WriteStatusLine(200, "OK", false); err != nil {
		return err
	}
	if err := c.WriteHeader("Content-Type", contentTypePlain, false); err != nil {
		return err
	}
	if err := c.WriteHeader("Content-Length", strconv.Itoa(len(validBody)), false); err != nil {
		return err
	}
	if err := c.WriteHeader("Connection", "close", false); err != nil {
		return err
	}
	if err := c.WriteLineBreak(false); err != nil {
		return err
	}
	if err := c.WriteFragment(validBody, false); err != nil {
		return err
	}
	return c.CloseGraceful()
}
