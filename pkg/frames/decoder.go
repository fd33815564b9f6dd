package frames

import (
	"context"
	"io"

	"github.com/nikmy/sqlrelay/pkg/errors"
	"github.com/nikmy/sqlrelay/pkg/sqlerr"
	"github.com/nikmy/sqlrelay/pkg/wire"
)

type decoderState int

const (
	stateFresh decoderState = iota
	stateStreaming
	stateDone
	stateFailed
)

// Decoder validates a frame stream against Header? Batch* (Complete|Error)
// and hands out the rows of every batch in arrival order.
//
// A Decoder is not safe for concurrent use.
type Decoder struct {
	src Source

	state   decoderState
	err     error
	closed  bool
	pending []wire.Row

	columns   []wire.Column
	hasHeader bool
	stats     wire.Stats
}

func NewDecoder(src Source) *Decoder {
	return &Decoder{src: src}
}

// Start consumes the first frame. It is called implicitly by Next and
// does nothing when the first frame was already read.
func (d *Decoder) Start(ctx context.Context) error {
	if d.state != stateFresh {
		return d.err
	}
	d.state = stateStreaming

	f, err := d.recv(ctx)
	if err != nil {
		return err
	}

	switch f := f.(type) {
	case wire.HeaderFrame:
		d.columns = f.Columns
		d.hasHeader = true
		return nil
	case wire.BatchFrame:
		d.pending = f.Rows
		return nil
	case wire.CompleteFrame:
		d.stats = f.Stats
		return d.complete(ctx)
	case wire.ErrorFrame:
		return d.fail(executionError(f))
	case nil:
		return d.fail(sqlerr.ProtocolViolation("empty first frame"))
	default:
		return d.fail(sqlerr.ProtocolViolation("unexpected frame %T", f))
	}
}

// Next returns the rows of the next batch. It returns io.EOF after the
// Complete frame and the stream error, on every call, once the stream failed.
func (d *Decoder) Next(ctx context.Context) ([]wire.Row, error) {
	if err := d.Start(ctx); err != nil {
		return nil, err
	}

	if d.pending != nil {
		rows := d.pending
		d.pending = nil
		return rows, nil
	}

	switch d.state {
	case stateDone:
		return nil, io.EOF
	case stateFailed:
		return nil, d.err
	}

	f, err := d.recv(ctx)
	if err != nil {
		return nil, err
	}

	switch f := f.(type) {
	case wire.BatchFrame:
		if f.Rows == nil {
			return []wire.Row{}, nil
		}
		return f.Rows, nil
	case wire.CompleteFrame:
		d.stats = f.Stats
		if err := d.complete(ctx); err != nil {
			return nil, err
		}
		return nil, io.EOF
	case wire.ErrorFrame:
		return nil, d.fail(executionError(f))
	case wire.HeaderFrame:
		return nil, d.fail(sqlerr.ProtocolViolation("header frame after the first frame"))
	case nil:
		return nil, d.fail(sqlerr.ProtocolViolation("empty frame"))
	default:
		return nil, d.fail(sqlerr.ProtocolViolation("unexpected frame %T", f))
	}
}

// Columns is the header metadata; empty when the stream carried no header.
func (d *Decoder) Columns() []wire.Column {
	return d.columns
}

func (d *Decoder) HasHeader() bool {
	return d.hasHeader
}

// Stats are valid once Next has returned io.EOF.
func (d *Decoder) Stats() wire.Stats {
	return d.stats
}

func (d *Decoder) Done() bool {
	return d.state == stateDone || d.state == stateFailed
}

// Close releases the source. Further calls are no-ops.
func (d *Decoder) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true

	if d.state == stateFresh || d.state == stateStreaming {
		d.state = stateFailed
		d.err = ErrClosed
		d.pending = nil
	}
	return errors.WrapFail(d.src.Close(), "close frame source")
}

func (d *Decoder) recv(ctx context.Context) (wire.Frame, error) {
	f, err := d.src.Recv(ctx)
	if err == io.EOF {
		return nil, d.fail(sqlerr.ProtocolViolation("stream ended before a terminal frame"))
	}
	if err != nil {
		return nil, d.fail(errors.WrapFail(err, "receive frame"))
	}
	return f, nil
}

// complete checks that nothing follows the Complete frame.
func (d *Decoder) complete(ctx context.Context) error {
	f, err := d.src.Recv(ctx)
	switch {
	case err == io.EOF:
		d.state = stateDone
		d.release()
		return nil
	case err != nil:
		return d.fail(errors.WrapFail(err, "receive end of stream"))
	case f == nil:
		return d.fail(sqlerr.ProtocolViolation("empty frame after complete"))
	default:
		return d.fail(sqlerr.ProtocolViolation("%s frame after complete", f.Kind()))
	}
}

func (d *Decoder) fail(err error) error {
	d.state = stateFailed
	d.err = err
	d.pending = nil
	d.release()
	return err
}

func (d *Decoder) release() {
	if !d.closed {
		d.closed = true
		_ = d.src.Close()
	}
}

func executionError(f wire.ErrorFrame) error {
	return &sqlerr.SQLExecutionError{
		Message: f.Message,
		SQL:     f.SQL,
		Code:    f.Code,
	}
}
