package results

import (
	"context"
	"io"

	"github.com/nikmy/sqlrelay/pkg/codec"
	"github.com/nikmy/sqlrelay/pkg/frames"
	"github.com/nikmy/sqlrelay/pkg/wire"
)

// RowIterator yields decoded rows one at a time, pulling a new batch frame
// only when the current one is exhausted. It is single-pass.
//
// A stream error is returned by exactly one call of Next, after the rows
// received before it. Every later call returns io.EOF.
type RowIterator struct {
	dec    *frames.Decoder
	codec  *codec.Codec
	mapErr func(error) error

	buf  []wire.Row
	done bool
}

func NewRowIterator(dec *frames.Decoder, c *codec.Codec) *RowIterator {
	return &RowIterator{dec: dec, codec: c, mapErr: func(err error) error { return err }}
}

// MapErrors sets f to rewrite stream errors before Next or Columns return them.
func (it *RowIterator) MapErrors(f func(error) error) *RowIterator {
	it.mapErr = f
	return it
}

func (it *RowIterator) Next(ctx context.Context) ([]any, error) {
	for len(it.buf) == 0 {
		if it.done {
			return nil, io.EOF
		}

		rows, err := it.dec.Next(ctx)
		if err == io.EOF {
			it.finish()
			return nil, err
		}
		if err != nil {
			it.finish()
			return nil, it.mapErr(err)
		}
		it.buf = rows
	}

	row := it.buf[0]
	it.buf = it.buf[1:]
	return it.codec.DecodeRow(row, it.dec.Columns()), nil
}

// Columns reads up to the header if needed. A stream error returned here is
// not repeated by Next.
func (it *RowIterator) Columns(ctx context.Context) ([]wire.Column, error) {
	if it.done {
		return it.dec.Columns(), nil
	}

	err := it.dec.Start(ctx)
	if err != nil {
		it.finish()
		return nil, it.mapErr(err)
	}
	return it.dec.Columns(), nil
}

// Stats are known once Next has returned io.EOF.
func (it *RowIterator) Stats() wire.Stats {
	return it.dec.Stats()
}

// All drains the remaining rows and closes the iterator.
func (it *RowIterator) All(ctx context.Context) ([][]any, error) {
	defer it.Close()

	rows := [][]any{}
	for {
		row, err := it.Next(ctx)
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return rows, err
		}
		rows = append(rows, row)
	}
}

// Close releases the stream. Rows already received are dropped.
func (it *RowIterator) Close() error {
	it.buf = nil
	it.done = true
	return it.dec.Close()
}

func (it *RowIterator) finish() {
	it.done = true
	it.buf = nil
	_ = it.dec.Close()
}

// BatchIterator regroups rows into chunks of a fixed size regardless of
// how the server split them. The last chunk may be shorter.
type BatchIterator struct {
	rows *RowIterator
	size int
	done bool
}

// NewBatchIterator uses DefaultBatchSize when size is not positive.
func NewBatchIterator(rows *RowIterator, size int) *BatchIterator {
	if size <= 0 {
		size = DefaultBatchSize
	}
	return &BatchIterator{rows: rows, size: size}
}

func (it *BatchIterator) Size() int {
	return it.size
}

// Next returns the next chunk or io.EOF. When the stream fails while a chunk
// is being filled, the rows gathered so far are returned with the error, and
// the iterator is exhausted.
func (it *BatchIterator) Next(ctx context.Context) ([][]any, error) {
	if it.done {
		return nil, io.EOF
	}

	chunk := make([][]any, 0, min(it.size, DefaultBatchSize))
	for len(chunk) < it.size {
		row, err := it.rows.Next(ctx)
		if err == io.EOF {
			it.done = true
			break
		}
		if err != nil {
			it.done = true
			return chunk, err
		}
		chunk = append(chunk, row)
	}

	if len(chunk) == 0 {
		return nil, io.EOF
	}
	return chunk, nil
}

func (it *BatchIterator) Columns(ctx context.Context) ([]wire.Column, error) {
	return it.rows.Columns(ctx)
}

func (it *BatchIterator) Stats() wire.Stats {
	return it.rows.Stats()
}

func (it *BatchIterator) Close() error {
	it.done = true
	return it.rows.Close()
}
