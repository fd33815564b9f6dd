package wire

import (
	"io"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/nikmy/sqlrelay/pkg/errors"
)

// ContentType is the media type of BSON encoded messages and frame streams.
const ContentType = "application/bson"

type envelope struct {
	Kind     FrameKind      `bson:"kind"`
	Header   *HeaderFrame   `bson:"header,omitempty"`
	Batch    *BatchFrame    `bson:"batch,omitempty"`
	Complete *CompleteFrame `bson:"complete,omitempty"`
	Error    *ErrorFrame    `bson:"error,omitempty"`
}

// Marshal encodes one message as a BSON document.
func Marshal(msg any) ([]byte, error) {
	data, err := bson.Marshal(msg)
	return data, errors.WrapFail(err, "marshal bson message")
}

func Unmarshal(data []byte, msg any) error {
	return errors.WrapFail(bson.Unmarshal(data, msg), "unmarshal bson message")
}

// WriteFrame appends one frame to a stream. Frames are self-delimiting BSON
// documents, so a stream is their plain concatenation.
func WriteFrame(w io.Writer, f Frame) error {
	var env envelope
	switch f := f.(type) {
	case HeaderFrame:
		env = envelope{Kind: FrameHeader, Header: &f}
	case BatchFrame:
		env = envelope{Kind: FrameBatch, Batch: &f}
	case CompleteFrame:
		env = envelope{Kind: FrameComplete, Complete: &f}
	case ErrorFrame:
		env = envelope{Kind: FrameError, Error: &f}
	default:
		return errors.Errorf("unknown frame type %T", f)
	}

	data, err := bson.Marshal(env)
	if err != nil {
		return errors.WrapFailf(err, "marshal %s frame", env.Kind)
	}

	_, err = w.Write(data)
	return errors.WrapFail(err, "write frame")
}

// ReadFrame reads the next frame of a stream. It returns io.EOF, unwrapped,
// when the stream ends on a frame boundary.
func ReadFrame(r io.Reader) (Frame, error) {
	doc, err := bson.ReadDocument(r)
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, errors.WrapFail(err, "read frame")
	}

	var env envelope
	err = bson.Unmarshal(doc, &env)
	if err != nil {
		return nil, errors.WrapFail(err, "unmarshal frame")
	}

	switch {
	case env.Kind == FrameHeader && env.Header != nil:
		return *env.Header, nil
	case env.Kind == FrameBatch && env.Batch != nil:
		return *env.Batch, nil
	case env.Kind == FrameComplete && env.Complete != nil:
		return *env.Complete, nil
	case env.Kind == FrameError && env.Error != nil:
		return *env.Error, nil
	default:
		return nil, errors.Errorf("malformed frame of kind %s", env.Kind)
	}
}
