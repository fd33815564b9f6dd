package wire

import "time"

type FrameKind int32

const (
	FrameHeader FrameKind = iota + 1
	FrameBatch
	FrameComplete
	FrameError
)

func (k FrameKind) String() string {
	switch k {
	case FrameHeader:
		return "header"
	case FrameBatch:
		return "batch"
	case FrameComplete:
		return "complete"
	case FrameError:
		return "error"
	default:
		return "unknown"
	}
}

// Terminal reports whether no frame may follow a frame of this kind.
func (k FrameKind) Terminal() bool {
	return k == FrameComplete || k == FrameError
}

// Frame is one message of a streamed query response. It is one of
// HeaderFrame, BatchFrame, CompleteFrame or ErrorFrame.
type Frame interface {
	Kind() FrameKind
	isFrame()
}

type HeaderFrame struct {
	Columns []Column `bson:"columns"`
}

type BatchFrame struct {
	Rows []Row `bson:"rows"`
}

type CompleteFrame struct {
	Stats Stats `bson:"stats"`
}

type ErrorFrame struct {
	Message string `bson:"message"`
	SQL     string `bson:"sql,omitempty"`
	Code    string `bson:"code,omitempty"`
}

func (HeaderFrame) Kind() FrameKind   { return FrameHeader }
func (BatchFrame) Kind() FrameKind    { return FrameBatch }
func (CompleteFrame) Kind() FrameKind { return FrameComplete }
func (ErrorFrame) Kind() FrameKind    { return FrameError }

func (HeaderFrame) isFrame()   {}
func (BatchFrame) isFrame()    {}
func (CompleteFrame) isFrame() {}
func (ErrorFrame) isFrame()    {}

type Stats struct {
	RowsRead     int64         `bson:"rows_read"`
	RowsAffected int64         `bson:"rows_affected"`
	LastInsertID int64         `bson:"last_insert_id"`
	Duration     time.Duration `bson:"duration"`
}
