package txn

import (
	"strings"

	"github.com/nikmy/sqlrelay/pkg/codec"
	"github.com/nikmy/sqlrelay/pkg/errors"
	"github.com/nikmy/sqlrelay/pkg/wire"
)

var ErrEmptyStatement = errors.Error("empty statement")

type Hints = wire.Hints

// NamedArg binds a value to a :name, @name or $name parameter.
type NamedArg struct {
	Name  string
	Value any
}

func Named(name string, value any) NamedArg {
	return NamedArg{Name: name, Value: value}
}

// Statement is one SQL statement with its parameters.
type Statement struct {
	SQL        string
	Positional []any
	Named      map[string]any
	Hints      Hints

	// BatchSize is the chunk size of QueryStream; not positive means default.
	BatchSize int
}

type StmtOption func(*Statement)

func Stmt(sql string, opts ...StmtOption) Statement {
	s := Statement{SQL: sql}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Args appends positional parameters. NamedArg values go to the named set.
func Args(args ...any) StmtOption {
	return func(s *Statement) {
		for _, arg := range args {
			if named, ok := arg.(NamedArg); ok {
				s.setNamed(named.Name, named.Value)
				continue
			}
			s.Positional = append(s.Positional, arg)
		}
	}
}

// NamedArgs merges named parameters; the latest value of a name wins.
func NamedArgs(args map[string]any) StmtOption {
	return func(s *Statement) {
		for name, v := range args {
			s.setNamed(name, v)
		}
	}
}

func BatchSize(n int) StmtOption {
	return func(s *Statement) {
		s.BatchSize = n
	}
}

func WithHints(h Hints) StmtOption {
	return func(s *Statement) {
		s.Hints = h
	}
}

func (s *Statement) setNamed(name string, v any) {
	if s.Named == nil {
		s.Named = make(map[string]any)
	}
	s.Named[name] = v
}

// normalize validates the statement and encodes its parameters.
func (s Statement) normalize(txID string) (wire.QueryRequest, error) {
	if strings.TrimSpace(s.SQL) == "" {
		return wire.QueryRequest{}, ErrEmptyStatement
	}

	req := wire.QueryRequest{
		TransactionID: txID,
		SQL:           s.SQL,
		Hints:         s.Hints,
	}

	if len(s.Positional) > 0 {
		req.Parameters.Positional = make([]wire.Cell, 0, len(s.Positional))
	}
	for i, v := range s.Positional {
		cell, err := codec.Encode(v)
		if err != nil {
			return wire.QueryRequest{}, errors.WrapFailf(err, "encode parameter %d", i+1)
		}
		req.Parameters.Positional = append(req.Parameters.Positional, cell)
	}

	if len(s.Named) > 0 {
		req.Parameters.Named = make(map[string]wire.Cell, len(s.Named))
	}
	for name, v := range s.Named {
		key := strings.TrimLeft(name, ":@$")
		if key == "" {
			return wire.QueryRequest{}, errors.Errorf("parameter name %q is empty", name)
		}
		if _, dup := req.Parameters.Named[key]; dup {
			return wire.QueryRequest{}, errors.Errorf("parameter %q is bound more than once", key)
		}

		cell, err := codec.Encode(v)
		if err != nil {
			return wire.QueryRequest{}, errors.WrapFailf(err, "encode parameter %q", name)
		}
		req.Parameters.Named[key] = cell
	}

	return req, nil
}
