package txn

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nikmy/sqlrelay/pkg/wire"
)

func TestStatement_normalize(t *testing.T) {
	type testcase struct {
		name    string
		stmt    Statement
		want    wire.Parameters
		wantErr error
	}

	tests := [...]testcase{
		{
			name: "no parameters",
			stmt: Stmt("SELECT 1"),
			want: wire.Parameters{},
		},
		{
			name: "positional",
			stmt: Stmt("SELECT ?, ?, ?", Args(1, nil, []byte{1})),
			want: wire.Parameters{Positional: []wire.Cell{wire.Integer(1), wire.Null(), wire.Blob([]byte{1})}},
		},
		{
			name: "named args split from positional",
			stmt: Stmt("SELECT ?, :a", Args("x", Named("a", 2.5))),
			want: wire.Parameters{
				Positional: []wire.Cell{wire.Text("x")},
				Named:      map[string]wire.Cell{"a": wire.Real(2.5)},
			},
		},
		{
			name: "later named value wins",
			stmt: Stmt("SELECT :a", NamedArgs(map[string]any{"a": 1}), Args(Named("a", 2))),
			want: wire.Parameters{Named: map[string]wire.Cell{"a": wire.Integer(2)}},
		},
		{
			name: "prefix is stripped",
			stmt: Stmt("SELECT @a, $b", NamedArgs(map[string]any{"@a": "x", "$b": "y"})),
			want: wire.Parameters{Named: map[string]wire.Cell{"a": wire.Text("x"), "b": wire.Text("y")}},
		},
		{
			name:    "empty sql",
			stmt:    Stmt("  \n"),
			wantErr: ErrEmptyStatement,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := tt.stmt.normalize(txID)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			require.Equal(t, txID, req.TransactionID)
			require.Equal(t, tt.stmt.SQL, req.SQL)
			require.Equal(t, tt.want, req.Parameters)
		})
	}
}

func TestStatement_normalizeErrors(t *testing.T) {
	_, err := Stmt("SELECT ?", Args(make(chan int))).normalize(txID)
	require.Error(t, err)

	_, err = Stmt("SELECT :", Args(Named(":", 1))).normalize(txID)
	require.Error(t, err)

	_, err = Stmt("SELECT :x", NamedArgs(map[string]any{":x": 1, "@x": 2})).normalize(txID)
	require.ErrorContains(t, err, `parameter "x" is bound more than once`)
}

func TestStatement_options(t *testing.T) {
	hints := Hints{BatchRows: 10, Label: "report"}
	s := Stmt("SELECT 1", BatchSize(3), WithHints(hints))

	require.Equal(t, 3, s.BatchSize)
	require.Equal(t, hints, s.Hints)

	req, err := s.normalize(txID)
	require.NoError(t, err)
	require.Equal(t, hints, req.Hints)
}
