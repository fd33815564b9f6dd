package pubsub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/nikmy/sqlrelay/pkg/logger"
)

func TestToMessages(t *testing.T) {
	at := time.Date(2024, 3, 9, 10, 11, 12, 0, time.UTC)
	events := []Event{
		{Kind: EventBegin, TransactionID: "tx-1", Database: "main", At: at, ExpiresAt: at.Add(time.Minute)},
		{Kind: EventExpire, TransactionID: "tx-1", Database: "main", At: at.Add(time.Minute)},
	}

	msgs, err := toMessages(events)
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	for i, msg := range msgs {
		require.Equal(t, []byte("tx-1"), msg.Key)
		require.Equal(t, events[i].At, msg.Time)
		require.Equal(t, "kind", msg.Headers[0].Key)
		require.Equal(t, []byte(events[i].Kind), msg.Headers[0].Value)

		var got Event
		require.NoError(t, bson.UnmarshalExtJSON(msg.Value, false, &got))
		require.Equal(t, events[i].Kind, got.Kind)
		require.Equal(t, events[i].TransactionID, got.TransactionID)
		require.True(t, events[i].At.Equal(got.At))
	}
}

func TestNewKafkaProducer(t *testing.T) {
	type testcase struct {
		name    string
		cfg     Config
		wantErr bool
	}

	tests := [...]testcase{
		{name: "disabled", cfg: Config{Topic: "tx"}, wantErr: true},
		{name: "no topic", cfg: Config{Brokers: []string{"localhost:9092"}}, wantErr: true},
		{name: "ok", cfg: Config{Brokers: []string{"localhost:9092"}, Topic: "tx"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewKafkaProducer(tt.cfg, logger.NewStub())
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NoError(t, p.Close())
		})
	}
}

func TestNop(t *testing.T) {
	p := Nop()
	require.NoError(t, p.Publish(context.Background(), Event{Kind: EventCommit}))
	require.NoError(t, p.Close())
}
