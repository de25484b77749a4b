package amqp

import (
	"context"
	"errors"
	"testing"
	"time"

	"getricher/internal/core"

	"github.com/rabbitmq/amqp091-go"
)

type fakeAcknowledger struct {
	acks    int
	nacks   int
	requeue []bool
}

func (f *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	f.acks++
	return nil
}

func (f *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	f.nacks++
	f.requeue = append(f.requeue, requeue)
	return nil
}

func (f *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return f.Nack(tag, false, requeue)
}

func delivery(t *testing.T, ack amqp091.Acknowledger, msg *RefreshRequestMessage, redelivered bool) amqp091.Delivery {
	t.Helper()
	body, err := msg.ToJSON()
	if err != nil {
		t.Fatal(err)
	}
	return amqp091.Delivery{Acknowledger: ack, Body: body, Redelivered: redelivered}
}

func TestHandleDelivery(t *testing.T) {
	msg := NewFilterRefreshMessage(nil, core.FilterMonth)
	failing := func(context.Context, *RefreshRequestMessage) error { return errors.New("boom") }

	tests := []struct {
		name        string
		body        []byte
		redelivered bool
		handler     RefreshHandler
		wantAcks    int
		wantRequeue []bool
	}{
		{
			name:     "success acks",
			handler:  func(context.Context, *RefreshRequestMessage) error { return nil },
			wantAcks: 1,
		},
		{
			name:        "first failure requeues",
			handler:     failing,
			wantRequeue: []bool{true},
		},
		{
			name:        "redelivered failure is dropped",
			redelivered: true,
			handler:     failing,
			wantRequeue: []bool{false},
		},
		{
			name:        "malformed body is dropped",
			body:        []byte("{not json"),
			handler:     failing,
			wantRequeue: []bool{false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ack := &fakeAcknowledger{}
			d := delivery(t, ack, msg, tt.redelivered)
			if tt.body != nil {
				d.Body = tt.body
			}

			handleDelivery(context.Background(), d, tt.handler)

			if ack.acks != tt.wantAcks {
				t.Errorf("acks = %d, want %d", ack.acks, tt.wantAcks)
			}
			if len(ack.requeue) != len(tt.wantRequeue) {
				t.Fatalf("nacks = %v, want %v", ack.requeue, tt.wantRequeue)
			}
			for i := range tt.wantRequeue {
				if ack.requeue[i] != tt.wantRequeue[i] {
					t.Errorf("requeue[%d] = %v, want %v", i, ack.requeue[i], tt.wantRequeue[i])
				}
			}
		})
	}
}

func TestHandleDeliveryPassesDecodedMessage(t *testing.T) {
	id := int64(42)
	q := core.TransactionQuery{
		AccountID: &id,
		Start:     time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		End:       time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
	}
	sent := NewRefreshRequestMessage(q)

	var got *RefreshRequestMessage
	handleDelivery(context.Background(), delivery(t, &fakeAcknowledger{}, sent, false), func(_ context.Context, m *RefreshRequestMessage) error {
		got = m
		return nil
	})

	if got == nil || got.RequestID != sent.RequestID {
		t.Fatalf("handler did not receive the message: %+v", got)
	}
	resolved, err := got.Query(time.Now())
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if resolved.Key() != q.Key() {
		t.Fatalf("Query() = %s, want %s", resolved.Key(), q.Key())
	}
}

func TestRefreshRequestQuery(t *testing.T) {
	now := time.Date(2025, 3, 19, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		msg       RefreshRequestMessage
		wantStart string
		wantErr   error
	}{
		{name: "filter", msg: RefreshRequestMessage{Filter: "Month"}, wantStart: "2025-03-01"},
		{name: "filter wins over dates", msg: RefreshRequestMessage{Filter: "year", StartDate: "2025-02-01", EndDate: "2025-02-02"}, wantStart: "2025-01-01"},
		{name: "explicit dates", msg: RefreshRequestMessage{StartDate: "2025-02-01", EndDate: "2025-02-28"}, wantStart: "2025-02-01"},
		{name: "unknown filter", msg: RefreshRequestMessage{Filter: "decade"}, wantErr: core.ErrUnknownFilter},
		{name: "no range", msg: RefreshRequestMessage{}, wantErr: ErrMissingRange},
		{name: "bad date", msg: RefreshRequestMessage{StartDate: "02/01/2025", EndDate: "2025-02-28"}, wantErr: core.ErrInvalidDate},
		{name: "inverted range", msg: RefreshRequestMessage{StartDate: "2025-03-01", EndDate: "2025-02-28"}, wantErr: core.ErrInvalidDateRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := tt.msg.Query(now)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Query() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Query() error = %v", err)
			}
			if got := q.Start.Format(core.DateLayout); got != tt.wantStart {
				t.Errorf("start = %s, want %s", got, tt.wantStart)
			}
		})
	}
}
