package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaPublisher_KeyAndPayload(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w, topic: "patient-status", logger: zerolog.Nop()}
	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	err := p.Publish(context.Background(), StatusChanged{PatientID: "PT003", From: "Registered", To: "Waiting", At: at})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(w.msgs))
	}
	msg := w.msgs[0]
	if string(msg.Key) != "PT003" {
		t.Errorf("expected key PT003, got %s", msg.Key)
	}
	var got StatusChanged
	if err := json.Unmarshal(msg.Value, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.To != "Waiting" || !got.At.Equal(at) {
		t.Errorf("unexpected payload %+v", got)
	}

	if err := p.Close(); err != nil || !w.closed {
		t.Error("expected writer to be closed")
	}
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	p := &KafkaPublisher{writer: &fakeWriter{err: errors.New("broker down")}, logger: zerolog.Nop()}
	if err := p.Publish(context.Background(), StatusChanged{PatientID: "PT001"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestNew_WithoutBrokersIsNop(t *testing.T) {
	if _, ok := New(nil, "patient-status", zerolog.Nop()).(NopPublisher); !ok {
		t.Error("expected NopPublisher without brokers")
	}
	p := New([]string{"localhost:9092"}, "patient-status", zerolog.Nop())
	if _, ok := p.(*KafkaPublisher); !ok {
		t.Errorf("expected KafkaPublisher, got %T", p)
	}
	_ = p.Close()
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	_ = r.Publish(context.Background(), StatusChanged{PatientID: "PT001", To: "Waiting"})
	got := r.Events()
	if len(got) != 1 || got[0].PatientID != "PT001" {
		t.Errorf("unexpected events %+v", got)
	}
	r.Err = errors.New("fail")
	if err := r.Publish(context.Background(), StatusChanged{}); err == nil {
		t.Error("expected recorder error")
	}
}
