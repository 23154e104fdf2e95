package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

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

func (f *fakeWriter) Close() error { f.closed = true; return nil }

func TestNew_NoBrokersIsNoop(t *testing.T) {
	p := New(Config{}, nil)
	if _, ok := p.(Noop); !ok {
		t.Fatalf("New without brokers = %T, want Noop", p)
	}
	if err := p.Publish(context.Background(), "2025-06-05", map[string]int{"a": 1}, nil); err != nil {
		t.Fatal(err)
	}
}

func TestKafka_Publish(t *testing.T) {
	// WHAT: one JSON message keyed by date, with caller headers.
	// WHY: consumers partition by date and replay the latest result.
	w := &fakeWriter{}
	k := newKafka(w, Config{}, nil)
	event := struct {
		Date          string `json:"date"`
		TotalArticles int    `json:"total_articles"`
	}{"2025-06-05", 12}

	if err := k.Publish(context.Background(), "2025-06-05", event, map[string]string{"run_id": "run_1"}); err != nil {
		t.Fatal(err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("messages = %d", len(w.msgs))
	}
	m := w.msgs[0]
	if string(m.Key) != "2025-06-05" {
		t.Errorf("key = %q", m.Key)
	}
	var got map[string]any
	if err := json.Unmarshal(m.Value, &got); err != nil || got["total_articles"].(float64) != 12 {
		t.Errorf("value = %s (%v)", m.Value, err)
	}
	hdr := map[string]string{}
	for _, h := range m.Headers {
		hdr[h.Key] = string(h.Value)
	}
	if hdr["run_id"] != "run_1" || hdr["content-type"] != "application/json" {
		t.Errorf("headers = %v", hdr)
	}
	if k.topic != "sintesis.extractions" {
		t.Errorf("default topic = %q", k.topic)
	}

	k.Close()
	if !w.closed {
		t.Error("writer not closed")
	}
}

func TestKafka_PublishError(t *testing.T) {
	k := newKafka(&fakeWriter{err: errors.New("broker down")}, Config{Topic: "t"}, nil)
	if err := k.Publish(context.Background(), "d", 1, nil); err == nil {
		t.Fatal("want error")
	}
	if err := k.Publish(context.Background(), "d", make(chan int), nil); err == nil {
		t.Fatal("unmarshalable event should fail")
	}
}
