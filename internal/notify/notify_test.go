package notify

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"
)

func testMailer(maxTries int, send sendFunc) *Mailer {
	m := NewMailer("localhost:25", "pors@example.org", maxTries)
	m.send = send
	return m
}

func TestSend_Success(t *testing.T) {
	var gotTo []string
	var gotMsg []byte
	m := testMailer(3, func(addr, from string, to []string, msg []byte) error {
		if addr != "localhost:25" || from != "pors@example.org" {
			t.Errorf("relay args: addr=%s from=%s", addr, from)
		}
		gotTo = to
		gotMsg = msg
		return nil
	})

	err := m.Send(context.Background(), []string{"a@example.org", "b@example.org"},
		"REMINDER_LNC", "یادآوری سفارش ناهار", "مهلت ثبت سفارش رو به پایان است")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(gotTo) != 2 {
		t.Errorf("recipients: got %v", gotTo)
	}
	if !bytes.Contains(gotMsg, []byte("X-Pors-Reason: REMINDER_LNC")) {
		t.Error("message missing reason header")
	}
	if !bytes.Contains(gotMsg, []byte("charset=utf-8")) {
		t.Error("message missing charset declaration")
	}
	if bytes.Contains(gotMsg, []byte("Subject: یادآوری")) {
		t.Error("subject should be Q-encoded, not raw UTF-8")
	}
}

func TestSend_RetriesThenSucceeds(t *testing.T) {
	retryDelay = time.Millisecond
	attempts := 0
	m := testMailer(3, func(addr, from string, to []string, msg []byte) error {
		attempts++
		if attempts < 3 {
			return errors.New("relay busy")
		}
		return nil
	})

	err := m.Send(context.Background(), []string{"a@example.org"}, "REMINDER_BRF", "s", "b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts: got %d, want 3", attempts)
	}
}

func TestSend_ExhaustsRetries(t *testing.T) {
	retryDelay = time.Millisecond
	relayErr := errors.New("relay down")
	attempts := 0
	m := testMailer(2, func(addr, from string, to []string, msg []byte) error {
		attempts++
		return relayErr
	})

	err := m.Send(context.Background(), []string{"a@example.org"}, "DEADLINE_CHANGED", "s", "b")
	if !errors.Is(err, relayErr) {
		t.Fatalf("expected relay error, got %v", err)
	}
	if attempts != 2 {
		t.Errorf("attempts: got %d, want 2", attempts)
	}
}

func TestSend_NoRecipients(t *testing.T) {
	m := testMailer(3, func(addr, from string, to []string, msg []byte) error {
		t.Fatal("send must not be called with no recipients")
		return nil
	})

	if err := m.Send(context.Background(), nil, "REMINDER_ALL", "s", "b"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSend_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := testMailer(3, func(addr, from string, to []string, msg []byte) error {
		t.Fatal("send must not be called after cancellation")
		return nil
	})

	if err := m.Send(ctx, []string{"a@example.org"}, "REMINDER_LNC", "s", "b"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
