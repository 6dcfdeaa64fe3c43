//go:build linux

package queue

import (
	"errors"
	"fmt"
	"testing"

	"github.com/abhinavnagar29/synctext/internal/wire"
)

func testQueueName(t *testing.T) string {
	return fmt.Sprintf("/synctext_test_%x", t.Name())
}

func TestCreateOwnThenSendReceiveRoundTrip(t *testing.T) {
	name := testQueueName(t)
	own, err := CreateOwn(name)
	if err != nil {
		t.Fatalf("CreateOwn: %v", err)
	}
	defer own.Close()
	defer Unlink(name)

	sender, err := OpenSender(name)
	if err != nil {
		t.Fatalf("OpenSender: %v", err)
	}
	defer sender.Close()

	want := wire.OperationRecord{
		Sender:   "alice",
		Line:     3,
		ColStart: 0,
		ColEnd:   0,
		Op:       wire.OpInsert,
		NewText:  "hi",
	}

	if err := sender.Send(want); err != nil {
		t.Fatalf("Send: %v", err)
	}

	got, err := own.Receive(MessageSize)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if got.Line != want.Line || got.ColStart != want.ColStart || got.Op != want.Op || got.Sender != want.Sender || got.NewText != want.NewText {
		t.Fatalf("Receive = %+v, want %+v", got, want)
	}
}

func TestReceiveOnEmptyQueueReturnsErrNoMessage(t *testing.T) {
	name := testQueueName(t)
	own, err := CreateOwn(name)
	if err != nil {
		t.Fatalf("CreateOwn: %v", err)
	}
	defer own.Close()
	defer Unlink(name)

	if _, err := own.Receive(MessageSize); !errors.Is(err, ErrNoMessage) {
		t.Fatalf("Receive on empty queue = %v, want ErrNoMessage", err)
	}
}

func TestOpenSenderOnMissingQueueFails(t *testing.T) {
	if _, err := OpenSender("/synctext_test_does_not_exist"); err == nil {
		t.Fatal("expected OpenSender to fail for a queue that was never created")
	}
}

func TestProbeReflectsQueueLifetime(t *testing.T) {
	name := testQueueName(t)
	if Probe(name) {
		t.Fatal("Probe should be false before the queue exists")
	}

	own, err := CreateOwn(name)
	if err != nil {
		t.Fatalf("CreateOwn: %v", err)
	}
	if !Probe(name) {
		t.Fatal("Probe should be true once the queue exists")
	}

	own.Close()
	Unlink(name)
	if Probe(name) {
		t.Fatal("Probe should be false after Unlink")
	}
}

func TestAttrMsgSizeMatchesMessageSize(t *testing.T) {
	name := testQueueName(t)
	own, err := CreateOwn(name)
	if err != nil {
		t.Fatalf("CreateOwn: %v", err)
	}
	defer own.Close()
	defer Unlink(name)

	if got := own.AttrMsgSize(); got != MessageSize {
		t.Fatalf("AttrMsgSize() = %d, want %d", got, MessageSize)
	}
}
