package domain

import (
	"testing"
	"time"
)

func TestServerMessage(t *testing.T) {
	if got := ServerMessage("Enter your name"); got != "Server message: Enter your name\n" {
		t.Fatalf("unexpected framing: %q", got)
	}
}

func TestChatLine(t *testing.T) {
	at := time.Date(2024, 3, 9, 7, 5, 1, 0, time.Local)
	want := "Alice, 2024-03-09 07:05:01: hello\n"
	if got := ChatLine("Alice", at, "hello"); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
