package domain

import (
	"fmt"
	"time"
)

const (
	ServerPrefix    = "Server message: "
	TimestampLayout = "2006-01-02 15:04:05"
)

// ServerMessage frames a direct reply to a single connection.
func ServerMessage(text string) string {
	return ServerPrefix + text + "\n"
}

// ChatLine frames a room broadcast: "<name>, <timestamp>: <text>".
func ChatLine(from string, at time.Time, text string) string {
	return fmt.Sprintf("%s, %s: %s\n", from, at.Local().Format(TimestampLayout), text)
}
