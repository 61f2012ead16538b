// SPDX-License-Identifier: MIT
package utils

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"
)

func TestMockConn(t *testing.T) {
	tests := []struct {
		name      string
		inputData []byte
	}{
		{"Empty Frame", []byte{}},
		{"Single Byte", []byte("x")},
		{"JSON Frame", []byte(`{"type":"log","data":{}}`)},
		{"Large Frame", make([]byte, 1024)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mc := NewMockConn()

			if err := mc.WriteMessage(tt.inputData); err != nil {
				t.Errorf("MockConn.WriteMessage() error = %v", err)
			}

			frames := mc.Frames()
			if len(frames) != 1 || len(frames[0]) != len(tt.inputData) {
				t.Fatalf("MockConn.WriteMessage() stored %d frames, want 1 of length %d",
					len(frames), len(tt.inputData))
			}

			if len(tt.inputData) > 0 {
				original := tt.inputData[0]
				tt.inputData[0] = '!'

				if frames[0][0] == '!' {
					t.Errorf("MockConn.WriteMessage() stored reference instead of copy")
				}

				tt.inputData[0] = original
			}
		})
	}
}

func TestMockConnClose(t *testing.T) {
	mc := NewMockConn()
	mc.Deliver([]byte("queued"))

	raw, err := mc.ReadMessage()
	if err != nil || string(raw) != "queued" {
		t.Fatalf("ReadMessage() = %q, %v; want queued, nil", raw, err)
	}

	mc.Close()
	mc.Close()
	if !mc.Closed() {
		t.Error("Closed() = false after Close")
	}
	if _, err := mc.ReadMessage(); !errors.Is(err, io.EOF) {
		t.Errorf("ReadMessage() after Close error = %v, want io.EOF", err)
	}
	if err := mc.WriteMessage([]byte("late")); err == nil {
		t.Error("WriteMessage() after Close succeeded")
	}
}

func TestMockDialerGate(t *testing.T) {
	gate := make(chan struct{})
	d := &MockDialer{Conn: NewMockConn(), Gate: gate}

	done := make(chan error, 1)
	go func() {
		_, err := d.Dial(context.Background(), "ws://example")
		done <- err
	}()

	select {
	case <-done:
		t.Fatal("Dial returned before the gate opened")
	case <-time.After(20 * time.Millisecond):
	}

	close(gate)
	if err := <-done; err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	if d.Calls() != 1 || d.URL() != "ws://example" {
		t.Errorf("Calls() = %d, URL() = %q", d.Calls(), d.URL())
	}
}
