package utils

import (
	"bytes"
	"testing"
)

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := PrintJSON(&buf, map[string]string{"username": "alice"}); err != nil {
		t.Fatalf("PrintJSON: %v", err)
	}

	want := "{\n\t\"username\": \"alice\"\n}\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestPrintJSON_Unsupported(t *testing.T) {
	var buf bytes.Buffer
	if err := PrintJSON(&buf, make(chan int)); err == nil {
		t.Error("expected an error for a channel")
	}
}
