package runner

import (
	"context"
	"testing"
	"time"

	"reconforge/pkg/models"
)

func TestInvokeRejectsRelativeArgv0(t *testing.T) {
	r := New()
	_, err := r.Invoke(context.Background(), models.ToolInvocation{Argv: []string{"echo", "hi"}})
	if err != models.ErrInvalidInvocation {
		t.Fatalf("expected ErrInvalidInvocation, got %v", err)
	}
}

func TestInvokeCapturesStdoutAndExitCode(t *testing.T) {
	r := New()
	res, err := r.Invoke(context.Background(), models.ToolInvocation{Argv: []string{"/bin/echo", "hello"}})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Succeeded() {
		t.Fatalf("expected success, got %+v", res)
	}
	if string(res.Stdout) != "hello\n" {
		t.Fatalf("Stdout = %q, want %q", res.Stdout, "hello\n")
	}
}

func TestInvokeReportsNonZeroExit(t *testing.T) {
	r := New()
	res, err := r.Invoke(context.Background(), models.ToolInvocation{Argv: []string{"/bin/sh", "-c", "exit 3"}})
	if err != nil {
		t.Fatal(err)
	}
	if res.Succeeded() {
		t.Fatal("expected failure result")
	}
	if res.ExitCode != 3 {
		t.Fatalf("ExitCode = %d, want 3", res.ExitCode)
	}
}

func TestInvokeEnforcesDeadline(t *testing.T) {
	r := New()
	res, err := r.Invoke(context.Background(), models.ToolInvocation{
		Argv:     []string{"/bin/sleep", "5"},
		Deadline: time.Now().Add(100 * time.Millisecond),
	})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Timeout {
		t.Fatalf("expected Timeout, got %+v", res)
	}
}

func TestBoundedBufferTruncates(t *testing.T) {
	var b boundedBuffer
	b.limit = 4
	b.Write([]byte("hello world"))
	if !b.truncated {
		t.Fatal("expected truncated = true")
	}
	if b.buf.Len() != 4 {
		t.Fatalf("buf.Len() = %d, want 4", b.buf.Len())
	}
}
