package progress

import (
	"bytes"
	"testing"
	"time"
)

func TestSetTaskAndIncProgress(t *testing.T) {
	p := New()
	p.SetTask("render", 4)
	p.IncProgress()
	p.IncProgress()
	task, pct := p.GetStatus()
	if task != "render" {
		t.Fatalf("task = %q, want render", task)
	}
	if pct != 50 {
		t.Fatalf("percent = %v, want 50", pct)
	}
}

func TestGetStatusZeroMaxReportsZeroPercent(t *testing.T) {
	p := New()
	p.SetTask("scan", 0)
	p.IncProgress()
	_, pct := p.GetStatus()
	if pct != 0 {
		t.Fatalf("percent = %v, want 0 for unknown-max task", pct)
	}
}

func TestPushPopRestoresParentTask(t *testing.T) {
	p := New()
	p.SetTask("outer", 10)
	p.SetProgress(3)
	p.Push()
	p.SetTask("inner", 2)
	p.IncProgress()
	inner, _ := p.GetStatus()
	if inner != "inner" {
		t.Fatalf("task = %q, want inner", inner)
	}
	p.Pop()
	outer, pct := p.GetStatus()
	if outer != "outer" {
		t.Fatalf("task = %q, want outer", outer)
	}
	if pct != 30 {
		t.Fatalf("percent = %v, want 30", pct)
	}
}

func TestCancelRequestedLatchesCancelled(t *testing.T) {
	p := New()
	if p.CancelRequested() {
		t.Fatal("CancelRequested true before Cancel called")
	}
	p.Cancel()
	if !p.CancelRequested() {
		t.Fatal("CancelRequested false after Cancel called")
	}
	if !p.Cancelled() {
		t.Fatal("Cancelled should latch true")
	}
}

func TestFileReporterDisplaysTaskName(t *testing.T) {
	var buf bytes.Buffer
	r := NewFileReporter(&buf, 5*time.Millisecond)
	r.SetTask("deconvolve", 100)
	r.SetProgress(50)
	time.Sleep(30 * time.Millisecond)
	r.Close()
	if !bytes.Contains(buf.Bytes(), []byte("deconvolve")) {
		t.Fatalf("expected output to contain task name, got %q", buf.String())
	}
}
