package compute

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestSetLogger(t *testing.T) {
	defer SetLogger(nil)

	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	slogger().Debug("compute: probe", "k", 1)
	if !strings.Contains(buf.String(), "compute: probe") {
		t.Errorf("record not routed to installed logger: %q", buf.String())
	}

	SetLogger(nil)
	before := buf.Len()
	slogger().Info("compute: dropped")
	if buf.Len() != before {
		t.Error("nop logger still wrote to previous handler")
	}
	if slogger() == nil {
		t.Fatal("slogger returned nil")
	}
}
