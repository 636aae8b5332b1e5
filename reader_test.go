package compute

import (
	"strings"
	"testing"
)

func TestFormatResultsShort(t *testing.T) {
	values := []float32{0, 3, 6, 9}
	var sb strings.Builder
	if err := FormatResults(&sb, values); err != nil {
		t.Fatalf("FormatResults: %v", err)
	}
	want := "C[0] = 0\nC[1] = 3\nC[2] = 6\nC[3] = 9\n"
	if sb.String() != want {
		t.Errorf("output = %q, want %q", sb.String(), want)
	}
}

func TestFormatResultsWindow(t *testing.T) {
	tests := []struct {
		name         string
		n            int
		wantLines    int
		wantEllipsis bool
	}{
		{"empty", 0, 0, false},
		{"below window", 5, 5, false},
		{"at boundary", 20, 20, false},
		{"just above boundary", 21, 21, true},
		{"large", 1000, 21, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := make([]float32, tt.n)
			for i := range values {
				values[i] = 3 * float32(i)
			}
			var sb strings.Builder
			if err := FormatResults(&sb, values); err != nil {
				t.Fatalf("FormatResults: %v", err)
			}
			out := sb.String()
			lines := 0
			if out != "" {
				lines = strings.Count(out, "\n")
			}
			if lines != tt.wantLines {
				t.Errorf("got %d lines, want %d", lines, tt.wantLines)
			}
			if got := strings.Contains(out, "...\n"); got != tt.wantEllipsis {
				t.Errorf("ellipsis present = %v, want %v", got, tt.wantEllipsis)
			}
		})
	}
}

func TestFormatResultsTail(t *testing.T) {
	values := make([]float32, 100)
	for i := range values {
		values[i] = float32(i)
	}
	var sb strings.Builder
	if err := FormatResults(&sb, values); err != nil {
		t.Fatalf("FormatResults: %v", err)
	}
	out := sb.String()
	if !strings.Contains(out, "C[9] = 9\n") {
		t.Error("head window missing C[9]")
	}
	if strings.Contains(out, "C[10] = ") {
		t.Error("C[10] should be elided")
	}
	if !strings.Contains(out, "C[90] = 90\n") {
		t.Error("tail window missing C[90]")
	}
	if !strings.HasSuffix(out, "C[99] = 99\n") {
		t.Errorf("output does not end with last element: %q", out[len(out)-40:])
	}
}
