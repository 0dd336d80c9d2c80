package delta

import (
	"bytes"
	"testing"
)

func TestEncodeApplyRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		base   string
		target string
	}{
		{name: "identical payloads", base: "hello world", target: "hello world"},
		{name: "middle edit", base: "hello cruel world", target: "hello kind world"},
		{name: "append only", base: "line one\n", target: "line one\nline two\n"},
		{name: "prepend only", base: "tail", target: "head tail"},
		{name: "truncate to empty", base: "something", target: ""},
		{name: "grow from empty", base: "", target: "something"},
		{name: "both empty", base: "", target: ""},
		{name: "full rewrite", base: "aaaa", target: "bbbb"},
		{name: "binary content", base: "\x00\x01\x02\x03", target: "\x00\xff\x02\x03"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Encode([]byte(tt.base), []byte(tt.target))
			got, err := Apply([]byte(tt.base), d)
			if err != nil {
				t.Fatalf("Apply() error = %v", err)
			}
			if !bytes.Equal(got, []byte(tt.target)) {
				t.Errorf("Apply() = %q, want %q", got, tt.target)
			}
		})
	}
}

func TestEncodeIsCompact(t *testing.T) {
	base := []byte("a long shared prefix CHANGED a long shared suffix")
	target := []byte("a long shared prefix EDITED a long shared suffix")

	d := Encode(base, target)
	if len(d) >= len(target) {
		t.Errorf("delta length = %d, want smaller than target length %d", len(d), len(target))
	}
}

func TestApplyRejectsBadDeltas(t *testing.T) {
	tests := []struct {
		name  string
		base  []byte
		delta []byte
	}{
		{name: "truncated header", base: []byte("abc"), delta: []byte{0, 0, 0}},
		{name: "prefix beyond base", base: []byte("ab"), delta: []byte{0, 0, 0, 9, 0, 0, 0, 0}},
		{name: "overlap beyond base", base: []byte("abcd"), delta: []byte{0, 0, 0, 3, 0, 0, 0, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Apply(tt.base, tt.delta); err == nil {
				t.Error("Apply() error = nil, want error")
			}
		})
	}
}
