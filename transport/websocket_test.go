package transport

import (
	"errors"
	"testing"
)

func TestToWSURL(t *testing.T) {
	cases := map[string]string{
		"http://example.test/path":  "ws://example.test/path",
		"https://example.test/path": "wss://example.test/path",
		"ws://example.test/path":    "ws://example.test/path",
	}
	for in, want := range cases {
		got, err := toWSURL(in)
		if err != nil {
			t.Fatalf("toWSURL(%q) returned error: %v", in, err)
		}
		if got != want {
			t.Errorf("toWSURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIsNormalClose(t *testing.T) {
	other := errors.New("some unrelated read error")
	if isNormalClose(other) {
		t.Error("unrelated error must not be treated as a normal close")
	}
}
