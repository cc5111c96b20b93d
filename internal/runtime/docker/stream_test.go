package docker

import "testing"

func TestBoundedBufferTruncates(t *testing.T) {
	t.Parallel()

	buf := newBoundedBuffer(5)

	n, err := buf.Write([]byte("abc"))
	if err != nil || n != 3 {
		t.Fatalf("unexpected write result: n=%d err=%v", n, err)
	}
	n, err = buf.Write([]byte("defgh"))
	if err != nil || n != 5 {
		t.Fatalf("unexpected write result: n=%d err=%v", n, err)
	}

	data, truncated := buf.contents()
	if data != "abcde" {
		t.Fatalf("unexpected contents: %q", data)
	}
	if !truncated {
		t.Fatalf("expected truncation flag")
	}

	// Writes past the ceiling are swallowed, never errors.
	if n, err := buf.Write([]byte("more")); err != nil || n != 4 {
		t.Fatalf("unexpected write result after ceiling: n=%d err=%v", n, err)
	}
}

func TestBoundedBufferExactFit(t *testing.T) {
	t.Parallel()

	buf := newBoundedBuffer(4)
	if _, err := buf.Write([]byte("full")); err != nil {
		t.Fatalf("write returned error: %v", err)
	}

	data, truncated := buf.contents()
	if data != "full" {
		t.Fatalf("unexpected contents: %q", data)
	}
	if truncated {
		t.Fatalf("exact fit must not be flagged as truncated")
	}
}
