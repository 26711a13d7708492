// Package testutil holds helpers shared by the package tests.
package testutil

import (
	"bytes"
	"io"
	"os"
)

// StdoutOutputForFunc runs f and returns everything it wrote to os.Stdout.
func StdoutOutputForFunc(f func()) string {
	return capture(&os.Stdout, f)
}

// StderrOutputForFunc runs f and returns everything it wrote to os.Stderr.
func StderrOutputForFunc(f func()) string {
	return capture(&os.Stderr, f)
}

// capture swaps *target for a pipe while f runs. The pipe is drained concurrently so f never
// blocks on a full pipe buffer.
func capture(target **os.File, f func()) string {
	r, w, err := os.Pipe()
	if err != nil {
		return ""
	}

	done := make(chan string)

	go func() {
		var out bytes.Buffer

		_, _ = io.Copy(&out, r)
		_ = r.Close()

		done <- out.String()
	}()

	old := *target
	*target = w

	defer func() {
		*target = old
	}()

	f()

	_ = w.Close()

	return <-done
}
