// Package bridge is the only channel into the inspected document: a
// one-way, fallible script-execution boundary over the Chrome DevTools
// Protocol via Rod.
//
// The engine never assumes shared memory with the page. Every read and
// every mutation is a script evaluated in one script turn; between two
// evaluations the page may have navigated away, in which case the
// failure is classified as ErrDocumentGone rather than a crash.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
)

// Executor evaluates a JS function expression in the page and returns
// its JSON-serialisable result. Implemented by Tab; tests substitute a
// scripted stub.
type Executor interface {
	Eval(ctx context.Context, script string) (json.RawMessage, error)
}

// ErrDocumentGone indicates the page navigated away or was closed
// between computing a locator and using it. Callers abandon whatever
// batch was in flight; there is no automatic retry.
var ErrDocumentGone = errors.New("bridge: document gone")

// goneMarkers are CDP error fragments that mean the execution context
// no longer exists.
var goneMarkers = []string{
	"context was destroyed",
	"cannot find context",
	"execution context",
	"target closed",
	"session closed",
	"page closed",
	"target crashed",
	"websocket: close",
	"connection closed",
}

// classify wraps CDP/Rod errors, folding context-loss failures into
// ErrDocumentGone so callers can errors.Is on one sentinel.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range goneMarkers {
		if strings.Contains(msg, marker) {
			return errors.Join(ErrDocumentGone, err)
		}
	}
	return err
}
