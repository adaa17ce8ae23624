package engine

import (
	_ "embed"
	"encoding/json"
	"fmt"
)

//go:embed picker.js
var pickerJS string

// bindingName is the JS → Go channel for picker gestures.
const bindingName = "__pagecraft_emit"

// pickEvent is what picker.js sends through the binding.
type pickEvent struct {
	Kind    string `json:"kind"` // hover | select
	Locator string `json:"locator"`
}

// scriptPage is a Page that can also expose bindings; the real bridge
// tab does, test stubs usually do not.
type scriptPage interface {
	Expose(name string, fn func(payload json.RawMessage)) (stop func() error, err error)
}

// installPicker exposes the gesture binding and injects picker.js. The
// engine receives hover and select events from then on; a page that
// cannot expose bindings (non-interactive use) is left alone.
func (e *Engine) installPicker(p Page) error {
	sp, ok := p.(scriptPage)
	if !ok {
		return nil
	}
	stop, err := sp.Expose(bindingName, e.onPickEvent)
	if err != nil {
		return fmt.Errorf("engine: install picker: %w", err)
	}
	e.stopPicker = stop
	return nil
}

func (e *Engine) onPickEvent(payload json.RawMessage) {
	var ev pickEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		e.logger.Warn("engine: bad pick event", "error", err)
		return
	}
	e.handlePick(ev.Kind, ev.Locator)
}
