package redact

import (
	"errors"
	"sync/atomic"
)

// Holder publishes the current Redactor to concurrent readers and lets a
// config reload swap in a new one. Requests already running keep the
// Redactor they loaded.
type Holder struct {
	current atomic.Pointer[Redactor]
}

// NewHolder returns a Holder serving r.
func NewHolder(r *Redactor) *Holder {
	h := &Holder{}
	h.current.Store(r)
	return h
}

// Load returns the current Redactor.
func (h *Holder) Load() *Redactor { return h.current.Load() }

// Store replaces the current Redactor. A nil r is ignored.
func (h *Holder) Store(r *Redactor) {
	if r != nil {
		h.current.Store(r)
	}
}

var errNoRedactor = errors.New("no redactor loaded")

// RedactAndCount delegates to the current Redactor.
func (h *Holder) RedactAndCount(text string) (string, int, error) {
	r := h.Load()
	if r == nil {
		return "", 0, errNoRedactor
	}
	return r.RedactAndCount(text)
}

// Redact delegates to the current Redactor.
func (h *Holder) Redact(text string) (string, error) {
	out, _, err := h.RedactAndCount(text)
	return out, err
}
