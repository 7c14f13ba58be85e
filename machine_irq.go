// machine_irq.go - Interrupt controller and masked critical sections

package main

import "sync"

// InterruptController models the machine's asynchronous interrupt delivery.
// Handlers raised while delivery is masked are queued and run, in arrival
// order, on the goroutine that removes the last mask level. The console
// writer wraps every grid operation in WithMasked so a handler that prints
// can never interleave with a half-finished write.
type InterruptController struct {
	mu      sync.Mutex
	depth   int
	pending []func()
}

func NewInterruptController() *InterruptController {
	return &InterruptController{}
}

// Raise delivers the handler immediately on the calling goroutine when
// delivery is unmasked. While masked it queues the handler instead. The
// handler always runs outside the controller's internal lock, so it may
// print, raise further interrupts, or mask on its own.
func (ic *InterruptController) Raise(handler func()) {
	if handler == nil {
		return
	}
	ic.mu.Lock()
	if ic.depth > 0 {
		ic.pending = append(ic.pending, handler)
		ic.mu.Unlock()
		return
	}
	ic.mu.Unlock()
	handler()
}

// WithMasked runs fn with asynchronous delivery masked. Sections nest;
// queued handlers are drained when the outermost section ends, before
// WithMasked returns.
func (ic *InterruptController) WithMasked(fn func()) {
	ic.mu.Lock()
	ic.depth++
	ic.mu.Unlock()

	defer func() {
		ic.mu.Lock()
		ic.depth--
		var drained []func()
		if ic.depth == 0 && len(ic.pending) > 0 {
			drained = ic.pending
			ic.pending = nil
		}
		ic.mu.Unlock()

		for _, handler := range drained {
			handler()
		}
	}()

	fn()
}

// Masked reports whether delivery is currently masked.
func (ic *InterruptController) Masked() bool {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	return ic.depth > 0
}

// PendingCount reports how many handlers are queued. Diagnostic use only.
func (ic *InterruptController) PendingCount() int {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	return len(ic.pending)
}
