// machine_irq_test.go - Interrupt masking and deferred delivery tests

package main

import (
	"testing"
)

// TestRaiseDeliversImmediatelyWhenUnmasked verifies the unmasked path runs
// the handler on the calling goroutine before Raise returns.
func TestRaiseDeliversImmediatelyWhenUnmasked(t *testing.T) {
	irq := NewInterruptController()

	ran := false
	irq.Raise(func() { ran = true })
	if !ran {
		t.Fatal("handler did not run before Raise returned")
	}

	// A nil handler is ignored.
	irq.Raise(nil)
}

// TestMaskedSectionDefersDelivery verifies a handler raised under a mask
// is queued and runs exactly once when the section ends.
func TestMaskedSectionDefersDelivery(t *testing.T) {
	irq := NewInterruptController()

	runs := 0
	irq.WithMasked(func() {
		irq.Raise(func() { runs++ })
		if runs != 0 {
			t.Fatal("handler delivered inside the masked section")
		}
		if !irq.Masked() {
			t.Fatal("Masked() reported false inside a section")
		}
		if irq.PendingCount() != 1 {
			t.Fatalf("pending count %d, expected 1", irq.PendingCount())
		}
	})

	if runs != 1 {
		t.Fatalf("handler ran %d times after the section, expected 1", runs)
	}
	if irq.Masked() {
		t.Fatal("Masked() reported true after the section")
	}
	if irq.PendingCount() != 0 {
		t.Fatalf("pending count %d after drain, expected 0", irq.PendingCount())
	}
}

// TestNestedMasksDrainAtOutermost verifies handlers queued anywhere inside
// nested sections are held until the outermost one exits.
func TestNestedMasksDrainAtOutermost(t *testing.T) {
	irq := NewInterruptController()

	runs := 0
	irq.WithMasked(func() {
		irq.WithMasked(func() {
			irq.Raise(func() { runs++ })
		})
		// Inner section ended, but the outer mask still holds.
		if runs != 0 {
			t.Fatal("handler delivered before the outermost section ended")
		}
	})

	if runs != 1 {
		t.Fatalf("handler ran %d times, expected 1", runs)
	}
}

// TestDeferredDeliveryOrder verifies queued handlers run in arrival order.
func TestDeferredDeliveryOrder(t *testing.T) {
	irq := NewInterruptController()

	var order []int
	irq.WithMasked(func() {
		for i := range 5 {
			irq.Raise(func() { order = append(order, i) })
		}
	})

	if len(order) != 5 {
		t.Fatalf("delivered %d handlers, expected 5", len(order))
	}
	for i, got := range order {
		if got != i {
			t.Fatalf("delivery order %v, expected ascending", order)
		}
	}
}

// TestHandlerMayMaskAgain verifies a drained handler can open its own
// masked section without deadlocking, which is exactly what a handler
// that prints does.
func TestHandlerMayMaskAgain(t *testing.T) {
	irq := NewInterruptController()

	inner := false
	irq.WithMasked(func() {
		irq.Raise(func() {
			irq.WithMasked(func() { inner = true })
		})
	})

	if !inner {
		t.Fatal("re-masking handler did not complete")
	}
}
