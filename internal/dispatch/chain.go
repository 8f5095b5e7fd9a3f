// Package dispatch implements the mutable, index-safe decoder/encoder chain
// walk and the function-wrapper registry. Both the
// protocol package (handshake decoders that remove themselves) and the
// client package (Socket's live decoder/function lists) build on this.
//
// The chain is a plain slice guarded by a mutex, not a linked list with a
// concurrent iterator: self-removal during traversal is handled by
// iterating by index and re-checking the length/current slot after every
// step, rather than by snapshotting.
package dispatch

import (
	"reflect"
	"sync"

	"github.com/momentics/wasync-go/api"
	log "github.com/sirupsen/logrus"
)

// DecoderChain is the shared, mutable ordered list of api.Decoder run on
// every inbound (event, payload). It implements api.Chain so a decoder can
// remove itself or insert a new decoder while being invoked.
type DecoderChain struct {
	mu      sync.Mutex
	members []api.Decoder
	// cursor tracks the index currently being invoked so RemoveSelf/InsertAt
	// can adjust traversal in place; valid only during Run.
	cursor int
}

// NewDecoderChain builds a chain from an initial ordered list.
func NewDecoderChain(initial []api.Decoder) *DecoderChain {
	return &DecoderChain{members: append([]api.Decoder(nil), initial...)}
}

// Prepend inserts d at position 0. It takes c.mu, so it is for use outside
// Run; decoders mutating the chain during Run go through InsertAt.
func (c *DecoderChain) Prepend(d api.Decoder) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.members = append([]api.Decoder{d}, c.members...)
	c.cursor++
}

// InsertAt implements api.Chain. Called from within Run, so it assumes the
// caller already holds c.mu (Run holds it for the duration of the walk).
func (c *DecoderChain) InsertAt(index int, d api.Decoder) {
	if index < 0 {
		index = 0
	}
	if index > len(c.members) {
		index = len(c.members)
	}
	c.members = append(c.members[:index], append([]api.Decoder{d}, c.members[index:]...)...)
	if index <= c.cursor {
		c.cursor++
	}
}

// RemoveSelf implements api.Chain: removes the member currently being
// invoked (tracked via cursor) from the live chain. Assumes c.mu held.
func (c *DecoderChain) RemoveSelf() {
	c.removeAt(c.cursor)
}

// Remove implements api.Chain: removes the first occurrence of d, found by
// identity, regardless of where traversal currently is. Used by the
// protocol handshake decoders to remove their sibling.
func (c *DecoderChain) Remove(d api.Decoder) {
	for i, m := range c.members {
		if m == d {
			c.removeAt(i)
			return
		}
	}
}

// IndexOf implements api.Chain, returning -1 if d is not a current member.
func (c *DecoderChain) IndexOf(d api.Decoder) int {
	for i, m := range c.members {
		if m == d {
			return i
		}
	}
	return -1
}

func (c *DecoderChain) removeAt(i int) {
	if i < 0 || i >= len(c.members) {
		return
	}
	c.members = append(c.members[:i], c.members[i+1:]...)
	// Removing the current member (or one before it) shifts the next member
	// into an already-visited slot; step the cursor back so Run's increment
	// lands on it.
	if i <= c.cursor {
		c.cursor--
	}
}

// Len reports the current member count.
func (c *DecoderChain) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.members)
}

// Snapshot returns a copy of the current member list, useful for
// introspection/tests (e.g. asserting handshake decoders were removed).
func (c *DecoderChain) Snapshot() []api.Decoder {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]api.Decoder(nil), c.members...)
}

// Run walks the chain for one inbound (event, payload):
//  1. each decoder whose InputType is assignable from the current payload's
//     type is invoked, replacing the payload for later stages;
//  2. a decoder returning api.Abort stops the chain and suppresses dispatch;
//  3. type-incompatible decoders are skipped silently;
//  4. the chain tolerates self-mutation during traversal.
func (c *DecoderChain) Run(event api.Event, payload interface{}) (result interface{}, aborted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	current := payload
	for c.cursor = 0; c.cursor < len(c.members); c.cursor++ {
		d := c.members[c.cursor]
		if !assignable(d.InputType(), current) {
			continue
		}
		out, err := d.Decode(event, current)
		if err != nil {
			log.WithError(err).Warn("decoder returned error, passing payload through unchanged")
			continue
		}
		if mutator, ok := d.(api.ChainMutator); ok {
			mutator.MutateChain(c)
		}
		if api.IsAbort(out) {
			return nil, true
		}
		current = out
	}
	return current, false
}

// assignable reports whether v's dynamic type is assignable to t, treating a
// nil t as "accepts anything" (used by decoders with no input-type filter).
func assignable(t reflect.Type, v interface{}) bool {
	if t == nil {
		return true
	}
	if v == nil {
		return false
	}
	vt := reflect.TypeOf(v)
	return vt == t || vt.AssignableTo(t)
}
