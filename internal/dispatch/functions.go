package dispatch

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/momentics/wasync-go/api"
	log "github.com/sirupsen/logrus"
)

// FunctionWrapper pairs a match-key with a user callback. The
// match-key is either an event name, a type name, or "" (wildcard — matches
// everything, used for on(fn) registrations that want every message).
type FunctionWrapper struct {
	MatchKey string
	Fn       reflect.Value
	ArgType  reflect.Type
}

// Registry is the shared, ordered list of FunctionWrapper the Socket
// dispatches against. Registration order is dispatch order.
type Registry struct {
	mu       sync.Mutex
	wrappers []FunctionWrapper
	resolver api.FunctionResolver
}

// NewRegistry builds an empty registry. A nil resolver disables clause (c)
// of the dispatch predicate.
func NewRegistry(resolver api.FunctionResolver) *Registry {
	return &Registry{resolver: resolver}
}

// On registers fn under matchKey. fn must be a func taking exactly one
// argument (the coerced payload); arity/type are validated here rather than
// at call time so a bad registration fails fast.
func (r *Registry) On(matchKey string, fn interface{}) error {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.Type().NumIn() != 1 {
		return fmt.Errorf("dispatch: callback must be a func(T) for some T")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.wrappers = append(r.wrappers, FunctionWrapper{
		MatchKey: matchKey,
		Fn:       v,
		ArgType:  v.Type().In(0),
	})
	return nil
}

// Dispatch resolves (eventName, payload) against every registered wrapper
// in registration order and invokes every match. A wrapper matches when:
//
//	(a) its match-key is "" or equals eventName,
//	(b) its match-key equals the name of the payload's dynamic type
//	    (reflect.Type String() or Name()); the name of an interface or other
//	    type the payload is merely assignable to does not match, or
//	(c) the registry's resolver reports a match for (match-key, payload).
//
// Callback panics are recovered, logged, and do not stop dispatch to
// subsequent callbacks (the Go reading of "callback exceptions ... do not
// abort dispatch"). Dispatch reports whether at least one registered
// wrapper matched and ran, so callers (Pipeline.Deliver, for the error
// event) can tell a registered callback actually consumed the payload.
func (r *Registry) Dispatch(eventName string, payload interface{}) bool {
	r.mu.Lock()
	wrappers := append([]FunctionWrapper(nil), r.wrappers...)
	resolver := r.resolver
	r.mu.Unlock()

	dispatched := false
	for _, w := range wrappers {
		if !matches(w, eventName, payload, resolver) {
			continue
		}
		if invoke(w, payload) {
			dispatched = true
		}
	}
	return dispatched
}

func matches(w FunctionWrapper, eventName string, payload interface{}, resolver api.FunctionResolver) bool {
	if w.MatchKey == "" {
		return true
	}
	if w.MatchKey == eventName {
		return true
	}
	if payload != nil {
		if pt := reflect.TypeOf(payload); pt != nil && typeNameMatches(w.MatchKey, pt) {
			return true
		}
	}
	if resolver != nil && resolver.Resolve(w.MatchKey, payload) {
		return true
	}
	return false
}

func typeNameMatches(matchKey string, t reflect.Type) bool {
	return matchKey == t.String() || matchKey == t.Name()
}

// invoke calls w.Fn with payload coerced to its argument type, reporting
// whether the call completed (false if the payload couldn't be coerced or
// the callback panicked).
func invoke(w FunctionWrapper, payload interface{}) bool {
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("function dispatch: callback panicked")
		}
	}()

	arg, err := coerce(payload, w.ArgType)
	if err != nil {
		log.WithError(err).Warn("function dispatch: payload not assignable to callback argument, skipping")
		return false
	}
	w.Fn.Call([]reflect.Value{arg})
	return true
}

func coerce(payload interface{}, target reflect.Type) (reflect.Value, error) {
	if payload == nil {
		return reflect.Zero(target), nil
	}
	v := reflect.ValueOf(payload)
	if v.Type().AssignableTo(target) {
		return v, nil
	}
	if v.Type().ConvertibleTo(target) {
		return v.Convert(target), nil
	}
	return reflect.Value{}, fmt.Errorf("dispatch: payload type %s not assignable to %s", v.Type(), target)
}
