package state

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
)

// Store owns a State. Subscribers run after the lock is released and
// receive the snapshot their write produced.
type Store struct {
	mu      sync.Mutex
	state   State
	subs    map[int]func(State)
	nextSub int
}

// New creates a store holding initial.
func New(initial State) *Store {
	return &Store{state: initial, subs: make(map[int]func(State))}
}

// Get returns a snapshot.
func (s *Store) Get() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Version returns the number of writes so far.
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Version
}

// SetState applies fn to the state and notifies subscribers once.
// fn must replace maps and slices rather than mutate them.
func (s *Store) SetState(fn func(*State)) {
	s.mu.Lock()
	next := s.state
	fn(&next)
	next.Version = s.state.Version + 1
	s.state = next
	subs := s.subscribers()
	s.mu.Unlock()

	for _, sub := range subs {
		sub(next)
	}
}

// SetValue writes the field whose JSON name is key. JSON numbers (float64)
// are converted to integer fields.
func (s *Store) SetValue(key string, value any) error {
	idx, ok := fieldIndex[key]
	if !ok {
		return fmt.Errorf("state: unknown key %q", key)
	}
	ft := stateType.Field(idx).Type
	v, err := coerce(value, ft)
	if err != nil {
		return fmt.Errorf("state: %s: %w", key, err)
	}
	s.SetState(func(st *State) {
		reflect.ValueOf(st).Elem().Field(idx).Set(v)
	})
	return nil
}

// Subscribe registers fn for every future write.
func (s *Store) Subscribe(fn func(State)) (cancel func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Store) subscribers() []func(State) {
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]func(State), len(ids))
	for i, id := range ids {
		out[i] = s.subs[id]
	}
	return out
}

var (
	stateType  = reflect.TypeOf(State{})
	fieldIndex = func() map[string]int {
		out := make(map[string]int, stateType.NumField())
		for i := 0; i < stateType.NumField(); i++ {
			name, _, _ := strings.Cut(stateType.Field(i).Tag.Get("json"), ",")
			if name == "" || name == "-" || name == "version" {
				continue
			}
			out[name] = i
		}
		return out
	}()
)

func coerce(value any, t reflect.Type) (reflect.Value, error) {
	if value == nil {
		switch t.Kind() {
		case reflect.Map, reflect.Slice, reflect.Pointer, reflect.Interface:
			return reflect.Zero(t), nil
		}
		return reflect.Value{}, fmt.Errorf("nil for %s", t)
	}
	v := reflect.ValueOf(value)
	if v.Type().AssignableTo(t) {
		return v, nil
	}
	if v.Kind() == reflect.Float64 && t.Kind() == reflect.Int {
		f := v.Float()
		if f != float64(int(f)) {
			return reflect.Value{}, fmt.Errorf("%v is not an integer", f)
		}
		return reflect.ValueOf(int(f)).Convert(t), nil
	}
	return reflect.Value{}, fmt.Errorf("%T not assignable to %s", value, t)
}
