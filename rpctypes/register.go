// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package types

import (
	"fmt"
	"reflect"
	"sync"
)

var (
	registryMu sync.RWMutex
	registry   = map[string]reflect.Type{}
)

// MustRegister associates a JSON-RPC method name with the Go type used
// to unmarshal its parameters, panicking if the method is already
// registered or cmd is not a pointer to a struct. Called from each
// command file's init(), mirroring the teacher's dcrjson registration
// idiom.
func MustRegister(method string, cmd interface{}) {
	rt := reflect.TypeOf(cmd)
	if rt == nil || rt.Kind() != reflect.Ptr || rt.Elem().Kind() != reflect.Struct {
		panic(fmt.Sprintf("rpctypes: MustRegister(%q): cmd must be a pointer to a struct", method))
	}

	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[method]; exists {
		panic(fmt.Sprintf("rpctypes: method %q already registered", method))
	}
	registry[method] = rt.Elem()
}

// Method looks up the parameter type registered for a JSON-RPC method
// name. ok is false for any method this node does not recognize.
func Method(name string) (reflect.Type, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	rt, ok := registry[name]
	return rt, ok
}

// NewCmd allocates a fresh zero-valued command struct for method, for
// json.Unmarshal to populate.
func NewCmd(method string) (interface{}, error) {
	rt, ok := Method(method)
	if !ok {
		return nil, fmt.Errorf("rpctypes: unknown method %q", method)
	}
	return reflect.New(rt).Interface(), nil
}
