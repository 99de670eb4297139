// Package earthengine is a small client for the Earth Engine REST API.
//
// Computations are described as lazy expression graphs and only evaluated
// when submitted with ComputeValue or CreateMap. Nothing is cached: a node
// submitted twice is computed twice by the service.
package earthengine

import (
	"encoding/json"
	"strconv"

	"github.com/rotisserie/eris"
)

// Node is a vertex of a remote expression graph.
type Node interface {
	node()
}

// Constant is a literal JSON value.
type Constant struct {
	Value any
}

// Array is an ordered list of nodes.
type Array struct {
	Items []Node
}

// Dict is a string-keyed map of nodes.
type Dict struct {
	Entries map[string]Node
}

// Invocation calls a named service algorithm with named arguments.
type Invocation struct {
	Function string
	Args     map[string]Node
}

func (Constant) node()    {}
func (Array) node()       {}
func (Dict) node()        {}
func (*Invocation) node() {}

// Invoke builds an invocation node. Nil arguments are dropped so optional
// parameters can be passed unconditionally.
func Invoke(function string, args map[string]Node) *Invocation {
	clean := make(map[string]Node, len(args))
	for k, v := range args {
		if v != nil {
			clean[k] = v
		}
	}
	return &Invocation{Function: function, Args: clean}
}

// Const wraps a literal.
func Const(v any) Node {
	return Constant{Value: v}
}

// Strings wraps a list of string literals.
func Strings(values ...string) Node {
	items := make([]Node, len(values))
	for i, v := range values {
		items[i] = Constant{Value: v}
	}
	return Array{Items: items}
}

// Numbers wraps a list of numeric literals.
func Numbers(values ...float64) Node {
	items := make([]Node, len(values))
	for i, v := range values {
		items[i] = Constant{Value: v}
	}
	return Array{Items: items}
}

// FunctionName returns the algorithm name at the root of n, or "" when n is
// not an invocation.
func FunctionName(n Node) string {
	if inv, ok := n.(*Invocation); ok {
		return inv.Function
	}
	return ""
}

// Expression is the wire form of a graph: a flat table of values plus the
// key of the result.
type Expression struct {
	Result string                     `json:"result"`
	Values map[string]json.RawMessage `json:"values"`
}

// Serialize flattens n into an Expression. Structurally identical
// invocations share one entry in the value table.
func Serialize(n Node) (*Expression, error) {
	if n == nil {
		return nil, eris.New("earthengine: serialize nil expression")
	}

	s := &serializer{
		values: make(map[string]json.RawMessage),
		seen:   make(map[string]string),
	}
	root, err := s.encode(n)
	if err != nil {
		return nil, err
	}

	// Invocations already live in the table; anything else gets a slot.
	if ref, ok := root["valueReference"]; ok {
		var id string
		if err := json.Unmarshal(ref, &id); err != nil {
			return nil, eris.Wrap(err, "earthengine: decode root reference")
		}
		return &Expression{Result: id, Values: s.values}, nil
	}

	raw, err := json.Marshal(root)
	if err != nil {
		return nil, eris.Wrap(err, "earthengine: encode root")
	}
	id := s.store(raw)
	return &Expression{Result: id, Values: s.values}, nil
}

type serializer struct {
	values map[string]json.RawMessage
	seen   map[string]string
}

func (s *serializer) store(raw json.RawMessage) string {
	if id, ok := s.seen[string(raw)]; ok {
		return id
	}
	id := strconv.Itoa(len(s.values))
	s.values[id] = raw
	s.seen[string(raw)] = id
	return id
}

// encode returns the JSON object for n as a field map so callers can tell
// constants apart from references.
func (s *serializer) encode(n Node) (map[string]json.RawMessage, error) {
	switch v := n.(type) {
	case Constant:
		raw, err := json.Marshal(v.Value)
		if err != nil {
			return nil, eris.Wrap(err, "earthengine: encode constant")
		}
		return map[string]json.RawMessage{"constantValue": raw}, nil

	case Array:
		items := make([]map[string]json.RawMessage, len(v.Items))
		allConst := true
		for i, item := range v.Items {
			if item == nil {
				return nil, eris.New("earthengine: nil array item")
			}
			enc, err := s.encode(item)
			if err != nil {
				return nil, err
			}
			if _, ok := enc["constantValue"]; !ok {
				allConst = false
			}
			items[i] = enc
		}
		if allConst {
			consts := make([]json.RawMessage, len(items))
			for i, enc := range items {
				consts[i] = enc["constantValue"]
			}
			raw, err := json.Marshal(consts)
			if err != nil {
				return nil, eris.Wrap(err, "earthengine: encode array")
			}
			return map[string]json.RawMessage{"constantValue": raw}, nil
		}
		raw, err := json.Marshal(map[string]any{"values": items})
		if err != nil {
			return nil, eris.Wrap(err, "earthengine: encode array")
		}
		return map[string]json.RawMessage{"arrayValue": raw}, nil

	case Dict:
		entries := make(map[string]map[string]json.RawMessage, len(v.Entries))
		allConst := true
		for k, item := range v.Entries {
			if item == nil {
				return nil, eris.Errorf("earthengine: nil dictionary entry %q", k)
			}
			enc, err := s.encode(item)
			if err != nil {
				return nil, err
			}
			if _, ok := enc["constantValue"]; !ok {
				allConst = false
			}
			entries[k] = enc
		}
		if allConst {
			consts := make(map[string]json.RawMessage, len(entries))
			for k, enc := range entries {
				consts[k] = enc["constantValue"]
			}
			raw, err := json.Marshal(consts)
			if err != nil {
				return nil, eris.Wrap(err, "earthengine: encode dictionary")
			}
			return map[string]json.RawMessage{"constantValue": raw}, nil
		}
		raw, err := json.Marshal(map[string]any{"values": entries})
		if err != nil {
			return nil, eris.Wrap(err, "earthengine: encode dictionary")
		}
		return map[string]json.RawMessage{"dictionaryValue": raw}, nil

	case *Invocation:
		if v == nil || v.Function == "" {
			return nil, eris.New("earthengine: invocation without function name")
		}
		args := make(map[string]map[string]json.RawMessage, len(v.Args))
		for k, arg := range v.Args {
			enc, err := s.encode(arg)
			if err != nil {
				return nil, eris.Wrapf(err, "earthengine: %s.%s", v.Function, k)
			}
			args[k] = enc
		}
		// encoding/json sorts map keys, so equal graphs marshal identically.
		raw, err := json.Marshal(map[string]any{
			"functionInvocationValue": map[string]any{
				"functionName": v.Function,
				"arguments":    args,
			},
		})
		if err != nil {
			return nil, eris.Wrap(err, "earthengine: encode invocation")
		}
		ref, err := json.Marshal(s.store(raw))
		if err != nil {
			return nil, eris.Wrap(err, "earthengine: encode reference")
		}
		return map[string]json.RawMessage{"valueReference": ref}, nil

	default:
		return nil, eris.Errorf("earthengine: unsupported node %T", n)
	}
}
