package registry

import (
	"fmt"
	"maps"
	"runtime/debug"

	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/message"
	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/nwb"
)

// AnyType targets every object regardless of its neurodata type.
const AnyType = ""

// Params is a check's tunable thresholds.
type Params map[string]float64

// Float returns the named parameter, or fallback when unset.
func (p Params) Float(name string, fallback float64) float64 {
	if v, ok := p[name]; ok {
		return v
	}
	return fallback
}

// Int returns the named parameter truncated to an int.
func (p Params) Int(name string, fallback int) int {
	if v, ok := p[name]; ok {
		return int(v)
	}
	return fallback
}

func (p Params) clone() Params {
	if p == nil {
		return nil
	}
	return maps.Clone(p)
}

// Func inspects one object. It returns no messages when nothing is wrong.
type Func func(obj *nwb.Object, p Params) ([]message.Message, error)

// Check is an immutable check descriptor. Derive variants with the With methods.
type Check struct {
	name        string
	importance  message.Importance
	targetType  string
	description string
	params      Params
	fn          Func
}

// Option customizes a check at registration.
type Option func(*Check)

// WithDescription attaches a one-line description.
func WithDescription(text string) Option {
	return func(c *Check) { c.description = text }
}

// WithDefaults sets the default parameter record.
func WithDefaults(p Params) Option {
	return func(c *Check) { c.params = p.clone() }
}

func (c Check) Name() string                   { return c.name }
func (c Check) Importance() message.Importance { return c.importance }
func (c Check) TargetType() string             { return c.targetType }
func (c Check) Description() string            { return c.description }

// Params returns a copy of the parameter record.
func (c Check) Params() Params { return c.params.clone() }

// WithImportance returns a copy of c declared at imp.
func (c Check) WithImportance(imp message.Importance) Check {
	c.importance = imp
	c.params = c.params.clone()
	return c
}

// Applies reports whether obj is of the target type or a subtype.
func (c Check) Applies(obj *nwb.Object) bool {
	if c.targetType == AnyType {
		return true
	}
	return obj.Is(c.targetType)
}

// Run invokes the check and completes every returned message with the
// check's importance and the object's identity. A panic in the check body is
// returned as a PanicError.
func (c Check) Run(obj *nwb.Object) (out []message.Message, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = &PanicError{Value: r, Stack: string(debug.Stack())}
		}
	}()

	results, err := c.fn(obj, c.params)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}

	location := Location(obj)
	completed := make([]message.Message, 0, len(results))
	for _, msg := range results {
		if !msg.Severity.Valid() {
			return nil, fmt.Errorf("indicated severity (%d) of check %s is not a valid severity level: choose high, low, or leave it unset", int(msg.Severity), c.name)
		}
		if msg.Severity == message.SeverityUnset {
			msg.Severity = message.SeverityLow
		}
		msg.Importance = c.importance
		msg.CheckFunctionName = c.name
		msg.ObjectType = obj.TypeName()
		msg.ObjectName = obj.Name
		msg.Location = location
		completed = append(completed, msg)
	}

	return completed, nil
}

// PanicError carries a recovered panic and the stack it came from.
type PanicError struct {
	Value any
	Stack string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}
