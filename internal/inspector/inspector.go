// Package inspector runs configured checks over NWB snapshot files.
package inspector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/checks"
	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/message"
	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/nwb"
	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/progress"
	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/registry"
)

// Inspector applies a fixed check list to files or object trees.
type Inspector struct {
	checks         []registry.Check
	validator      nwb.Validator
	skipValidation bool
	opener         *nwb.Opener
	types          *nwb.TypeRegistry
	workers        int
	progress       progress.Reporter
}

// Option customizes an Inspector.
type Option func(*Inspector)

// WithValidator replaces the default schema validator.
func WithValidator(v nwb.Validator) Option {
	return func(i *Inspector) { i.validator = v }
}

// WithSkipValidation disables schema validation.
func WithSkipValidation(skip bool) Option {
	return func(i *Inspector) { i.skipValidation = skip }
}

// WithOpener replaces the snapshot opener.
func WithOpener(o *nwb.Opener) Option {
	return func(i *Inspector) { i.opener = o }
}

// WithTypes sets the base type hierarchy files are materialized against.
func WithTypes(types *nwb.TypeRegistry) Option {
	return func(i *Inspector) { i.types = types }
}

// WithWorkers sets the batch parallelism, already resolved by ResolveWorkers.
func WithWorkers(n int) Option {
	return func(i *Inspector) { i.workers = n }
}

// WithProgress reports per-file batch progress.
func WithProgress(r progress.Reporter) Option {
	return func(i *Inspector) { i.progress = r }
}

// New builds an inspector over checks, which are used in the given order.
func New(checkList []registry.Check, opts ...Option) (*Inspector, error) {
	i := &Inspector{
		checks:   slices.Clone(checkList),
		opener:   nwb.NewOpener(),
		types:    nwb.NewTypeRegistry(),
		workers:  1,
		progress: progress.Nop{},
	}
	for _, opt := range opts {
		opt(i)
	}

	if i.validator == nil && !i.skipValidation {
		v, err := nwb.NewSchemaValidator(i.types)
		if err != nil {
			return nil, fmt.Errorf("build schema validator: %w", err)
		}
		i.validator = v
	}
	if i.workers < 1 {
		i.workers = 1
	}

	return i, nil
}

// Checks returns the inspector's check list.
func (i *Inspector) Checks() []registry.Check {
	return slices.Clone(i.checks)
}

// InspectFile opens, validates and inspects one file. Failures become
// messages; the result is never partial because of an error.
func (i *Inspector) InspectFile(ctx context.Context, path string) []message.Message {
	start := time.Now()

	snap, err := i.opener.Open(ctx, path)
	if err != nil {
		slog.Warn("open failed", "path", path, "error", err)
		msg := internalError(fmt.Sprintf("During io.read() - %s: %v", errorType(err), err), err.Error())
		msg.Location = "/"
		return tag([]message.Message{msg}, path)
	}

	var out []message.Message
	if !i.skipValidation {
		out = append(out, i.validate(ctx, snap)...)
	}

	file, err := nwb.Materialize(path, snap, i.types)
	if err != nil {
		slog.Warn("materialize failed", "path", path, "error", err)
		msg := internalError(fmt.Sprintf("During materialization - %s: %v", errorType(err), err), err.Error())
		msg.Location = "/"
		return tag(append(out, msg), path)
	}

	out = append(out, dispatch(file.Objects(), interceptInVitroProtein(file.Root, i.checks))...)
	out = tag(out, path)

	slog.Info("inspected file", "path", path, "messages", len(out), "duration", time.Since(start))
	return out
}

// InspectObject inspects obj and its descendants without a file context.
func (i *Inspector) InspectObject(obj *nwb.Object) []message.Message {
	if obj == nil {
		return nil
	}
	return dispatch(descendants(obj), interceptInVitroProtein(obj, i.checks))
}

func (i *Inspector) validate(ctx context.Context, snap *nwb.Snapshot) []message.Message {
	if i.validator == nil {
		return nil
	}

	verrs, err := i.validator.Validate(ctx, snap)
	if err != nil {
		msg := internalError(fmt.Sprintf("During validation - %s: %v", errorType(err), err), err.Error())
		msg.Location = "/"
		return []message.Message{msg}
	}

	out := make([]message.Message, 0, len(verrs))
	for _, verr := range verrs {
		out = append(out, message.Message{
			Message:           verr.Reason,
			Importance:        message.SchemaValidationFailure,
			Severity:          message.SeverityLow,
			CheckFunctionName: verr.Name,
			ObjectType:        verr.DataType,
			Location:          verr.Location,
		})
	}
	return out
}

// dispatch runs every applicable check over every object: checks outer, objects inner.
func dispatch(objects []*nwb.Object, checkList []registry.Check) []message.Message {
	var out []message.Message
	for _, check := range checkList {
		for _, obj := range objects {
			if !check.Applies(obj) {
				continue
			}

			msgs, err := check.Run(obj)
			if err != nil {
				out = append(out, checkFailure(check, obj, err))
				continue
			}
			out = append(out, msgs...)
		}
	}
	return out
}

func checkFailure(check registry.Check, obj *nwb.Object, err error) message.Message {
	slog.Debug("check failed", "check", check.Name(), "object", obj.Name, "error", err)

	var panicErr *registry.PanicError
	if errors.As(err, &panicErr) {
		slog.Debug("check panicked", "check", check.Name(), "object", obj.Name, "stack", panicErr.Stack)
	}

	text := fmt.Sprintf("During evaluation of '%s' - %s: %v", check.Name(), errorType(err), err)
	msg := internalError(check.Name(), text)
	msg.ObjectType = obj.TypeName()
	msg.ObjectName = obj.Name
	msg.Location = registry.Location(obj)
	return msg
}

func internalError(checkName, text string) message.Message {
	return message.Message{
		Message:           text,
		Importance:        message.InternalError,
		Severity:          message.SeverityLow,
		CheckFunctionName: checkName,
	}
}

// errorType names the first error in the chain that is not a plain
// fmt.Errorf wrapper, e.g. "fs.PathError".
func errorType(err error) string {
	name := fmt.Sprintf("%T", err)
	for name == "*fmt.wrapError" || name == "*fmt.wrapErrors" {
		next := errors.Unwrap(err)
		if next == nil {
			break
		}
		err = next
		name = fmt.Sprintf("%T", err)
	}
	return strings.TrimPrefix(name, "*")
}

func tag(msgs []message.Message, path string) []message.Message {
	for i := range msgs {
		msgs[i].FilePath = path
	}
	return msgs
}

// descendants lists obj and everything it owns, depth first in document order.
func descendants(obj *nwb.Object) []*nwb.Object {
	out := []*nwb.Object{obj}
	for _, child := range obj.Children() {
		out = append(out, descendants(child)...)
	}
	return out
}

// interceptInVitroProtein drops the subject checks for in vitro protein
// sessions when they are configured as requirements.
func interceptInVitroProtein(root *nwb.Object, checkList []registry.Check) []registry.Check {
	if root == nil {
		return checkList
	}
	subject := root.Ref("subject")
	if subject == nil {
		return checkList
	}
	subjectID, _ := subject.String("subject_id")
	if !strings.HasPrefix(subjectID, "protein") {
		return checkList
	}

	required := slices.ContainsFunc(checkList, func(c registry.Check) bool {
		return c.Importance() == message.Critical && slices.Contains(checks.SubjectCheckNames, c.Name())
	})
	if !required {
		return checkList
	}

	return slices.DeleteFunc(slices.Clone(checkList), func(c registry.Check) bool {
		return slices.Contains(checks.SubjectCheckNames, c.Name())
	})
}
