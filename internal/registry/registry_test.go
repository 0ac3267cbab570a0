package registry

import (
	"errors"
	"strings"
	"testing"

	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/message"
	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/nwb"
)

var testTypes = nwb.NewTypeRegistry()

func mustType(t *testing.T, name string) *nwb.Type {
	t.Helper()
	typ, ok := testTypes.Lookup(name)
	if !ok {
		t.Fatalf("type %q not registered", name)
	}
	return typ
}

func flagAll(obj *nwb.Object, _ Params) ([]message.Message, error) {
	return []message.Message{message.New("found " + obj.Name)}, nil
}

func TestRegisterRejectsReservedImportance(t *testing.T) {
	reg := New()
	for _, imp := range []message.Importance{message.SchemaValidationFailure, message.InternalError} {
		if _, err := reg.Register(imp, AnyType, "bad_"+imp.String(), flagAll); !errors.Is(err, ErrInvalidImportance) {
			t.Fatalf("Register(%s) error = %v, want ErrInvalidImportance", imp, err)
		}
	}
	if got := len(reg.Checks()); got != 0 {
		t.Fatalf("len(Checks()) = %d, want 0", got)
	}
}

func TestRegisterDuplicateName(t *testing.T) {
	reg := New()
	reg.MustRegister(message.Critical, AnyType, "check_x", flagAll)
	if _, err := reg.Register(message.BestPracticeSuggestion, AnyType, "check_x", flagAll); !errors.Is(err, ErrDuplicateCheck) {
		t.Fatalf("Register() error = %v, want ErrDuplicateCheck", err)
	}
}

func TestRegisterPreservesOrder(t *testing.T) {
	reg := New()
	for _, name := range []string{"check_b", "check_a", "check_c"} {
		reg.MustRegister(message.BestPracticeViolation, AnyType, name, flagAll)
	}

	got := strings.Join(reg.Names(), ",")
	if got != "check_b,check_a,check_c" {
		t.Fatalf("Names() = %s, want registration order", got)
	}
}

func TestRunFillsMessageFields(t *testing.T) {
	reg := New()
	check := reg.MustRegister(message.BestPracticeViolation, "TimeSeries", "check_ts", flagAll)

	ts1 := nwb.NewObject("1", "ts1", mustType(t, "TimeSeries"), nil)
	got, err := check.Run(ts1)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Run() returned %d messages, want 1", len(got))
	}

	want := message.Message{
		Message:           "found ts1",
		Importance:        message.BestPracticeViolation,
		Severity:          message.SeverityLow,
		CheckFunctionName: "check_ts",
		ObjectType:        "TimeSeries",
		ObjectName:        "ts1",
		Location:          "/",
	}
	if got[0] != want {
		t.Fatalf("Run() = %+v, want %+v", got[0], want)
	}
}

func TestRunEmptyResultIsNil(t *testing.T) {
	reg := New()
	check := reg.MustRegister(message.Critical, AnyType, "check_quiet", func(*nwb.Object, Params) ([]message.Message, error) {
		return []message.Message{}, nil
	})

	got, err := check.Run(nwb.NewObject("1", "x", mustType(t, "Container"), nil))
	if err != nil || got != nil {
		t.Fatalf("Run() = %v, %v; want nil, nil", got, err)
	}
}

func TestRunSeverity(t *testing.T) {
	cases := []struct {
		name     string
		severity message.Severity
		want     message.Severity
		wantErr  bool
	}{
		{name: "unset becomes low", severity: message.SeverityUnset, want: message.SeverityLow},
		{name: "high kept", severity: message.SeverityHigh, want: message.SeverityHigh},
		{name: "invalid", severity: message.Severity(7), wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			reg := New()
			check := reg.MustRegister(message.Critical, AnyType, "check_sev", func(*nwb.Object, Params) ([]message.Message, error) {
				return []message.Message{message.New("x").WithSeverity(tc.severity)}, nil
			})

			got, err := check.Run(nwb.NewObject("1", "x", mustType(t, "Container"), nil))
			if tc.wantErr {
				if err == nil {
					t.Fatalf("Run() expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if got[0].Severity != tc.want {
				t.Fatalf("Severity = %v, want %v", got[0].Severity, tc.want)
			}
		})
	}
}

func TestRunRecoversPanic(t *testing.T) {
	reg := New()
	check := reg.MustRegister(message.Critical, AnyType, "check_boom", func(*nwb.Object, Params) ([]message.Message, error) {
		var values []float64
		_ = values[3]
		return nil, nil
	})

	_, err := check.Run(nwb.NewObject("1", "x", mustType(t, "Container"), nil))
	var panicErr *PanicError
	if !errors.As(err, &panicErr) {
		t.Fatalf("Run() error = %v, want *PanicError", err)
	}
	if panicErr.Stack == "" {
		t.Fatalf("PanicError.Stack is empty")
	}
}

func TestApplies(t *testing.T) {
	reg := New()
	tsCheck := reg.MustRegister(message.Critical, "TimeSeries", "check_ts", flagAll)
	anyCheck := reg.MustRegister(message.Critical, AnyType, "check_any", flagAll)

	electrical := nwb.NewObject("1", "e", mustType(t, "ElectricalSeries"), nil)
	table := nwb.NewObject("2", "t", mustType(t, "DynamicTable"), nil)

	if !tsCheck.Applies(electrical) {
		t.Fatalf("TimeSeries check should apply to ElectricalSeries")
	}
	if tsCheck.Applies(table) {
		t.Fatalf("TimeSeries check should not apply to DynamicTable")
	}
	if !anyCheck.Applies(table) {
		t.Fatalf("AnyType check should apply to everything")
	}
}

func TestWithVariantsDoNotMutate(t *testing.T) {
	reg := New()
	base := reg.MustRegister(message.BestPracticeSuggestion, AnyType, "check_p", flagAll,
		WithDefaults(Params{"limit": 10}), WithDescription("limit check"))

	raised := base.WithImportance(message.Critical)

	if base.Importance() != message.BestPracticeSuggestion || raised.Importance() != message.Critical {
		t.Fatalf("WithImportance mutated the original")
	}
	if base.Params().Float("limit", 0) != 10 {
		t.Fatalf("base limit = %v, want 10", base.Params()["limit"])
	}
	if raised.Params().Float("limit", 0) != 10 {
		t.Fatalf("raised limit = %v, want 10", raised.Params()["limit"])
	}
	if raised.Description() != "limit check" {
		t.Fatalf("Description() = %q", raised.Description())
	}

	p := raised.Params()
	p["limit"] = 99
	if raised.Params().Float("limit", 0) != 10 || base.Params().Float("limit", 0) != 10 {
		t.Fatalf("Params() exposed internal map")
	}
}
