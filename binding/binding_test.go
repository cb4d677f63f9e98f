package binding

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/dop251/goja"
)

func mustData(t *testing.T, raw string) any {
	t.Helper()
	var data any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		t.Fatalf("bad fixture: %v", err)
	}
	return data
}

func TestInterpolatePaths(t *testing.T) {
	data := mustData(t, `{"series":[{"name":"CPU","value":42}],"title":"Load"}`)
	cases := []struct{ in, want string }{
		{"${title}", "Load"},
		{"${series[0].name}: ${ series[0].value }", "CPU: 42"},
		{"${missing.key}", "${missing.key}"},
		{"${series[3].name}", "${series[3].name}"},
		{"no placeholders", "no placeholders"},
	}
	for _, tc := range cases {
		if got := Interpolate(tc.in, data); got != tc.want {
			t.Errorf("Interpolate(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestInterpolateExpressions(t *testing.T) {
	data := mustData(t, `{"value":3.14159,"total":8,"unit":"ms"}`)
	if got := Interpolate("${value.toFixed(2)} ${unit}", data); got != "3.14 ms" {
		t.Fatalf("unexpected formatter output %q", got)
	}
	if got := Interpolate("${total / 2}", data); got != "4" {
		t.Fatalf("unexpected arithmetic output %q", got)
	}
	if got := Interpolate("${nope(}", data); got != "${nope(}" {
		t.Fatalf("syntax errors must keep the placeholder, got %q", got)
	}
}

func TestInterpolateInterruptsRunawayExpressions(t *testing.T) {
	saved := evalTimeout
	evalTimeout = 20 * time.Millisecond
	defer func() { evalTimeout = saved }()

	data := mustData(t, `{"total":8}`)
	start := time.Now()
	got := Interpolate(`${eval("for(;;);")} / ${total}`, data)
	if got != `${eval("for(;;);")} / 8` {
		t.Fatalf("runaway expression must keep the placeholder, got %q", got)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("evaluation was not interrupted, took %s", elapsed)
	}

	vm := newRuntime(data)
	_, err := Eval(vm, "while (true);")
	var interrupted *goja.InterruptedError
	if !errors.As(err, &interrupted) {
		t.Fatalf("expected an interrupt error, got %v", err)
	}
	if v, err := Eval(vm, "total * 2"); err != nil || format(v) != "16" {
		t.Fatalf("vm should be reusable after an interrupt, got %v %v", v, err)
	}
}

func TestInterpolateNilData(t *testing.T) {
	if got := Interpolate("${a}", nil); got != "${a}" {
		t.Fatalf("nil data must be a no-op, got %q", got)
	}
}
