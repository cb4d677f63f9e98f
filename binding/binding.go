package binding

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"
)

// evalTimeout 限制单个表达式的求值时间，超时后中断 JS 引擎。
var evalTimeout = 250 * time.Millisecond

var (
	exprPattern = regexp.MustCompile(`\$\{([^}]+)\}`)
	pathPattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*(?:\.[A-Za-z_$][A-Za-z0-9_$]*|\[\d+\])*$`)
)

// Interpolate 将文本中的 ${...} 替换为 data 中的值。
// 纯路径（如 ${series[0].name}）直接按 JSON 结构解析；其余表达式（如 ${value.toFixed(1)}）
// 交给 JS 引擎求值，data 的顶层字段作为全局变量。
// 若 data 为空、路径不存在或求值失败，则保留原占位符。
func Interpolate(text string, data any) string {
	if data == nil || !strings.Contains(text, "${") {
		return text
	}
	var vm *goja.Runtime
	return exprPattern.ReplaceAllStringFunc(text, func(match string) string {
		groups := exprPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		expr := strings.TrimSpace(groups[1])
		if expr == "" {
			return match
		}
		if pathPattern.MatchString(expr) {
			if val, ok := resolvePath(data, expr); ok {
				return format(val)
			}
			return match
		}
		if vm == nil {
			vm = newRuntime(data)
		}
		val, err := Eval(vm, expr)
		if err != nil {
			return match
		}
		return format(val)
	})
}

// Eval 在 vm 中求值表达式并导出为 Go 值；undefined/null 与超时均视为错误。
func Eval(vm *goja.Runtime, expr string) (any, error) {
	var mu sync.Mutex
	finished := false
	timer := time.AfterFunc(evalTimeout, func() {
		mu.Lock()
		defer mu.Unlock()
		if !finished {
			vm.Interrupt("timeout")
		}
	})
	v, err := vm.RunString(expr)
	mu.Lock()
	finished = true
	mu.Unlock()
	timer.Stop()
	// 计时器可能在返回前已触发，清除残留的中断以便复用 vm
	vm.ClearInterrupt()
	if err != nil {
		return nil, fmt.Errorf("求值 %q 失败: %w", expr, err)
	}
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, fmt.Errorf("表达式 %q 结果为空", expr)
	}
	return v.Export(), nil
}

func newRuntime(data any) *goja.Runtime {
	vm := goja.New()
	vm.Set("data", data)
	if m, ok := data.(map[string]any); ok {
		for k, v := range m {
			vm.Set(k, v)
		}
	}
	return vm
}

// format 将 JSON 数值中的整数写成不带小数点的形式。
func format(val any) string {
	switch v := val.(type) {
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}

func resolvePath(data any, path string) (any, bool) {
	current := data
	segments := strings.Split(path, ".")
	for _, segment := range segments {
		name, indexes := parseSegment(segment)
		if name != "" {
			var ok bool
			current, ok = descendMap(current, name)
			if !ok {
				return nil, false
			}
		}
		for _, idxStr := range indexes {
			idx, err := strconv.Atoi(idxStr)
			if err != nil {
				return nil, false
			}
			var ok bool
			current, ok = descendArray(current, idx)
			if !ok {
				return nil, false
			}
		}
	}
	return current, true
}

func parseSegment(segment string) (string, []string) {
	name, rest, found := strings.Cut(segment, "[")
	if !found {
		return segment, nil
	}
	indexes := []string{}
	rest = "[" + rest
	for strings.HasPrefix(rest, "[") {
		end := strings.IndexByte(rest, ']')
		if end == -1 {
			break
		}
		indexes = append(indexes, rest[1:end])
		rest = rest[end+1:]
	}
	return name, indexes
}

func descendMap(current any, key string) (any, bool) {
	c, ok := current.(map[string]any)
	if !ok {
		return nil, false
	}
	val, ok := c[key]
	return val, ok
}

func descendArray(current any, idx int) (any, bool) {
	c, ok := current.([]any)
	if !ok || idx < 0 || idx >= len(c) {
		return nil, false
	}
	return c[idx], true
}
