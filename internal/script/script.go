// Package script checks and runs user scripts with an embedded JavaScript engine.
package script

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/dop251/goja"
)

// DefaultTimeout bounds a single Run when the Runner has none configured.
const DefaultTimeout = 5 * time.Second

// ErrTimeout is returned when a script exceeds its time budget.
var ErrTimeout = errors.New("script timed out")

// SyntaxError reports a script that does not compile.
type SyntaxError struct {
	Name string
	Err  error
}

func (e *SyntaxError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("syntax error: %v", e.Err)
	}
	return fmt.Sprintf("syntax error in %q: %v", e.Name, e.Err)
}

func (e *SyntaxError) Unwrap() error { return e.Err }

// Check compiles src without running it.
func Check(name, src string) error {
	if _, err := goja.Compile(name, src, false); err != nil {
		return &SyntaxError{Name: name, Err: err}
	}
	return nil
}

// Page is the page a script runs against.
type Page struct {
	URL   string
	Title string
}

// RunResult captures what a script did.
type RunResult struct {
	Value    string        // Completion value, empty when undefined or null
	Alerts   []string      // alert() messages in call order
	Logs     []string      // console.log lines in call order
	Duration time.Duration // Wall time spent running
}

// Runner executes scripts in a fresh sandbox per call.
type Runner struct {
	Timeout time.Duration
	Logger  *slog.Logger
}

// NewRunner creates a Runner. A non-positive timeout uses DefaultTimeout.
func NewRunner(timeout time.Duration, logger *slog.Logger) *Runner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{Timeout: timeout, Logger: logger}
}

// Run executes src against page and returns what it produced.
// The script is interrupted when ctx is done or the timeout expires.
func (r *Runner) Run(ctx context.Context, name, src string, page Page) (RunResult, error) {
	if err := ctx.Err(); err != nil {
		return RunResult{}, err
	}

	prog, err := goja.Compile(name, src, false)
	if err != nil {
		return RunResult{}, &SyntaxError{Name: name, Err: err}
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	vm := goja.New()
	sb := &sandbox{vm: vm}
	if err := sb.install(page); err != nil {
		return RunResult{}, fmt.Errorf("prepare sandbox: %w", err)
	}

	type outcome struct {
		val goja.Value
		err error
	}
	resultCh := make(chan outcome, 1)

	start := time.Now()
	go func() {
		val, err := vm.RunProgram(prog)
		resultCh <- outcome{val, err}
	}()

	var res outcome
	select {
	case <-ctx.Done():
		vm.Interrupt("timeout")
		// Wait for the interrupted run so the captured output is stable.
		<-resultCh
		r.logger().Debug("script interrupted", "name", name, "after", time.Since(start))
		result := sb.result(nil, time.Since(start))
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return result, fmt.Errorf("script %s: %w after %s", name, ErrTimeout, timeout)
		}
		return result, fmt.Errorf("script %s: %w", name, ctx.Err())
	case res = <-resultCh:
	}

	result := sb.result(res.val, time.Since(start))
	if res.err != nil {
		return result, fmt.Errorf("failed to run script %s: %w", name, res.err)
	}

	r.logger().Debug("script finished", "name", name, "alerts", len(result.Alerts),
		"logs", len(result.Logs), "duration", result.Duration)
	return result, nil
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

// sandbox is the minimal browser-like global environment.
type sandbox struct {
	vm     *goja.Runtime
	alerts []string
	logs   []string
}

func (s *sandbox) install(page Page) error {
	vm := s.vm

	location := vm.NewObject()
	if u, err := url.Parse(page.URL); err == nil && page.URL != "" {
		_ = location.Set("href", u.String())
		_ = location.Set("protocol", u.Scheme+":")
		_ = location.Set("host", u.Host)
		_ = location.Set("hostname", u.Hostname())
		_ = location.Set("pathname", u.EscapedPath())
		search := ""
		if u.RawQuery != "" {
			search = "?" + u.RawQuery
		}
		_ = location.Set("search", search)
	} else {
		_ = location.Set("href", page.URL)
	}

	document := vm.NewObject()
	_ = document.Set("title", page.Title)
	_ = document.Set("URL", page.URL)
	_ = document.Set("location", location)

	console := vm.NewObject()
	_ = console.Set("log", s.log)
	_ = console.Set("info", s.log)
	_ = console.Set("warn", s.log)
	_ = console.Set("error", s.log)

	for name, v := range map[string]any{
		"document": document,
		"location": location,
		"console":  console,
		"alert":    s.alert,
		"prompt":   s.prompt,
		"confirm":  s.confirm,
	} {
		if err := vm.Set(name, v); err != nil {
			return err
		}
	}
	return vm.Set("window", vm.GlobalObject())
}

func (s *sandbox) alert(call goja.FunctionCall) goja.Value {
	s.alerts = append(s.alerts, valueString(call.Argument(0)))
	return goja.Undefined()
}

func (s *sandbox) log(call goja.FunctionCall) goja.Value {
	parts := make([]string, 0, len(call.Arguments))
	for _, arg := range call.Arguments {
		parts = append(parts, arg.String())
	}
	s.logs = append(s.logs, strings.Join(parts, " "))
	return goja.Undefined()
}

// prompt answers with the default value, or null when there is none.
func (s *sandbox) prompt(call goja.FunctionCall) goja.Value {
	s.alerts = append(s.alerts, valueString(call.Argument(0)))
	def := call.Argument(1)
	if goja.IsUndefined(def) || goja.IsNull(def) {
		return goja.Null()
	}
	return s.vm.ToValue(def.String())
}

// confirm is always declined.
func (s *sandbox) confirm(call goja.FunctionCall) goja.Value {
	s.alerts = append(s.alerts, valueString(call.Argument(0)))
	return s.vm.ToValue(false)
}

func (s *sandbox) result(val goja.Value, d time.Duration) RunResult {
	return RunResult{
		Value:    valueString(val),
		Alerts:   s.alerts,
		Logs:     s.logs,
		Duration: d,
	}
}

func valueString(v goja.Value) string {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return ""
	}
	return v.String()
}
