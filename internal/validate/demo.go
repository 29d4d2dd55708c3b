package validate

import (
	"context"
	"fmt"
	"io"
	"sort"
)

// Scenario is a named set of overrides applied on top of the defaults.
type Scenario struct {
	Title     string
	Overrides map[string]string
}

// DemoScenarios is the fixed battery printed by --validator-demo.
var DemoScenarios = []Scenario{
	{"DEFAULT=saved without SAVEDEFAULT=true", map[string]string{pDefault: "saved", pSaveDefault: "false"}},
	{"TIMEOUT=0 with TIMEOUT_STYLE=hidden", map[string]string{pTimeout: "0", pTimeoutStyle: "hidden"}},
	{"SAVEDEFAULT=true with numeric DEFAULT", map[string]string{pSaveDefault: "true", pDefault: "2"}},
	{"quiet/splash in CMDLINE_LINUX (recovery)", map[string]string{pCmdline: `"quiet splash"`}},
	{"Invalid boolean value", map[string]string{pSaveDefault: "maybe"}},
	{"TIMEOUT=5 with TIMEOUT_STYLE=countdown", map[string]string{pTimeout: "5", pTimeoutStyle: "countdown"}},
	{"TIMEOUT=500 being excessive", map[string]string{pTimeout: "500"}},
	{"Nonexistent background path", map[string]string{pBackground: "/nonexistent/image.png"}},
	{"Recovery cmdline but recovery disabled", map[string]string{pCmdlineRecovery: `"nomodeset"`, pDisableRecovery: "true"}},
	{"Both UUID types disabled (fragile)", map[string]string{pDisableUUID: "true", pDisablePartUUID: "true"}},
	{"Terminal I/O mismatch", map[string]string{pTerminalInput: "serial", pTerminalOutput: "console"}},
	{"Serial terminal without SERIAL_COMMAND", map[string]string{pTerminalInput: "serial"}},
	{"SERIAL_COMMAND without serial terminal", map[string]string{pSerialCommand: `"serial --unit=0 --speed=115200"`}},
	{"Invalid VIDEO_BACKEND value", map[string]string{"GRUB_VIDEO_BACKEND": "invalid_backend"}},
	{"Clean config - no issues", map[string]string{}},
}

// Demo runs every scenario against defaults and prints the findings.
func (e *Engine) Demo(ctx context.Context, w io.Writer, defaults map[string]string) error {
	for _, sc := range DemoScenarios {
		vals := make(map[string]string, len(defaults))
		for k, v := range defaults {
			vals[k] = v
		}
		for k, v := range sc.Overrides {
			vals[k] = v
		}
		if _, err := fmt.Fprintf(w, "\n%s\n", sc.Title); err != nil {
			return err
		}
		if err := e.Print(w, e.Warnings(ctx, vals)); err != nil {
			return err
		}
	}
	return nil
}

// Print writes warnings one per line, parameters in catalog order.
func (e *Engine) Print(w io.Writer, ws Warnings) error {
	if ws.Count() == 0 {
		_, err := fmt.Fprintln(w, "  (no warnings)")
		return err
	}
	for _, name := range e.Ordered(ws) {
		for _, warn := range ws[name] {
			if _, err := fmt.Fprintf(w, "%30s %4s %s\n", name, warn.Stars(), warn.Message); err != nil {
				return err
			}
		}
	}
	return nil
}

// Ordered lists the parameters of ws in catalog order, then any others
// (from user rules naming unknown parameters) sorted by name.
func (e *Engine) Ordered(ws Warnings) []string {
	var out []string
	seen := map[string]bool{}
	for _, name := range e.cat.Names() {
		if len(ws[name]) > 0 {
			out = append(out, name)
			seen[name] = true
		}
	}
	var extra []string
	for name := range ws {
		if !seen[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}
