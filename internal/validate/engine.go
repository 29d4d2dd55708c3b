// Package validate produces advisory warnings about a set of parameter
// values. It never rejects values; edit-time checks live in session.
package validate

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-logr/logr"

	"github.com/oakwood-commons/grub-wiz/internal/catalog"
	"github.com/oakwood-commons/grub-wiz/internal/cel"
)

// Warning is one finding. Severity runs 1 (advisory) to 4 (critical).
type Warning struct {
	Param    string
	Severity int
	Message  string
}

// Key is the composite id the visibility store hides warnings by.
func (w Warning) Key() string { return w.Param + " " + w.Message }

// Stars renders the severity as one to four asterisks.
func (w Warning) Stars() string { return Stars(w.Severity) }

// Stars renders a severity.
func Stars(severity int) string {
	if severity < 1 {
		return ""
	}
	if severity > 4 {
		severity = 4
	}
	return strings.Repeat("*", severity)
}

// Warnings maps a parameter to its findings in the order rules fired.
type Warnings map[string][]Warning

func (ws Warnings) add(param string, severity int, message string) {
	ws[param] = append(ws[param], Warning{Param: param, Severity: severity, Message: message})
}

// Keys returns the composite id of every warning.
func (ws Warnings) Keys() map[string]bool {
	out := map[string]bool{}
	for _, list := range ws {
		for _, w := range list {
			out[w.Key()] = true
		}
	}
	return out
}

// Count is the total number of warnings.
func (ws Warnings) Count() int {
	n := 0
	for _, list := range ws {
		n += len(list)
	}
	return n
}

// Engine evaluates rules. It probes the disk once, lazily, and keeps the
// result for its lifetime; build a new Engine to re-probe.
type Engine struct {
	cat      *catalog.Catalog
	prober   Prober
	resolver PathResolver
	custom   *cel.Evaluator
	log      logr.Logger

	signals *DiskSignals
}

// Option configures an Engine.
type Option func(*Engine)

// WithProber replaces the disk prober.
func WithProber(p Prober) Option { return func(e *Engine) { e.prober = p } }

// WithResolver replaces the asset path resolver.
func WithResolver(r PathResolver) Option { return func(e *Engine) { e.resolver = r } }

// WithCustomRules adds compiled user rules.
func WithCustomRules(ev *cel.Evaluator) Option { return func(e *Engine) { e.custom = ev } }

// WithLogger sets the logger.
func WithLogger(l logr.Logger) Option { return func(e *Engine) { e.log = l } }

// New returns an engine over cat.
func New(cat *catalog.Catalog, opts ...Option) *Engine {
	e := &Engine{
		cat:      cat,
		resolver: DefaultResolver(),
		log:      logr.Discard(),
	}
	for _, o := range opts {
		o(e)
	}
	if e.prober == nil {
		e.prober = NewCommandProber(e.log)
	}
	return e
}

// Signals returns the disk signals, probing on first use.
func (e *Engine) Signals(ctx context.Context) DiskSignals {
	if e.signals == nil {
		sig := e.prober.Probe(ctx)
		e.signals = &sig
		e.log.V(1).Info("disk probe", "other_os", sig.HasOtherOS, "luks", sig.IsLuksActive, "lvm", sig.IsLvmActive)
	}
	return *e.signals
}

// AllKeys is the set of warning ids the engine produces for vals right now.
func (e *Engine) AllKeys(ctx context.Context, vals map[string]string) map[string]bool {
	return e.Warnings(ctx, vals).Keys()
}

// quotes lists the literal forms a simple value may take in the file.
func quotes(v string) [3]string {
	return [3]string{v, `"` + v + `"`, "'" + v + "'"}
}

func isOneOf(value, want string) bool {
	for _, q := range quotes(want) {
		if value == q {
			return true
		}
	}
	return false
}

// unquote drops a leading quote and every trailing copy of the same quote.
func unquote(v string) string {
	if v == "" {
		return v
	}
	switch v[0] {
	case '\'', '"':
		return strings.TrimRight(v[1:], v[:1])
	}
	return v
}

func sh(name string) string { return catalog.ShortName(name) }

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Parameter names the built-in rules read.
const (
	pDefault         = "GRUB_DEFAULT"
	pSaveDefault     = "GRUB_SAVEDEFAULT"
	pTimeout         = "GRUB_TIMEOUT"
	pTimeoutStyle    = "GRUB_TIMEOUT_STYLE"
	pRecordfail      = "GRUB_RECORDFAIL_TIMEOUT"
	pCmdlineDefault  = "GRUB_CMDLINE_LINUX_DEFAULT"
	pCmdline         = "GRUB_CMDLINE_LINUX"
	pCmdlineRecovery = "GRUB_CMDLINE_LINUX_RECOVERY"
	pDisableRecovery = "GRUB_DISABLE_RECOVERY"
	pCryptodisk      = "GRUB_ENABLE_CRYPTODISK"
	pDisableUUID     = "GRUB_DISABLE_LINUX_UUID"
	pDisablePartUUID = "GRUB_DISABLE_LINUX_PARTUUID"
	pTerminalInput   = "GRUB_TERMINAL_INPUT"
	pTerminalOutput  = "GRUB_TERMINAL_OUTPUT"
	pSerialCommand   = "GRUB_SERIAL_COMMAND"
	pBackground      = "GRUB_BACKGROUND"
	pTheme           = "GRUB_THEME"
	pGfxmode         = "GRUB_GFXMODE"
	pDistributor     = "GRUB_DISTRIBUTOR"
	pDisableOSProber = "GRUB_DISABLE_OS_PROBER"
)

var timeoutCeilings = []struct {
	param string
	limit int
}{
	{pTimeout, 60},
	{pRecordfail, 120},
}

var safeGfxModes = map[string]bool{
	"640x480": true, "800x600": true, "1024x768": true, "auto": true, "keep": true,
}

// Warnings runs every rule against vals. It is deterministic for a given
// engine: the disk signals are fixed after the first call.
func (e *Engine) Warnings(ctx context.Context, vals map[string]string) Warnings {
	ws := Warnings{}
	disk := e.Signals(ctx)
	get := func(name, fallback string) string {
		if v, ok := vals[name]; ok {
			return v
		}
		return fallback
	}

	e.crossParam(ws, get)
	e.timeoutStyle(ws, get)
	e.kernelArgs(ws, get, disk)
	e.recoveryAndUUID(ws, get)
	e.terminals(ws, get)
	e.quoting(ws, vals)
	e.assets(ws, get)
	e.appearance(ws, get)
	e.osProber(ws, get, disk)
	e.enumMembership(ws, vals)
	e.ceilings(ws, get)
	e.customRules(ws, vals, disk)
	return ws
}

type getter func(name, fallback string) string

func (e *Engine) crossParam(ws Warnings, get getter) {
	if isOneOf(get(pDefault, "0"), "saved") && !isOneOf(get(pSaveDefault, ""), "true") {
		ws.add(pSaveDefault, 4, fmt.Sprintf("must be true since %s is saved", sh(pDefault)))
	}
	if isOneOf(get(pSaveDefault, ""), "true") && isDigits(unquote(get(pDefault, "0"))) {
		ws.add(pDefault, 1, fmt.Sprintf(`avoid numeric when %s="true"`, sh(pSaveDefault)))
	}
}

func (e *Engine) timeoutStyle(ws Warnings, get getter) {
	timeout := get(pTimeout, "0")
	style := get(pTimeoutStyle, "")
	if (isOneOf(timeout, "0") || isOneOf(timeout, "0.0")) && isOneOf(style, "hidden") {
		ws.add(pTimeout, 4, fmt.Sprintf(`should be positive int when %s="hidden"`, sh(pTimeoutStyle)))
	}
	if f, err := strconv.ParseFloat(unquote(timeout), 64); err == nil && f > 0 && !isOneOf(style, "menu") {
		ws.add(pTimeoutStyle, 4, fmt.Sprintf(`should be "menu" when %s > 0`, sh(pTimeout)))
	}
}

func (e *Engine) kernelArgs(ws Warnings, get getter, disk DiskSignals) {
	cmdline := get(pCmdline, "")
	for _, flag := range []string{"quiet", "splash"} {
		if strings.Contains(cmdline, flag) {
			ws.add(pCmdline, 3, fmt.Sprintf(`"%s" belongs only in %s`, flag, sh(pCmdlineDefault)))
		}
	}
	if disk.IsLuksActive && !strings.Contains(cmdline, "rd.luks.uuid=") {
		ws.add(pCmdline, 3, `no "rd.luks.uuid=" but LUKS seems active`)
	}
	if disk.IsLvmActive && !strings.Contains(cmdline, "rd.lvm.vg=") {
		ws.add(pCmdline, 3, `no "rd.lvm.vg=" but LVM seems active`)
	}
	if isOneOf(get(pCryptodisk, ""), "true") && !disk.IsLuksActive {
		ws.add(pCryptodisk, 1, "enabled but no LUKS encryption detected")
	}
}

func (e *Engine) recoveryAndUUID(ws Warnings, get getter) {
	if get(pCmdlineRecovery, "") != "" && isOneOf(get(pDisableRecovery, ""), "true") {
		ws.add(pCmdlineRecovery, 2, fmt.Sprintf(`set but %s="true" disables recovery mode`, sh(pDisableRecovery)))
	}
	if isOneOf(get(pDisableUUID, ""), "true") && isOneOf(get(pDisablePartUUID, ""), "true") {
		ws.add(pDisableUUID, 2, "using device names for everything is fragile")
		ws.add(pDisablePartUUID, 2, "using device names for everything is fragile")
	}
}

func (e *Engine) terminals(ws Warnings, get getter) {
	in := unquote(get(pTerminalInput, "console"))
	out := unquote(get(pTerminalOutput, ""))
	hasSerial := strings.Contains(in, "serial") || strings.Contains(out, "serial")
	if out != "" && in != out && hasSerial {
		ws.add(pTerminalInput, 2, fmt.Sprintf(`"%s" but %s="%s" (should match)`, in, sh(pTerminalOutput), out))
	}
	serialCmd := get(pSerialCommand, "")
	if serialCmd != "" && !hasSerial {
		ws.add(pSerialCommand, 2, "set but no serial terminal configured")
	}
	if hasSerial && serialCmd == "" {
		target := pTerminalOutput
		if strings.Contains(in, "serial") {
			target = pTerminalInput
		}
		ws.add(target, 2, fmt.Sprintf("serial terminal needs %s set", sh(pSerialCommand)))
	}
}

func (e *Engine) quoting(ws Warnings, vals map[string]string) {
	for _, p := range []string{pCmdline, pCmdlineDefault} {
		v, ok := vals[p]
		if !ok || !strings.ContainsAny(v, " \t") {
			continue
		}
		if u := unquote(v); v != `"`+u+`"` && v != "'"+u+"'" {
			ws.add(p, 2, "has spaces and thus must be quoted")
		}
	}
}

func (e *Engine) assets(ws Warnings, get getter) {
	for _, p := range []string{pBackground, pTheme} {
		v := get(p, "")
		if v == "" {
			continue
		}
		if ok, _ := e.resolver.Resolve(v); !ok {
			ws.add(p, 2, "path does not seem to exist")
		}
	}
}

func (e *Engine) appearance(ws Warnings, get getter) {
	if v := get(pGfxmode, ""); v != "" {
		for _, m := range strings.Split(unquote(v), ",") {
			if !safeGfxModes[strings.ToLower(strings.TrimSpace(m))] {
				ws.add(pGfxmode, 1, "perhaps unsupported; stick to common values")
				break
			}
		}
	}
	dist := get(pDistributor, "")
	shellSub := strings.HasPrefix(dist, "$(") || strings.HasPrefix(dist, "`")
	if !shellSub && strings.TrimSpace(unquote(dist)) == "" {
		ws.add(pDistributor, 2, "should be distro name (it is missing/empty)")
	}
}

func (e *Engine) osProber(ws Warnings, get getter, disk DiskSignals) {
	disabled := isOneOf(get(pDisableOSProber, ""), "true")
	switch {
	case disabled && disk.HasOtherOS:
		ws.add(pDisableOSProber, 2, `suggest setting "false" since multi-boot detected`)
	case !disabled && !disk.HasOtherOS:
		ws.add(pDisableOSProber, 1, `perhaps set "true" since no multi-boot detected?`)
	}
}

// enumMembership checks parameters that are cycled, not typed. A catalog
// check key outside regex/min/max is a schema bug and panics.
func (e *Engine) enumMembership(ws Warnings, vals map[string]string) {
	for _, name := range e.cat.Names() {
		p := e.cat.MustGet(name)
		for _, c := range p.Checks {
			switch c.Key {
			case catalog.CheckRegex, catalog.CheckMin, catalog.CheckMax:
			default:
				panic(fmt.Sprintf("validate: %s has unknown check key %q", name, c.Key))
			}
		}
		v, ok := vals[name]
		if !ok || !p.HasEnums() || p.HasPattern() {
			continue
		}
		want := unquote(v)
		found := false
		for _, choice := range p.Choices {
			if unquote(choice.Value) == want {
				found = true
				break
			}
		}
		if !found {
			ws.add(name, 3, "value not in list of allowed values")
		}
	}
}

func (e *Engine) ceilings(ws Warnings, get getter) {
	for _, c := range timeoutCeilings {
		v := unquote(get(c.param, ""))
		if !isDigits(v) {
			continue
		}
		if n, err := strconv.Atoi(v); err == nil && n > c.limit {
			ws.add(c.param, 1, fmt.Sprintf("over %ds seems ill advised", c.limit))
		}
	}
}

func (e *Engine) customRules(ws Warnings, vals map[string]string, disk DiskSignals) {
	if e.custom == nil || e.custom.Len() == 0 {
		return
	}
	hits, errs := e.custom.Evaluate(vals, disk.AsMap())
	for _, err := range errs {
		e.log.V(1).Info("custom rule skipped", "error", err.Error())
	}
	for _, h := range hits {
		ws.add(h.Param, h.Severity, h.Message)
	}
}
