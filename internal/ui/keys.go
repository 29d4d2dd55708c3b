package ui

import (
	"fmt"
	"strings"
)

// Action is what a key press asks for. Screens decide whether it applies.
type Action string

const (
	ActionNone          Action = ""
	ActionUp            Action = "up"
	ActionDown          Action = "down"
	ActionPageUp        Action = "page_up"
	ActionPageDown      Action = "page_down"
	ActionTop           Action = "top"
	ActionBottom        Action = "bottom"
	ActionCycle         Action = "cycle"
	ActionCyclePrev     Action = "cycle_prev"
	ActionEdit          Action = "edit"
	ActionExpertEdit    Action = "expert_edit"
	ActionUndo          Action = "undo"
	ActionGuide         Action = "guide"
	ActionWrite         Action = "write"
	ActionRestoreScreen Action = "restore_screen"
	ActionRestore       Action = "restore"
	ActionDelete        Action = "delete"
	ActionHide          Action = "hide"
	ActionShowHidden    Action = "show_hidden"
	ActionHelp          Action = "help"
	ActionBack          Action = "back"
	ActionQuit          Action = "quit"
	ActionTerminate     Action = "terminate"
)

// KeyBindings maps key strings, as reported by bubbletea, to actions.
var KeyBindings = map[string]Action{
	"up":     ActionUp,
	"k":      ActionUp,
	"down":   ActionDown,
	"j":      ActionDown,
	"pgup":   ActionPageUp,
	"pgdown": ActionPageDown,
	"home":   ActionTop,
	"end":    ActionBottom,
	"c":      ActionCycle,
	" ":      ActionCycle,
	"space":  ActionCycle,
	"C":      ActionCyclePrev,
	"e":      ActionEdit,
	"E":      ActionExpertEdit,
	"u":      ActionUndo,
	"g":      ActionGuide,
	"w":      ActionWrite,
	"R":      ActionRestoreScreen,
	"r":      ActionRestore,
	"d":      ActionDelete,
	"x":      ActionHide,
	"s":      ActionShowHidden,
	"?":      ActionHelp,
	"esc":    ActionBack,
	"q":      ActionQuit,
	"ctrl+c": ActionTerminate,
}

// ActionFor resolves a key string.
func ActionFor(key string) Action {
	return KeyBindings[key]
}

type helpRow struct {
	keys string
	desc string
}

var helpSections = []struct {
	title string
	rows  []helpRow
}{
	{"Everywhere", []helpRow{
		{"↑/↓ j/k", "move between selectable rows"},
		{"PgUp/PgDn Home/End", "page or jump"},
		{"?", "this help screen"},
		{"ESC", "back to the previous screen"},
		{"q", "back; on the main screen, quit"},
		{"ctrl+c", "quit at once (hidden items are still saved)"},
	}},
	{"Main screen", []helpRow{
		{"c / space", "cycle the value to the next choice"},
		{"C", "cycle the value to the previous choice"},
		{"e", "edit the value (checked against its pattern)"},
		{"E", "expert edit: any single shell word, no pattern (--expert)"},
		{"u", "undo the change to the selected parameter"},
		{"g", "guidance toggle"},
		{"x", "hide or unhide the selected parameter"},
		{"s", "show or conceal hidden parameters"},
		{"w", "review, then write and run the grub update"},
		{"R", "enter the restore screen"},
	}},
	{"Review screen", []helpRow{
		{"c C e E u", "as on the main screen, for the selected parameter"},
		{"x", "hide or unhide the selected warning"},
		{"s", "show or conceal hidden warnings"},
		{"w", "write out current contents and run the grub update"},
	}},
	{"Restore screen", []helpRow{
		{"r", "restore the selected backup and run the grub update"},
		{"d", "delete the selected backup"},
	}},
}

// helpMarkdown renders the key reference as the small markdown dialect
// renderHelpMarkdown understands.
func helpMarkdown(expert bool) string {
	var b strings.Builder
	for i, sec := range helpSections {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "## %s\n", sec.title)
		for _, r := range sec.rows {
			if r.keys == "E" && !expert {
				continue
			}
			fmt.Fprintf(&b, "- **%s** %s\n", r.keys, r.desc)
		}
	}
	b.WriteString("\n## Warnings\n")
	b.WriteString("Stars show severity: * advisory up to **** critical. ")
	b.WriteString("Hidden warnings stay hidden across sessions until unhidden.\n")
	return b.String()
}
