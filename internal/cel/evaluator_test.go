package cel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateRules(t *testing.T) {
	e, err := NewEvaluator([]Rule{
		{Param: "GRUB_CMDLINE_LINUX", Severity: 2, Message: "nomodeset everywhere is heavy-handed",
			When: `vals["GRUB_CMDLINE_LINUX"].contains("nomodeset")`},
		{Param: "GRUB_ENABLE_CRYPTODISK", Severity: 3, Message: "LUKS found but cryptodisk off",
			When: `disk["luks"] && vals["GRUB_ENABLE_CRYPTODISK"] != "true"`},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, e.Len())

	hits, errs := e.Evaluate(
		map[string]string{"GRUB_CMDLINE_LINUX": `"nomodeset"`, "GRUB_ENABLE_CRYPTODISK": "false"},
		map[string]bool{"luks": true},
	)
	assert.Empty(t, errs)
	assert.Equal(t, []Hit{
		{Param: "GRUB_CMDLINE_LINUX", Severity: 2, Message: "nomodeset everywhere is heavy-handed"},
		{Param: "GRUB_ENABLE_CRYPTODISK", Severity: 3, Message: "LUKS found but cryptodisk off"},
	}, hits)
}

func TestEvaluateMissingKeyIsReportedNotFatal(t *testing.T) {
	e, err := NewEvaluator([]Rule{
		{Param: "GRUB_X", Severity: 1, Message: "m", When: `vals["GRUB_NOT_THERE"] == "1"`},
	})
	require.NoError(t, err)

	hits, errs := e.Evaluate(map[string]string{}, map[string]bool{})
	assert.Empty(t, hits)
	assert.Len(t, errs, 1)
}

func TestNewEvaluatorRejectsBadRules(t *testing.T) {
	tests := []struct {
		name string
		when string
	}{
		{name: "syntax", when: `vals[`},
		{name: "not bool", when: `vals["GRUB_TIMEOUT"]`},
		{name: "unknown variable", when: `foo == 1`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEvaluator([]Rule{{Param: "GRUB_X", Severity: 1, Message: "m", When: tt.when}})
			assert.Error(t, err)
		})
	}
}
