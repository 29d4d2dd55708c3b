package cmd

import (
	"github.com/spf13/pflag"

	"github.com/oakwood-commons/grub-wiz/internal/menuentries"
)

// discoveryFlag is the --discovery value. Unset means "use the config".
type discoveryFlag struct {
	mode menuentries.Mode
}

var _ pflag.Value = (*discoveryFlag)(nil)

func (f *discoveryFlag) String() string { return string(f.mode) }

func (f *discoveryFlag) Set(s string) error {
	m, err := menuentries.ParseMode(s)
	if err != nil {
		return err
	}
	f.mode = m
	return nil
}

func (f *discoveryFlag) Type() string { return "enable|disable|show" }
