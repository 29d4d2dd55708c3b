package validate

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/go-logr/logr"
)

// DiskSignals summarizes the disk and firmware layout for the rules that
// depend on it.
type DiskSignals struct {
	HasOtherOS   bool
	IsLuksActive bool
	IsLvmActive  bool
}

// AsMap exposes the signals to user rules as disk["other_os"] etc.
func (d DiskSignals) AsMap() map[string]bool {
	return map[string]bool{
		"other_os": d.HasOtherOS,
		"luks":     d.IsLuksActive,
		"lvm":      d.IsLvmActive,
	}
}

// Prober computes disk signals. Implementations must not fail: on any error
// they report every signal false.
type Prober interface {
	Probe(ctx context.Context) DiskSignals
}

// StaticProber returns fixed signals.
type StaticProber DiskSignals

// Probe implements Prober.
func (s StaticProber) Probe(context.Context) DiskSignals { return DiskSignals(s) }

// Runner executes a command and returns its stdout.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

const (
	windowsRecoveryGUID = "de94bba4-06d9-4d40-a16a-bfd50179d6ac"
	linuxLVMGUID        = "e6d6d379-f507-44c2-a23c-238f2a3df928"
)

// CommandProber inspects the machine with lsblk and, when lsblk finds no
// other OS, efibootmgr.
type CommandProber struct {
	Run     Runner
	Timeout time.Duration
	Log     logr.Logger
}

// NewCommandProber returns a prober running real subprocesses.
func NewCommandProber(log logr.Logger) *CommandProber {
	return &CommandProber{Run: execRunner, Timeout: 5 * time.Second, Log: log}
}

type lsblkOutput struct {
	BlockDevices []lsblkDevice `json:"blockdevices"`
}

type lsblkDevice struct {
	FSType   string        `json:"fstype"`
	PartType string        `json:"parttype"`
	Children []lsblkDevice `json:"children"`
}

// Probe implements Prober.
func (p *CommandProber) Probe(ctx context.Context) DiskSignals {
	var sig DiskSignals
	if err := p.scanPartitions(ctx, &sig); err != nil {
		p.Log.V(1).Info("lsblk probe failed", "error", err.Error())
		sig = DiskSignals{}
	}
	if !sig.HasOtherOS {
		n, err := p.activeBootEntries(ctx)
		if err != nil {
			p.Log.V(1).Info("efibootmgr probe failed", "error", err.Error())
		} else if n >= 2 {
			sig.HasOtherOS = true
		}
	}
	return sig
}

func (p *CommandProber) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	run := p.Run
	if run == nil {
		run = execRunner
	}
	return run(ctx, name, args...)
}

func (p *CommandProber) scanPartitions(ctx context.Context, sig *DiskSignals) error {
	out, err := p.run(ctx, "lsblk", "-o", "FSTYPE,PARTTYPE", "-J")
	if err != nil {
		return fmt.Errorf("lsblk: %w", err)
	}
	var doc lsblkOutput
	if err := json.Unmarshal(out, &doc); err != nil {
		return fmt.Errorf("lsblk output: %w", err)
	}
	for _, dev := range doc.BlockDevices {
		for _, part := range dev.Children {
			classify(part, sig)
		}
	}
	return nil
}

func classify(part lsblkDevice, sig *DiskSignals) {
	fstype := strings.ToLower(part.FSType)
	parttype := strings.ToLower(part.PartType)
	switch fstype {
	case "ntfs", "vfat", "fat32", "exfat":
		sig.HasOtherOS = true
	case "crypto_luks", "crypto_luks2":
		sig.IsLuksActive = true
	case "lvm2_member":
		sig.IsLvmActive = true
	}
	if strings.Contains(parttype, windowsRecoveryGUID) {
		sig.HasOtherOS = true
	}
	if strings.Contains(parttype, linuxLVMGUID) {
		sig.IsLvmActive = true
	}
}

func (p *CommandProber) activeBootEntries(ctx context.Context) (int, error) {
	out, err := p.run(ctx, "efibootmgr")
	if err != nil {
		return 0, fmt.Errorf("efibootmgr: %w", err)
	}
	n := 0
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, "Boot") && strings.Contains(line, "*") {
			n++
		}
	}
	return n, nil
}
