// Package monitor is an interactive terminal front panel for the emulator.
//
// The screen is split into a trace view, a register view and a status line.
// Keys:
//
//	s, space  step one instruction cycle
//	r         run until halt (at most RUN_LIMIT cycles)
//	R         reset and reload the program image
//	q, ^C     quit
package monitor

import (
	"fmt"

	"github.com/jroimartin/gocui"

	"github.com/ezrec/minicpu/emulator"
)

const (
	RUN_LIMIT = 100000 // Cycles per 'run' before control returns to the user.
)

// Monitor drives an emulator from gocui key bindings.
type Monitor struct {
	*emulator.Emulator

	started bool  // Set once the views exist and the emulator is reset.
	halted  bool  // Set once the emulator reports done.
	err     error // Last emulator error, shown in the status view.
}

// New creates a monitor for an emulator.
func New(emu *emulator.Emulator) *Monitor {
	return &Monitor{Emulator: emu}
}

// Run the monitor until the user quits.
func Run(emu *emulator.Emulator) (err error) {
	g, err := gocui.NewGui(gocui.OutputNormal)
	if err != nil {
		return
	}
	defer g.Close()

	mon := New(emu)
	g.SetManagerFunc(mon.layout)

	err = mon.keybindings(g)
	if err != nil {
		return
	}

	err = g.MainLoop()
	if err == gocui.ErrQuit {
		err = nil
	}

	return
}

// keybindings installs the global key handlers.
func (mon *Monitor) keybindings(g *gocui.Gui) (err error) {
	bindings := []struct {
		key     any
		handler func(*gocui.Gui, *gocui.View) error
	}{
		{gocui.KeyCtrlC, quit},
		{'q', quit},
		{'s', mon.step},
		{gocui.KeySpace, mon.step},
		{'r', mon.run},
		{'R', mon.reset},
	}

	for _, binding := range bindings {
		err = g.SetKeybinding("", binding.key, gocui.ModNone, binding.handler)
		if err != nil {
			return
		}
	}

	return
}

// layout places the trace, registers and status views.
func (mon *Monitor) layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()

	// up -> trace
	if v, err := g.SetView("trace", 0, 0, maxX-1, maxY-14); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Trace"
		v.Autoscroll = true
	}

	// middle -> register values
	if v, err := g.SetView("registers", 0, maxY-13, maxX-1, maxY-4); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Registers"
	}

	// down -> status
	if v, err := g.SetView("status", 0, maxY-3, maxX-1, maxY-1); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Status"
	}

	if !mon.started {
		mon.started = true
		return mon.reset(g, nil)
	}

	return nil
}

// reset the emulator, tracing into the trace view.
func (mon *Monitor) reset(g *gocui.Gui, _ *gocui.View) error {
	v, err := g.View("trace")
	if err != nil {
		return err
	}
	v.Clear()

	mon.Emulator.Trace = v
	mon.halted = false
	mon.err = mon.Emulator.Reset()

	return mon.refresh(g)
}

// step a single instruction cycle.
func (mon *Monitor) step(g *gocui.Gui, _ *gocui.View) error {
	mon.Step()
	return mon.refresh(g)
}

// run until halt, or RUN_LIMIT cycles.
func (mon *Monitor) run(g *gocui.Gui, _ *gocui.View) error {
	for range RUN_LIMIT {
		if !mon.Step() {
			break
		}
	}
	return mon.refresh(g)
}

// Step advances the emulator one cycle, and returns false once it can
// go no further.
func (mon *Monitor) Step() bool {
	if mon.halted || mon.err != nil {
		return false
	}

	mon.halted, mon.err = mon.Emulator.Tick()
	if mon.halted && mon.err == nil {
		mon.err = mon.Emulator.Final()
	}

	return !mon.halted && mon.err == nil
}

// refresh redraws the registers and status views.
func (mon *Monitor) refresh(g *gocui.Gui) error {
	regs, err := g.View("registers")
	if err != nil {
		return err
	}
	regs.Clear()
	fmt.Fprint(regs, mon.Emulator.Cpu.String())

	status, err := g.View("status")
	if err != nil {
		return err
	}
	status.Clear()
	fmt.Fprint(status, mon.Status())

	return nil
}

// Status returns the one line machine status.
func (mon *Monitor) Status() string {
	emu := mon.Emulator

	state := "ready"
	switch {
	case mon.err != nil:
		state = mon.err.Error()
	case mon.halted:
		state = "halted"
	}

	text := fmt.Sprintf("pc %#05x  cycles %d  next: %v  [%v]", emu.Pc(), emu.Cycles(), emu.Code(), state)
	if line := emu.LineNo(); line != 0 {
		text += fmt.Sprintf("  line %d", line)
	}

	return text
}

func quit(g *gocui.Gui, v *gocui.View) error {
	return gocui.ErrQuit
}
