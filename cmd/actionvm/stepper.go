package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"atomicgo.dev/keyboard"
	"atomicgo.dev/keyboard/keys"
	"github.com/deepnoodle-ai/actionvm/bytecode"
	"github.com/deepnoodle-ai/actionvm/dis"
	"github.com/deepnoodle-ai/actionvm/vm"
)

var errAborted = errors.New("aborted")

// stepper pauses before each program body, prints its listing and waits
// for a key.
type stepper struct {
	w           io.Writer
	readKey     func() (keys.Key, error)
	cancel      context.CancelFunc
	breakpoints *vm.Breakpoints
}

func newStepper(w io.Writer, readKey func() (keys.Key, error), cancel context.CancelFunc) *stepper {
	s := &stepper{w: w, readKey: readKey, cancel: cancel}
	s.breakpoints = &vm.Breakpoints{Pause: true, OnBreak: s.onBreak}
	return s
}

func (s *stepper) onBreak(ir *bytecode.IR) error {
	fmt.Fprintf(s.w, "%s\n", bold(ir.ID))
	if err := dis.Print(dis.Disassemble(ir), s.w); err != nil {
		return err
	}
	fmt.Fprintln(s.w, faint("enter: step  c: continue  q: quit"))
	for {
		key, err := s.readKey()
		if err != nil {
			return err
		}
		switch key.Code {
		case keys.Enter, keys.Space:
			return nil
		case keys.Escape, keys.CtrlC:
			return s.abort()
		case keys.RuneKey:
			switch string(key.Runes) {
			case "c":
				s.breakpoints.Pause = false
				return nil
			case "q":
				return s.abort()
			}
		}
	}
}

// abort stops the whole run, not only the paused body.
func (s *stepper) abort() error {
	if s.cancel != nil {
		s.cancel()
	}
	return errAborted
}

func readKey() (keys.Key, error) {
	var pressed keys.Key
	err := keyboard.Listen(func(key keys.Key) (bool, error) {
		pressed = key
		return true, nil
	})
	return pressed, err
}
