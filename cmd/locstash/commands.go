package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tidwall/pretty"

	"locstash/internal/locdb"
)

var errUsage = errors.New(`usage: locstash [flags] command [args]
commands:
  list [-json]            show stored locos
  add ADDR [F0 .. F4]     add a loco or replace its function assignment
  remove ADDR             remove a loco
  sort                    order locos by address
  next | prev             select the next or previous loco
  speed DELTA             throttle the selected loco, 0 stops
  steps 14|28|128         decoder steps of the selected loco
  fn NUMBER               toggle a function of the selected loco
  option [NAME on|off]    show or set an option
  bus [ADDR]              show or set the XpressNet address
  format                  reset to a single default loco
  erase                   erase the store file`)

type command func(s *locdb.Store, args []string, w io.Writer) error

var commands = map[string]command{
	"list":   cmdList,
	"add":    cmdAdd,
	"remove": cmdRemove,
	"sort":   cmdSort,
	"next":   cmdMove(1),
	"prev":   cmdMove(-1),
	"speed":  cmdSpeed,
	"steps":  cmdSteps,
	"fn":     cmdFunction,
	"option": cmdOption,
	"bus":    cmdBus,
	"format": cmdFormat,
}

func run(s *locdb.Store, args []string, w io.Writer) error {
	if len(args) == 0 {
		return cmdList(s, nil, w)
	}
	cmd, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("unknown command %q\n%w", args[0], errUsage)
	}
	return cmd(s, args[1:], w)
}

func printCurrent(s *locdb.Store, w io.Writer) error {
	_, err := fmt.Fprintf(w, "%d/%d %s\n", s.Position(), s.Count(), s.Current())
	return err
}

func cmdList(s *locdb.Store, args []string, w io.Writer) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	asJSON := fs.Bool("json", false, "json output")
	if err := fs.Parse(args); err != nil {
		return err
	}

	recs, err := s.Records()
	if err != nil {
		return err
	}
	if *asJSON {
		data, err := json.Marshal(struct {
			Selected int            `json:"selected"`
			Max      int            `json:"max"`
			Locos    []locdb.Record `json:"locos"`
		}{s.Selected(), s.MaxRecords(), recs})
		if err != nil {
			return err
		}
		_, err = w.Write(pretty.Pretty(data))
		return err
	}

	selected := s.Selected()
	for i, rec := range recs {
		mark := " "
		if i == selected {
			mark = "*"
		}
		if _, err = fmt.Fprintf(w, "%s %3d %s\n", mark, i+1, rec); err != nil {
			return err
		}
	}
	return nil
}

func parseAddress(arg string) (uint16, error) {
	a, err := strconv.ParseUint(arg, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("address %q: %w", arg, err)
	}
	return uint16(a), nil
}

func cmdAdd(s *locdb.Store, args []string, w io.Writer) error {
	if len(args) != 1 && len(args) != 1+locdb.FunctionSlots {
		return errUsage
	}
	addr, err := parseAddress(args[0])
	if err != nil {
		return err
	}
	assignment := locdb.DefaultAssignment()
	for i, arg := range args[1:] {
		n, err := strconv.ParseUint(arg, 10, 8)
		if err != nil || n > locdb.MaxFunction {
			return fmt.Errorf("function %q must be in [0,%d]", arg, locdb.MaxFunction)
		}
		assignment[i] = uint8(n)
	}
	if err = s.Upsert(addr, assignment); err != nil {
		return err
	}
	return printCurrent(s, w)
}

func cmdRemove(s *locdb.Store, args []string, w io.Writer) error {
	if len(args) != 1 {
		return errUsage
	}
	addr, err := parseAddress(args[0])
	if err != nil {
		return err
	}
	if _, err = s.FindByKey(addr); err != nil {
		return fmt.Errorf("remove %d: %w", addr, err)
	}
	if err = s.Remove(addr); err != nil {
		return err
	}
	return printCurrent(s, w)
}

func cmdSort(s *locdb.Store, _ []string, w io.Writer) error {
	if err := s.Sort(); err != nil {
		return err
	}
	return cmdList(s, nil, w)
}

func cmdMove(delta int) command {
	return func(s *locdb.Store, _ []string, w io.Writer) error {
		if _, err := s.Move(delta); err != nil {
			return err
		}
		return printCurrent(s, w)
	}
}

func cmdSpeed(s *locdb.Store, args []string, w io.Writer) error {
	if len(args) != 1 {
		return errUsage
	}
	delta, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("delta %q: %w", args[0], err)
	}
	adjusted, err := s.AdjustSpeed(delta)
	if err != nil {
		return err
	}
	if !adjusted {
		if _, err = fmt.Fprintf(w, "speed limited to %d\n", s.Steps().MaxSpeed()); err != nil {
			return err
		}
	}
	return printCurrent(s, w)
}

func cmdSteps(s *locdb.Store, args []string, w io.Writer) error {
	if len(args) != 1 {
		return errUsage
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return errUsage
	}
	steps, err := locdb.ParseSteps(n)
	if err != nil {
		return err
	}
	if err = s.SetSteps(steps); err != nil {
		return err
	}
	return printCurrent(s, w)
}

func cmdFunction(s *locdb.Store, args []string, w io.Writer) error {
	if len(args) != 1 {
		return errUsage
	}
	n, err := strconv.ParseUint(args[0], 10, 8)
	if err != nil {
		return fmt.Errorf("function %q: %w", args[0], err)
	}
	state, err := s.ToggleFunction(uint8(n))
	if err != nil {
		return err
	}
	if state == locdb.FunctionInvalid {
		return fmt.Errorf("function %d must be in [0,%d]", n, locdb.MaxFunction)
	}
	_, err = fmt.Fprintf(w, "F%d %s\n", n, state)
	return err
}

func cmdOption(s *locdb.Store, args []string, w io.Writer) error {
	switch len(args) {
	case 0:
		for _, o := range locdb.Options() {
			on, err := s.Option(o)
			if err != nil {
				return err
			}
			if _, err = fmt.Fprintf(w, "%-12s %v\n", o, on); err != nil {
				return err
			}
		}
		return nil
	case 2:
		var opt locdb.Option
		for _, o := range locdb.Options() {
			if strings.EqualFold(o.String(), args[0]) {
				opt = o
			}
		}
		on, err := parseOnOff(args[1])
		if err != nil {
			return err
		}
		if err = s.SetOption(opt, on); err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%-12s %v\n", opt, on)
		return err
	}
	return errUsage
}

func parseOnOff(arg string) (bool, error) {
	switch strings.ToLower(arg) {
	case "on", "1", "true":
		return true, nil
	case "off", "0", "false":
		return false, nil
	}
	return false, fmt.Errorf("%q: want on or off", arg)
}

func cmdBus(s *locdb.Store, args []string, w io.Writer) error {
	if len(args) == 1 {
		a, err := strconv.ParseUint(args[0], 10, 8)
		if err != nil {
			return fmt.Errorf("bus address %q: %w", args[0], err)
		}
		if err = s.SetBusAddress(uint8(a)); err != nil {
			return err
		}
	} else if len(args) > 1 {
		return errUsage
	}
	a, err := s.BusAddress()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "bus address %d\n", a)
	return err
}

func cmdFormat(s *locdb.Store, _ []string, w io.Writer) error {
	if err := s.Format(); err != nil {
		return err
	}
	return printCurrent(s, w)
}
