package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"locstash/internal/config"
	"locstash/internal/locdb"
	"locstash/internal/storage"
)

const (
	displayCounter = 100
	addressSpace   = 16
)

// model the expected store contents
type model struct {
	locos    []locdb.Record
	selected int
}

// Checker runs random operations against a store and compares the result
// with a plain slice model after every step. Every reopenEvery steps the
// store is reopened from the device.
type Checker struct {
	conf        *config.Config
	dev         storage.Storager
	store       *locdb.Store
	model       model
	rnd         *rand.Rand
	reopenEvery int

	toDisplay chan string
	out       io.Writer

	logger *zap.Logger
	sugar  *zap.SugaredLogger
}

func NewChecker(conf *config.Config, dev storage.Storager, seed int64, out io.Writer, logger *zap.Logger) (*Checker, error) {
	store, err := locdb.Open(conf, dev, logger)
	if err != nil {
		return nil, err
	}
	c := &Checker{
		conf:        conf,
		dev:         dev,
		store:       store,
		rnd:         rand.New(rand.NewSource(seed)),
		reopenEvery: 50,
		toDisplay:   make(chan string),
		out:         out,
		logger:      logger,
		sugar:       logger.Sugar(),
	}
	c.model.locos, err = store.Records()
	if err != nil {
		return nil, err
	}
	c.model.selected = store.Selected()
	return c, nil
}

// Run performs iterations steps, or runs until ctx is done if iterations is 0
func (c *Checker) Run(ctx context.Context, iterations int) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return c.display(ctx)
	})
	g.Go(func() error {
		defer close(c.toDisplay)
		return c.work(ctx, iterations)
	})

	return g.Wait()
}

func (c *Checker) display(ctx context.Context) error {
	c.sugar.Infow("display start")
	for {
		select {
		case <-ctx.Done():
			c.sugar.Infow("display done")
			return nil
		case s, ok := <-c.toDisplay:
			if !ok {
				c.sugar.Infow("display done")
				return nil
			}
			if _, err := fmt.Fprint(c.out, s); err != nil {
				return err
			}
		}
	}
}

func (c *Checker) work(ctx context.Context, iterations int) error {
	c.sugar.Infow("work start", "iterations", iterations)
	count := 0
	for i := 0; iterations == 0 || i < iterations; i++ {
		select {
		case <-ctx.Done():
			c.sugar.Infow("work done", "steps", i)
			return nil
		default:
		}

		op, err := c.step()
		if err != nil {
			return fmt.Errorf("step %d %s: %w", i, op, err)
		}
		if err = c.compare(); err != nil {
			return fmt.Errorf("step %d %s: %w", i, op, err)
		}

		if c.reopenEvery > 0 && (i+1)%c.reopenEvery == 0 {
			if err = c.reopen(); err != nil {
				return fmt.Errorf("step %d reopen: %w", i, err)
			}
		}

		count++
		if count == displayCounter {
			count = 0
			select {
			case c.toDisplay <- ".":
			case <-ctx.Done():
			}
		}
	}
	c.sugar.Infow("work done", "steps", iterations)
	return nil
}

func (c *Checker) step() (string, error) {
	addr := uint16(c.rnd.Intn(addressSpace))
	switch c.rnd.Intn(6) {
	case 0:
		return "upsert", c.upsert(addr)
	case 1:
		return "remove", c.remove(addr)
	case 2:
		return "move", c.move(c.rnd.Intn(3) - 1)
	case 3:
		return "sort", c.sort()
	case 4:
		return "speed", c.adjustSpeed(c.rnd.Intn(3) - 1)
	default:
		return "function", c.toggleFunction(uint8(c.rnd.Intn(locdb.MaxFunction + 2)))
	}
}

func (c *Checker) find(addr uint16) int {
	for i, r := range c.model.locos {
		if r.Address == addr {
			return i
		}
	}
	return -1
}

func (c *Checker) upsert(addr uint16) error {
	var assignment [locdb.FunctionSlots]uint8
	for i := range assignment {
		assignment[i] = uint8(c.rnd.Intn(locdb.MaxFunction + 1))
	}

	err := c.store.Upsert(addr, assignment)
	i := c.find(addr)
	switch {
	case i >= 0:
		if err != nil {
			return err
		}
		c.model.locos[i].FunctionAssignment = assignment
		c.model.selected = i
	case len(c.model.locos) >= c.conf.MaxLocs:
		if !errors.Is(err, locdb.ErrStoreFull) {
			return fmt.Errorf("want %v, got %v", locdb.ErrStoreFull, err)
		}
	default:
		if err != nil {
			return err
		}
		c.model.locos = append(c.model.locos, locdb.NewRecord(addr, assignment))
		c.model.selected = len(c.model.locos) - 1
	}
	return nil
}

func (c *Checker) remove(addr uint16) error {
	// unknown addresses are skipped, they drop the last loco
	i := c.find(addr)
	if i < 0 {
		return nil
	}

	err := c.store.Remove(addr)
	if len(c.model.locos) <= 1 {
		if !errors.Is(err, locdb.ErrLastRecord) {
			return fmt.Errorf("want %v, got %v", locdb.ErrLastRecord, err)
		}
		return nil
	}
	if err != nil {
		return err
	}
	c.model.locos = append(c.model.locos[:i], c.model.locos[i+1:]...)
	c.model.selected = i
	if i >= len(c.model.locos) {
		c.model.selected = len(c.model.locos) - 1
	}
	return nil
}

func (c *Checker) move(delta int) error {
	addr, err := c.store.Move(delta)
	if err != nil {
		return err
	}
	n := len(c.model.locos)
	switch {
	case delta > 0:
		c.model.selected = (c.model.selected + 1) % n
	case delta < 0:
		c.model.selected = (c.model.selected + n - 1) % n
	}
	if want := c.model.locos[c.model.selected].Address; addr != want {
		return fmt.Errorf("moved to %d, want %d", addr, want)
	}
	return nil
}

func (c *Checker) sort() error {
	if err := c.store.Sort(); err != nil {
		return err
	}
	current := c.model.locos[c.model.selected].Address
	sort.SliceStable(c.model.locos, func(i, j int) bool {
		return c.model.locos[i].Address < c.model.locos[j].Address
	})
	c.model.selected = c.find(current)
	return nil
}

// adjustSpeed the throttle logic is covered by unit tests, the model only
// takes over the result
func (c *Checker) adjustSpeed(delta int) error {
	if _, err := c.store.AdjustSpeed(delta); err != nil {
		return err
	}
	c.model.locos[c.model.selected] = c.store.Current()
	return nil
}

func (c *Checker) toggleFunction(number uint8) error {
	before := c.model.locos[c.model.selected].FunctionState(number)
	state, err := c.store.ToggleFunction(number)
	if err != nil {
		return err
	}
	if before == locdb.FunctionInvalid {
		if state != locdb.FunctionInvalid {
			return fmt.Errorf("function %d: want invalid, got %s", number, state)
		}
		return nil
	}
	if state == before {
		return fmt.Errorf("function %d not toggled", number)
	}
	c.model.locos[c.model.selected].Function ^= 1 << (number + 1)
	return nil
}

func (c *Checker) reopen() error {
	store, err := locdb.Open(c.conf, c.dev, c.logger)
	if err != nil {
		return err
	}
	c.store = store
	if !c.conf.Restore {
		c.model.selected = 0
	}
	return c.compare()
}

func (c *Checker) compare() error {
	recs, err := c.store.Records()
	if err != nil {
		return err
	}
	if len(recs) != len(c.model.locos) {
		return fmt.Errorf("count %d, want %d", len(recs), len(c.model.locos))
	}
	for i := range recs {
		if recs[i] != c.model.locos[i] {
			return fmt.Errorf("loco %d is %s, want %s", i, recs[i], c.model.locos[i])
		}
	}
	if sel := c.store.Selected(); sel != c.model.selected {
		return fmt.Errorf("selected %d, want %d", sel, c.model.selected)
	}
	if cur := c.store.Current(); cur != c.model.locos[c.model.selected] {
		return fmt.Errorf("current %s, want %s", cur, c.model.locos[c.model.selected])
	}
	return nil
}
