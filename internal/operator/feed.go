package operator

import (
	"context"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"codeberg.org/mutker/ipmifanctl/internal/control"
)

const defaultFeedSize = 16

// Feed hands outcomes from the control loop to the form. Record never
// blocks: when the form falls behind, outcomes are dropped and counted.
type Feed struct {
	ch      chan *control.Outcome
	dropped atomic.Uint64
}

func NewFeed(size int) *Feed {
	if size <= 0 {
		size = defaultFeedSize
	}
	return &Feed{ch: make(chan *control.Outcome, size)}
}

func (f *Feed) Record(_ context.Context, outcome *control.Outcome) error {
	select {
	case f.ch <- outcome:
	default:
		f.dropped.Add(1)
	}
	return nil
}

// Dropped is the number of outcomes discarded because the buffer was full.
func (f *Feed) Dropped() uint64 {
	return f.dropped.Load()
}

type outcomeMsg struct {
	outcome *control.Outcome
}

func (f *Feed) wait() tea.Cmd {
	return func() tea.Msg {
		return outcomeMsg{outcome: <-f.ch}
	}
}
