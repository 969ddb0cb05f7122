package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sarchlab/showcase/config"
	"github.com/sarchlab/showcase/hooking"
	"github.com/sarchlab/showcase/showcase"
)

// Run shows cfg's items in the terminal until the user quits or ctx is
// cancelled. The controller is disposed on the way out.
func Run(ctx context.Context, cfg *config.Config, hooks ...hooking.Hook) error {
	scheduler := NewScheduler()

	b := showcase.MakeBuilder[config.Item]().
		WithItems(cfg.Items).
		WithInterval(cfg.Interval()).
		WithScheduler(scheduler)
	if cfg.CountedInteractions {
		b = b.WithCountedInteractions()
	}
	for _, h := range hooks {
		b = b.WithHook(h)
	}

	ctrl, err := b.Build()
	if err != nil {
		return fmt.Errorf("tui: %w", err)
	}

	p := tea.NewProgram(NewModel(ctrl, scheduler),
		tea.WithAltScreen(),
		tea.WithMouseAllMotion(),
		tea.WithContext(ctx),
	)
	scheduler.Attach(p.Send)

	_, err = p.Run()

	// The program no longer reads messages, so disposing here cannot race
	// with Update.
	ctrl.Dispose()

	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}

	return err
}
