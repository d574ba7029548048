package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vango-dev/counter/internal/errors"
	"github.com/vango-dev/counter/pkg/persist"
	"github.com/vango-dev/counter/pkg/view"
)

// actionCmd returns a command that applies one counter action to the
// persisted state and prints the result.
func actionCmd(opts *rootOptions, action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(a *app) error {
				v := view.NewCounterView(a.counter)
				v.Mount()
				defer v.Unmount()

				if !a.counter.Dispatch(action) {
					return errors.New("E300").WithDetail("unknown action " + action)
				}
				fmt.Fprintln(cmd.OutOrStdout(), v.Text())
				return nil
			})
		},
	}
}

func showCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the persisted counter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(a *app) error {
				fmt.Fprintln(cmd.OutOrStdout(), view.NewCounterView(a.counter).Text())
				return nil
			})
		},
	}
}

func clearCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove the persisted counter",
		Long: `Remove the persisted counter from the configured backend.

The next command starts again from Count: 0.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(a *app) error {
				ctx, cancel := context.WithTimeout(cmd.Context(), persist.DefaultTimeout)
				defer cancel()
				if err := a.persister.Clear(ctx); err != nil {
					return err
				}
				success(cmd.OutOrStdout(), "Cleared %s from %s storage", a.cfg.Persist.Key, a.cfg.Persist.Backend)
				return nil
			})
		},
	}
}

// withApp opens the app, runs fn and flushes state before returning.
func withApp(opts *rootOptions, fn func(a *app) error) error {
	a, err := openApp(opts.cfg, opts.logger, false)
	if err != nil {
		return err
	}
	err = fn(a)
	if cerr := a.Close(); err == nil {
		err = cerr
	}
	return err
}
