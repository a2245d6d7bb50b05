package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"onboarding_flow/internal/core"
	"onboarding_flow/internal/nav"
	"onboarding_flow/internal/services"
	"onboarding_flow/internal/steps"
	"onboarding_flow/pkg"
	"onboarding_flow/src/draft"
	"onboarding_flow/src/poller"

	"github.com/bytedance/sonic"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// Wizard input commands
const (
	cmdBack   = ":back"
	cmdCancel = ":cancel"
	cmdQuit   = ":quit"
	cmdClear  = ":clear"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
)

func flowsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "flows",
		Short: "List the available onboarding flows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, name := range a.catalog.Names() {
				flow, err := a.catalog.Get(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s  %s\n", titleStyle.Render(flow.Name), flow.Title)
				fmt.Fprintf(out, "    %s\n", mutedStyle.Render(fmt.Sprintf("%d steps, draft key %s", len(flow.Steps), flow.StorageKey)))
			}
			return nil
		},
	}
}

func runCmd(a *app) *cobra.Command {
	var restart, keep bool

	cmd := &cobra.Command{
		Use:   "run <flow>",
		Short: "Walk through a flow interactively, resuming any saved draft",
		Long: "Walk through a flow step by step. Answers are saved after every step.\n" +
			"At any prompt: " + cmdBack + " returns to the previous step, " + cmdCancel +
			" leaves the flow keeping the draft, " + cmdQuit + " stops here.\n" +
			"An empty answer keeps the current value, " + cmdClear + " empties it.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flow, err := a.catalog.Get(args[0])
			if err != nil {
				return err
			}
			store, err := a.openStorage(cmd.Context())
			if err != nil {
				return err
			}

			ctrl, err := core.NewController(flow, draft.NewStore(store), nav.NewHistory(nil))
			if err != nil {
				return err
			}

			w := &wizard{
				flow: flow,
				ctrl: ctrl,
				in:   bufio.NewScanner(cmd.InOrStdin()),
				out:  cmd.OutOrStdout(),
				keep: keep,
			}
			return w.run(cmd.Context(), restart)
		},
	}

	cmd.Flags().BoolVar(&restart, "restart", false, "discard the saved draft and start from the first step")
	cmd.Flags().BoolVar(&keep, "keep", false, "keep the draft after completing the flow")
	return cmd
}

func showCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <flow>",
		Short: "Print the saved draft of a flow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flow, err := a.catalog.Get(args[0])
			if err != nil {
				return err
			}
			store, err := a.openStorage(cmd.Context())
			if err != nil {
				return err
			}

			record, err := draft.NewStore(store).Load(cmd.Context(), flow.StorageKey)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), errorStyle.Render(err.Error()))
			}
			return printRecord(cmd.OutOrStdout(), record)
		},
	}
}

func resetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reset <flow>",
		Short: "Delete the saved draft of a flow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flow, err := a.catalog.Get(args[0])
			if err != nil {
				return err
			}
			store, err := a.openStorage(cmd.Context())
			if err != nil {
				return err
			}

			if err := draft.NewStore(store).Clear(cmd.Context(), flow.StorageKey); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render("draft cleared: "+flow.Name))
			return nil
		},
	}
}

func balanceCmd(a *app) *cobra.Command {
	var (
		count    int
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "balance <account>",
		Short: "Poll an account balance on a fixed interval",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := services.NewRPCClient(a.config.RPCConfig)
			if err != nil {
				return err
			}
			svc := services.NewBalanceService(client, a.config.RPCConfig.BalanceProcedure)

			if interval <= 0 {
				interval = a.config.PollConfig.Interval
			}
			return watchBalance(cmd.Context(), cmd.OutOrStdout(), svc.Fetcher(args[0]), interval, count)
		},
	}

	cmd.Flags().IntVar(&count, "count", 0, "stop after this many refreshes (0 polls until interrupted)")
	cmd.Flags().DurationVar(&interval, "interval", 0, "refresh period (overrides ONBOARD_POLL_INTERVAL)")
	return cmd
}

// watchBalance prints every poll result until ctx ends or count refreshes were shown
func watchBalance(ctx context.Context, out io.Writer, fetch poller.FetchFunc[pkg.Balance], interval time.Duration, count int) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	updates := make(chan poller.State[pkg.Balance])

	p, err := poller.New(interval, fetch, func(s poller.State[pkg.Balance]) {
		select {
		case updates <- s:
		case <-gctx.Done():
		}
	})
	if err != nil {
		return err
	}

	g.Go(func() error {
		return p.Run(gctx)
	})
	g.Go(func() error {
		shown := 0
		for {
			select {
			case <-gctx.Done():
				return nil
			case s := <-updates:
				printBalance(out, s)
				shown++
				if count > 0 && shown >= count {
					cancel()
					return nil
				}
			}
		}
	})

	return g.Wait()
}

func printBalance(out io.Writer, s poller.State[pkg.Balance]) {
	stamp := mutedStyle.Render(s.UpdatedAt.Format(time.TimeOnly))
	if s.Err != nil {
		fmt.Fprintf(out, "%s %s\n", stamp, errorStyle.Render("refresh failed: "+s.Err.Error()))
		return
	}

	names := make([]string, 0, len(s.Value.Fields))
	for name := range s.Value.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s=%.2f", name, s.Value.Fields[name]))
	}
	fmt.Fprintf(out, "%s %s %s\n", stamp, titleStyle.Render(s.Value.AccountID), strings.Join(parts, " "))
}

func printRecord(out io.Writer, record pkg.Record) error {
	data, err := sonic.ConfigStd.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal draft: %w", err)
	}
	fmt.Fprintln(out, string(data))
	return nil
}

// errQuit ends the wizard without touching the draft
var errQuit = errors.New("quit")

// wizard renders the current step of a controller as line prompts
type wizard struct {
	flow *core.FlowDefinition
	ctrl *core.Controller
	in   *bufio.Scanner
	out  io.Writer
	keep bool
}

func (w *wizard) run(ctx context.Context, restart bool) error {
	if restart {
		if err := w.ctrl.Reset(ctx); err != nil {
			w.warn(err)
		}
	}

	tr, err := w.ctrl.Resume(ctx)
	if err != nil {
		return err
	}
	if tr.PersistErr != nil {
		w.warn(tr.PersistErr)
	}
	fmt.Fprintln(w.out, titleStyle.Render(w.flow.Title))

	for {
		step, ok := w.ctrl.Current()
		if !ok {
			return w.finish(ctx)
		}

		err := w.step(ctx, step)
		switch {
		case errors.Is(err, errQuit):
			fmt.Fprintln(w.out, mutedStyle.Render("draft saved, run again to continue"))
			return nil
		case errors.Is(err, io.EOF):
			return nil
		case errors.Is(err, core.ErrValidation), errors.Is(err, core.ErrNoPrevious):
			fmt.Fprintln(w.out, errorStyle.Render(err.Error()))
		case err != nil:
			return err
		}
	}
}

// step prompts for every field of step and submits the answers
func (w *wizard) step(ctx context.Context, step core.StepDefinition) error {
	form, err := steps.NewForm(w.flow, step.ID, w.ctrl.Draft())
	if err != nil {
		return err
	}

	title := step.Title
	if title == "" {
		title = step.ID
	}
	fmt.Fprintf(w.out, "\n%s\n", titleStyle.Render(title))

	for _, field := range form.Fields() {
		for {
			line, err := w.prompt(field, form)
			if err != nil {
				return err
			}

			switch line {
			case cmdQuit:
				return errQuit
			case cmdCancel:
				if _, err := w.ctrl.Cancel(ctx); err != nil {
					return err
				}
				fmt.Fprintln(w.out, mutedStyle.Render("left "+w.flow.Name+", draft kept"))
				return errQuit
			case cmdBack:
				_, err := w.ctrl.Back(ctx)
				return err
			case cmdClear:
				form.Clear(field.Name)
			case "":
				// keep the current value
			default:
				if err := form.SetInput(field.Name, line); err != nil {
					fmt.Fprintln(w.out, errorStyle.Render(err.Error()))
					continue
				}
			}
			break
		}
	}

	tr, err := form.Submit(ctx, w.ctrl)
	if err != nil {
		return err
	}
	if tr.PersistErr != nil {
		w.warn(tr.PersistErr)
	}
	return nil
}

func (w *wizard) prompt(field core.FieldSpec, form *steps.Form) (string, error) {
	label := field.Label
	if label == "" {
		label = field.Name
	}
	if field.Required {
		label += " *"
	}
	if v, ok := form.Value(field.Name); ok {
		label += mutedStyle.Render(fmt.Sprintf(" [%s]", displayValue(v)))
	}
	fmt.Fprintf(w.out, "%s: ", label)

	if !w.in.Scan() {
		if err := w.in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(w.in.Text()), nil
}

// finish prints the collected record and clears it unless --keep is set
func (w *wizard) finish(ctx context.Context) error {
	fmt.Fprintf(w.out, "\n%s\n", okStyle.Render(w.flow.Title+" complete"))
	if err := printRecord(w.out, w.ctrl.Draft()); err != nil {
		return err
	}
	if w.keep {
		return nil
	}
	if err := w.ctrl.Reset(ctx); err != nil {
		w.warn(err)
	}
	return nil
}

func (w *wizard) warn(err error) {
	fmt.Fprintln(w.out, errorStyle.Render("warning: "+err.Error()))
}

func displayValue(v any) string {
	if obj, ok := v.(map[string]any); ok {
		data, err := sonic.ConfigStd.Marshal(obj)
		if err == nil {
			return string(data)
		}
	}
	return fmt.Sprint(v)
}
