package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/abhiarc/Dream-interpreter/internal/adapters/counters"
	"github.com/abhiarc/Dream-interpreter/internal/app"
	"github.com/abhiarc/Dream-interpreter/internal/domain"
)

var interpretSchool string

var interpretCmd = &cobra.Command{
	Use:   "interpret [--school NAME] DREAM...",
	Short: "Interpret one dream and print the result",
	Long: `Interpret sends a single dream to the model and waits for the answer.
The dream text is the remaining arguments joined by spaces.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInterpret,
}

func init() {
	interpretCmd.Flags().StringVar(&interpretSchool, "school", "", "school of interpretation (default General)")
}

func runInterpret(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	category, err := domain.ParseCategory(interpretSchool)
	if err != nil {
		return fmt.Errorf("%w: %q", err, interpretSchool)
	}

	for _, w := range cfg.ClientWarnings() {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning:", w)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	ctrl := app.NewController(newInterpreter(cfg, logger), counters.NewMemoryStore(),
		app.WithLogger(logger),
		app.WithSlowThreshold(cfg.SlowThreshold),
	)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = ctrl.Shutdown(shutdownCtx)
	}()

	id := uuid.New()
	if _, err := ctrl.Submit(ctx, id, category, strings.Join(args, " ")); err != nil {
		return err
	}

	snap, err := waitWithProgress(ctx, cmd, ctrl, id, cfg.SlowThreshold)
	if err != nil {
		return err
	}

	if snap.Result.Failed {
		return errors.New(snap.Result.Text)
	}
	fmt.Fprintln(cmd.OutOrStdout(), snap.Result.Text)
	return nil
}

// waitWithProgress blocks until the session finishes, printing a notice each
// time another slow interval passes.
func waitWithProgress(ctx context.Context, cmd *cobra.Command, ctrl *app.Controller, id uuid.UUID, every time.Duration) (app.Snapshot, error) {
	for {
		waitCtx, cancel := context.WithTimeout(ctx, every)
		snap, err := ctrl.Wait(waitCtx, id)
		cancel()

		if snap.Phase == domain.PhaseDone && snap.Result != nil {
			return snap, nil
		}
		if ctx.Err() != nil {
			return snap, ctx.Err()
		}
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return snap, err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%s (%s elapsed)\n", app.SlowNotice, snap.Elapsed.Round(time.Second))
	}
}
