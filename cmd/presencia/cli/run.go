package cli

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jza-lab/tpi-pyme-alimenticia-sub000/internal/config"
	"github.com/jza-lab/tpi-pyme-alimenticia-sub000/internal/presencia/cache"
	"github.com/jza-lab/tpi-pyme-alimenticia-sub000/internal/presencia/detector"
	"github.com/jza-lab/tpi-pyme-alimenticia-sub000/internal/presencia/service"
	"github.com/jza-lab/tpi-pyme-alimenticia-sub000/internal/presencia/session"
	"github.com/jza-lab/tpi-pyme-alimenticia-sub000/internal/presencia/store/httpstore"
	"github.com/jza-lab/tpi-pyme-alimenticia-sub000/internal/presencia/types"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a terminal: recognize employees and submit access decisions",
	RunE:  runTerminal,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

// logDispatcher delivers fallback tokens to the terminal log.  Sites with a
// messaging gateway replace it; on a bare kiosk the supervisor reads the
// token off the service log.
type logDispatcher struct {
	logger *log.Logger
}

func (d *logDispatcher) Dispatch(_ context.Context, id types.Identity, token string) error {
	d.logger.Printf("fallback token for %s (%s): %s", id.EmployeeCode, id.Name, token)
	return nil
}

func runTerminal(cmd *cobra.Command, _ []string) error {
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "presencia-terminal ", log.LstdFlags|log.LUTC)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shifts, err := types.LoadShiftSchedule(cfg.ShiftConfigPath)
	if err != nil {
		return err
	}

	records := httpstore.New(cfg.StoreURL)
	stateCache := cache.New(records, logger)
	if err := stateCache.Initialize(ctx); err != nil {
		return fmt.Errorf("initial hub sync: %w", err)
	}

	det := detector.NewClient(cfg.DetectorURL)
	manualOnly := false
	if err := det.Ping(ctx); err != nil {
		// Recognition cannot work without the model; say so instead of
		// timing out every attempt.
		logger.Printf("detector unreachable, running manual-only: %v", err)
		manualOnly = true
	}
	frames := detector.NewSnapshotSource(cfg.CameraURL)

	auth := service.NewSupervisorAuthorizer(cfg.SupervisorTokens)
	gateway := service.NewEventGateway(records, auth, logger)
	decisions := service.NewDecisionService(gateway, stateCache, shifts,
		service.DecisionConfig{Cooldown: cfg.Cooldown}, logger)
	tokens := service.NewTokenService(stateCache, &logDispatcher{logger: logger}, cfg.TokenTTL, logger)

	ctrl := service.NewController(frames, det, stateCache, decisions, tokens, session.Config{
		PollInterval: cfg.PollInterval,
		Timeout:      cfg.SessionTimeout,
	}, logger)

	logger.Printf("terminal ready (hub=%s manual_only=%v)", cfg.StoreURL, manualOnly)
	fmt.Println("commands: entry | exit | request <code> <national_id> | verify <code> <national_id> <token> <entry|exit> | refresh | quit")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "quit", "exit-terminal":
			return nil

		case "refresh":
			if err := stateCache.Refresh(ctx); err != nil {
				fmt.Printf("refresh failed: %v\n", err)
			}

		case "entry", "exit":
			if manualOnly {
				fmt.Println("recognition unavailable; use 'request' and 'verify'")
				continue
			}
			runAttempt(ctx, ctrl, types.EventType(fields[0]))

		case "request":
			if len(fields) != 3 {
				fmt.Println("usage: request <code> <national_id>")
				continue
			}
			if err := ctrl.RequestFallbackToken(ctx, fields[1], fields[2]); err != nil {
				fmt.Printf("request failed: %v\n", err)
				continue
			}
			fmt.Println("token dispatched")

		case "verify":
			if len(fields) != 5 {
				fmt.Println("usage: verify <code> <national_id> <token> <entry|exit>")
				continue
			}
			res, err := ctrl.VerifyFallback(ctx, fields[1], fields[2], fields[3], types.EventType(fields[4]))
			if err != nil {
				fmt.Printf("verification failed: %v\n", err)
				continue
			}
			printDecision(res)

		default:
			fmt.Printf("unknown command %q\n", fields[0])
		}
	}
}

func runAttempt(ctx context.Context, ctrl *service.Controller, declared types.EventType) {
	attemptCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	res, err := ctrl.Attempt(attemptCtx, declared)
	if err != nil {
		fmt.Printf("attempt failed: %v\n", err)
		return
	}
	switch res.Status {
	case service.AttemptDecided:
		printDecision(res)
	case service.AttemptFallback:
		fmt.Println("not recognized; use 'request <code> <national_id>' for a one-time token")
	case service.AttemptAborted:
		fmt.Println("attempt cancelled")
	}
}

func printDecision(res service.AttemptResult) {
	switch res.Decision.Outcome {
	case service.OutcomeGranted:
		fmt.Printf("ACCESS GRANTED  %s (%s)\n", res.Identity.Name, res.Identity.EmployeeCode)
	case service.OutcomeDenied:
		fmt.Printf("ACCESS DENIED   %s: %s\n", res.Identity.EmployeeCode, res.Decision.Reason)
	case service.OutcomeEscalated:
		fmt.Printf("AWAITING AUTHORIZATION  %s: %s\n", res.Identity.EmployeeCode, res.Decision.Reason)
	}
}
