package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"amplify-bot/config"
	"amplify-bot/logging"
	"amplify-bot/monitoring"
	"amplify-bot/repositories"
	"amplify-bot/services"
)

var (
	configPath string
	profileURL string
)

func main() {
	root := &cobra.Command{
		Use:   "amplify-bot",
		Short: "Harvests shared posts from the message inbox and amplifies each exactly once",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to the YAML config file")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Scan all conversations and amplify newly shared posts",
		RunE:  runBot,
	}

	undoCmd := &cobra.Command{
		Use:   "undo",
		Short: "Undo every amplification visible on a profile page",
		RunE:  runUndo,
	}
	undoCmd.Flags().StringVar(&profileURL, "profile", "", "profile page URL to sweep")
	_ = undoCmd.MarkFlagRequired("profile")

	root.AddCommand(runCmd, undoCmd)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runBot(cmd *cobra.Command, _ []string) error {
	cfg := config.Load(configPath)
	runID := uuid.NewString()

	logger, closeLog, err := logging.New(runID, cfg.LogDir)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()
	logger.WithField("run_id", runID).Info("starting run")

	metrics, registry := monitoring.NewMetrics()
	if cfg.MetricsAddr != "" {
		monitoring.Serve(cfg.MetricsAddr, registry, logger)
	}

	var store services.SummaryStore = repositories.NoopLedger{}
	if cfg.LedgerDSN != "" {
		db, err := gorm.Open(postgres.Open(cfg.LedgerDSN), &gorm.Config{})
		if err != nil {
			logger.WithError(err).Warn("ledger unavailable, continuing without run history")
		} else {
			ledger := repositories.NewPostgresLedger(db)
			if err := ledger.StartRun(runID); err == nil {
				defer func() {
					if err := ledger.FinishRun(runID); err != nil {
						logger.WithError(err).Warn("failed to close run record")
					}
				}()
			}
			store = ledger
		}
	}

	// No session is possible without credentials.
	cookies, err := repositories.ParseCookieFile(cfg.CookiesFile)
	if err != nil {
		logger.WithError(err).Error("cannot load credentials, aborting")
		return err
	}
	logger.WithField("cookies", len(cookies)).Info("loaded credentials")

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	browser, err := repositories.NewChromeBrowser(ctx, cfg.Headless)
	if err != nil {
		return err
	}
	defer browser.Close()

	if err := browser.SetCookies(cookies); err != nil {
		logger.WithError(err).Error("failed to install cookies, aborting")
		return err
	}

	engine := services.NewCaptureEngine(cfg.DoneMessageText, cfg.ScrollsCountForEachCapture, 2*time.Second, logger)
	executor := services.NewExecutor(logger)
	orchestrator := services.NewOrchestrator(logger,
		services.WithBrowser(browser),
		services.WithCaptureEngine(engine),
		services.WithExecutor(executor),
		services.WithBaseURL(cfg.BaseURL),
		services.WithWatermarkText(cfg.DoneMessageText),
		services.WithMetrics(metrics),
	)
	session := services.NewSession(logger,
		services.WithSessionBrowser(browser),
		services.WithOrchestrator(orchestrator),
		services.WithSessionBaseURL(cfg.BaseURL),
		services.WithIterations(cfg.IterationsCount),
		services.WithSummaryStore(store),
		services.WithSessionMetrics(metrics),
	)

	menuLoop(ctx, session, runID, logger)
	logger.Info("shutdown complete")
	return nil
}

// menuLoop drives the operator cadence: single pass, or repeated passes
// separated by an interval, resuming the menu after each session.
func menuLoop(ctx context.Context, session *services.Session, runID string, logger *logrus.Logger) {
	reader := bufio.NewReader(os.Stdin)

	for {
		fmt.Println("\nHow would you like to start?")
		fmt.Println("1 - Single iteration")
		fmt.Println("2 - Multiple iterations with time interval")
		choice := promptInt(reader, "Enter your choice (1-2): ", 1, 2)

		if choice == 1 {
			session.Run(ctx, runID)
			fmt.Println("\nSession completed!")
			fmt.Println("1 - Return to main menu")
			fmt.Println("2 - Stop and close browser")
			if promptInt(reader, "Enter your choice (1-2): ", 1, 2) == 2 {
				return
			}
			continue
		}

		hours := promptInterval(reader)
		fmt.Printf("\nStarting multiple iterations mode with %d hour interval.\n", hours)
		fmt.Println("Press Ctrl+C during the wait to pause.")

	repeated:
		for {
			session.Run(ctx, runID)
			logger.WithField("hours", hours).Info("waiting before next iteration")

			switch waitOrInterrupt(time.Duration(hours) * time.Hour) {
			case waitElapsed:
				continue
			case waitResume:
				fmt.Println("\nResuming multiple iterations...")
				continue
			case waitMainMenu:
				break repeated
			case waitStop:
				return
			}
		}
	}
}

type waitResult int

const (
	waitElapsed waitResult = iota
	waitResume
	waitMainMenu
	waitStop
)

// waitOrInterrupt sleeps for the interval. An operator interrupt is never
// dropped: it surfaces the resume/return/stop menu.
func waitOrInterrupt(d time.Duration) waitResult {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-time.After(d):
		return waitElapsed
	case <-sigChan:
		reader := bufio.NewReader(os.Stdin)
		fmt.Println("\nMultiple iterations mode interrupted.")
		fmt.Println("1 - Resume multiple iterations")
		fmt.Println("2 - Return to main menu")
		fmt.Println("3 - Stop and close browser")
		switch promptInt(reader, "Enter your choice (1-3): ", 1, 2, 3) {
		case 1:
			return waitResume
		case 2:
			return waitMainMenu
		default:
			return waitStop
		}
	}
}

func runUndo(cmd *cobra.Command, _ []string) error {
	cfg := config.Load(configPath)
	runID := uuid.NewString()

	logger, closeLog, err := logging.New(runID, cfg.LogDir)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	cookies, err := repositories.ParseCookieFile(cfg.CookiesFile)
	if err != nil {
		logger.WithError(err).Error("cannot load credentials, aborting")
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	browser, err := repositories.NewChromeBrowser(ctx, cfg.Headless)
	if err != nil {
		return err
	}
	defer browser.Close()

	if err := browser.SetCookies(cookies); err != nil {
		return err
	}

	main := browser.MainPage()
	if err := main.Navigate(ctx, profileURL); err != nil {
		return err
	}

	undo := services.NewUndoService(logger, time.Second)
	total, err := undo.UndoAll(ctx, main)
	if err != nil {
		return err
	}
	fmt.Printf("Undid %d amplification(s)\n", total)
	return nil
}

func promptInt(reader *bufio.Reader, prompt string, valid ...int) int {
	for {
		fmt.Print(prompt)
		line, err := reader.ReadString('\n')
		if err != nil {
			return valid[len(valid)-1]
		}
		value, err := strconv.Atoi(strings.TrimSpace(line))
		if err != nil {
			fmt.Println("Invalid input. Please enter a number.")
			continue
		}
		for _, v := range valid {
			if value == v {
				return value
			}
		}
		fmt.Printf("Invalid choice. Please enter one of %v.\n", valid)
	}
}

func promptInterval(reader *bufio.Reader) int {
	for {
		fmt.Print("Enter time interval in hours (1-5): ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return 1
		}
		hours, err := strconv.Atoi(strings.TrimSpace(line))
		if err != nil || hours < 1 || hours > 5 {
			fmt.Println("Please enter a value between 1 and 5 hours.")
			continue
		}
		return hours
	}
}
