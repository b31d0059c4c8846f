package main

import (
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rumor-ml/commons.systems/stmtsync/internal/accounts"
	"github.com/rumor-ml/commons.systems/stmtsync/internal/confirm"
	"github.com/rumor-ml/commons.systems/stmtsync/internal/dedup"
	"github.com/rumor-ml/commons.systems/stmtsync/internal/logging"
	"github.com/rumor-ml/commons.systems/stmtsync/internal/output"
	"github.com/rumor-ml/commons.systems/stmtsync/internal/pipeline"
	"github.com/rumor-ml/commons.systems/stmtsync/internal/registry"
	"github.com/rumor-ml/commons.systems/stmtsync/internal/rules"
	"github.com/rumor-ml/commons.systems/stmtsync/internal/scanner"
	"github.com/rumor-ml/commons.systems/stmtsync/internal/ui"
)

type importOptions struct {
	yes        bool
	dryRun     bool
	stateFile  string
	reportPath string
	rulesFile  string
}

func newImportCommand(global *globalOptions) *cobra.Command {
	opts := &importOptions{}

	cmd := &cobra.Command{
		Use:   "import <datapath>",
		Short: "Detect, normalize and submit every statement under datapath",
		Example: `  # Review and submit everything under ~/statements
  stmtsync import ~/statements

  # Parse only, write what would be sent
  stmtsync import ~/statements --dry-run --report -

  # Unattended, skipping rows submitted by earlier runs
  stmtsync import ~/statements --yes --state ~/.stmtsync/journal.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, global, opts, args[0])
		},
	}

	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "submit without asking for confirmation")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "parse and sort but send nothing")
	cmd.Flags().StringVar(&opts.stateFile, "state", "", "submission journal file (overrides state_file)")
	cmd.Flags().StringVar(&opts.reportPath, "report", "", "write a JSON run report to this file, - for stdout")
	cmd.Flags().StringVar(&opts.rulesFile, "rules", "", "payee rules file (overrides rules_file)")

	return cmd
}

func runImport(cmd *cobra.Command, global *globalOptions, opts *importOptions, datapath string) error {
	ctx := cmd.Context()
	stderr := cmd.ErrOrStderr()
	ui.SetOutput(stderr)

	cfg, logger, err := global.setup(stderr)
	if err != nil {
		return err
	}
	if opts.stateFile != "" {
		cfg.StateFile = opts.stateFile
	}
	if opts.rulesFile != "" {
		cfg.RulesFile = opts.rulesFile
	}
	log, runID := logging.ForRun(logger)

	ui.Header("Importing Statements")

	ui.Step(1, 4, "Scanning "+datapath)
	files, err := scanner.New(datapath).Scan()
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no statement files (.csv, .ofx, .qfx) found in %s", datapath)
	}
	ui.Success(fmt.Sprintf("Found %d statement files", len(files)))
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
		log.WithFields(logrus.Fields{
			"file":        f.Path,
			"institution": f.Metadata.Institution,
			"account":     f.Metadata.Account,
			"period":      f.Metadata.Period,
		}).Debug("Found statement")
	}

	ui.Step(2, 4, "Fetching ledger accounts")
	l, closeLedger, err := openLedger(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeLedger()
	snap, err := accounts.Fetch(ctx, l)
	if err != nil {
		return err
	}
	if snap.Len() == 0 {
		ui.Warning("The ledger has no accounts; no statement can be matched")
	} else {
		ui.Success(fmt.Sprintf("Loaded %d accounts", snap.Len()))
	}

	ui.Step(3, 4, "Loading payee rules and journal")
	payees, err := rules.Load(cfg.RulesFile)
	if err != nil {
		return err
	}
	var journal *dedup.State
	if cfg.StateFile != "" {
		journal, err = dedup.Open(cfg.StateFile)
		if err != nil {
			return fmt.Errorf("failed to load journal %q: %w", cfg.StateFile, err)
		}
		ui.Info(fmt.Sprintf("Journal %s holds %d submissions", cfg.StateFile, journal.Len()))
	}
	ui.Success(fmt.Sprintf("Loaded %d payee rules", len(payees.GetRules())))

	reg, err := registry.New(registry.Options{
		ScotiabankCheckingAccounts: cfg.Formats.ScotiabankChecking.Accounts,
	}, log)
	if err != nil {
		return err
	}
	log.WithField("formats", reg.ListFormats()).Debug("Formats registered")

	var confirmer confirm.Confirmer = confirm.NewPrompt(cmd.InOrStdin(), stderr)
	if opts.yes {
		confirmer = confirm.Always(true)
	}

	p, err := pipeline.New(pipeline.Config{
		Detector:    reg,
		Ledger:      l,
		Confirmer:   confirmer,
		Log:         log,
		Options:     cfg.Submission,
		Payees:      payees,
		Journal:     journal,
		JournalPath: cfg.StateFile,
		DryRun:      opts.dryRun,
	})
	if err != nil {
		return err
	}

	ui.Step(4, 4, "Processing statements")
	outcomes := p.Run(ctx, paths, snap)
	printSummary(stderr, outcomes)

	if opts.reportPath != "" {
		report := output.NewReport(runID, opts.dryRun, outcomes, time.Now())
		if opts.reportPath == output.Stdout {
			err = output.WriteReport(report, cmd.OutOrStdout())
		} else {
			err = output.WriteReportToFile(report, opts.reportPath)
		}
		if err != nil {
			return err
		}
	}
	return ctx.Err()
}

func printSummary(w io.Writer, outcomes []*pipeline.Outcome) {
	ui.SetOutput(w)
	for _, o := range outcomes {
		name := ui.BlueText(o.File)
		switch {
		case o.Err != nil:
			ui.Error(fmt.Sprintf("%s: %v", name, o.Err))
		case !o.Identified():
			ui.Warning(fmt.Sprintf("%s: no format matched, skipped", name))
		case o.DryRun:
			ui.Info(fmt.Sprintf("%s [%s]: %d transactions %s..%s (dry run)", name, o.Format, len(o.Transactions), o.From, o.To))
		case o.Declined:
			ui.Warning(fmt.Sprintf("%s [%s]: declined", name, o.Format))
		default:
			msg := fmt.Sprintf("%s [%s]: applied %d of %d", name, o.Format, o.Applied, len(o.Transactions))
			if o.Skipped > 0 {
				msg += fmt.Sprintf(", %s already submitted", ui.YellowText(fmt.Sprint(o.Skipped)))
			}
			if o.Failed > 0 {
				msg += fmt.Sprintf(", %d failed", o.Failed)
				ui.Warning(msg)
				continue
			}
			ui.Success(msg)
		}
	}
}
