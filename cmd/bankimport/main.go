package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/rumor-ml/commons.systems/bankimport/internal/converter"
	"github.com/rumor-ml/commons.systems/bankimport/internal/history"
	"github.com/rumor-ml/commons.systems/bankimport/internal/importer"
	"github.com/rumor-ml/commons.systems/bankimport/internal/ledger"
	"github.com/rumor-ml/commons.systems/bankimport/internal/rules"
	"github.com/rumor-ml/commons.systems/bankimport/internal/server"
	"github.com/rumor-ml/commons.systems/bankimport/internal/ui"
)

const (
	version = "0.1.0"
)

var (
	// Global flags
	versionFlag = flag.Bool("version", false, "Show version")

	// Core CLI flags
	statementFile  = flag.String("file", "", "Statement file to import (required unless -serve)")
	accountID      = flag.String("account", "", "Target account ID (default: auto-detect from statement)")
	ledgerFile     = flag.String("ledger", "", "Ledger JSON file (required)")
	preview        = flag.Bool("preview", false, "Parse and show the statement without importing")
	skipDuplicates = flag.Bool("skip-duplicates", true, "Skip transactions that look already imported")
	verbose        = flag.Bool("verbose", false, "Show detailed parsing logs")

	// Optional collaborators
	historyFile = flag.String("history", "", "Import history sqlite file (default: in-memory)")
	rulesFile   = flag.String("rules", "", "Category rules YAML file")

	// Server mode
	serveAddr = flag.String("serve", "", "Run the HTTP API on this address (e.g. :8080) instead of importing")
)

func main() {
	// Custom usage message
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, `bankimport - Bank statement importer for the budget ledger

Usage:
  bankimport [flags]

Flags:
`)
		flag.PrintDefaults()
		fmt.Fprint(os.Stderr, `
Examples:
  # Preview a statement without touching the ledger
  bankimport -ledger budget.json -file statement.xml -preview

  # Import into a specific account, skipping duplicates
  bankimport -ledger budget.json -file statement.csv -account acc-1

  # Run the HTTP API
  bankimport -ledger budget.json -history imports.db -serve :8080

`)
	}

	flag.Parse()

	// Handle version flag
	if *versionFlag {
		fmt.Printf("bankimport version %s\n", version)
		os.Exit(0)
	}

	// Validate required flags
	if *ledgerFile == "" {
		fmt.Fprintf(os.Stderr, "Error: -ledger flag is required\n\n")
		flag.Usage()
		os.Exit(1)
	}
	if *serveAddr == "" && *statementFile == "" {
		fmt.Fprintf(os.Stderr, "Error: -file flag is required unless -serve is set\n\n")
		flag.Usage()
		os.Exit(1)
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	store, err := ledger.Load(*ledgerFile)
	if err != nil {
		return fmt.Errorf("failed to load ledger: %w", err)
	}

	var hist history.Store
	if *historyFile != "" {
		sqliteHist, err := history.OpenSQLite(*historyFile)
		if err != nil {
			return fmt.Errorf("failed to open history store: %w", err)
		}
		defer sqliteHist.Close()
		hist = sqliteHist
	} else {
		hist = history.NewMemoryStore()
	}

	imp := importer.New(store, hist)

	if *rulesFile != "" {
		engine, err := rules.LoadFromFile(*rulesFile)
		if err != nil {
			return fmt.Errorf("failed to load rules: %w", err)
		}
		imp.SetRules(engine)
		if *verbose {
			fmt.Fprintf(os.Stderr, "Loaded %d category rules from %s\n", len(engine.Rules()), *rulesFile)
		}
	}

	if *serveAddr != "" {
		srv := server.New(imp, hist)
		log.Printf("Listening on %s", *serveAddr)
		return http.ListenAndServe(*serveAddr, srv.Handler())
	}

	return runImport(store, imp)
}

func runImport(store *ledger.Store, imp *importer.Importer) error {
	totalSteps := 3
	if *preview {
		totalSteps = 2
	}

	if !*verbose {
		ui.Header("Importing Bank Statement")
		ui.Step(1, totalSteps, "Parsing statement")
	} else {
		fmt.Fprintf(os.Stderr, "Parsing statement: %s\n", *statementFile)
	}

	content, err := os.ReadFile(*statementFile)
	if err != nil {
		return fmt.Errorf("failed to read statement file: %w", err)
	}
	fileName := filepath.Base(*statementFile)

	result, err := imp.PreviewImport(string(content), fileName)
	if err != nil {
		if errors.Is(err, converter.ErrUnsupportedFormat) {
			return fmt.Errorf("%w\n\nSupported banks:\n%s", err, bankList(imp))
		}
		return err
	}

	if *verbose {
		fmt.Fprintf(os.Stderr, "Detected bank: %s\n", result.BankCode)
		fmt.Fprintf(os.Stderr, "Account number: %s\n", result.AccountNumber)
		fmt.Fprintf(os.Stderr, "Period: %s to %s\n", result.DateStart, result.DateEnd)
		fmt.Fprintf(os.Stderr, "Transactions: %d\n", len(result.Transactions))
	} else {
		ui.Success(fmt.Sprintf("Detected %s statement with %d transactions (%s to %s)",
			result.BankCode, len(result.Transactions), result.DateStart, result.DateEnd))
	}

	if !*verbose {
		ui.Step(2, totalSteps, "Resolving target account")
	}

	targetID := *accountID
	if targetID == "" {
		suggested := imp.SuggestAccount(result)
		if suggested == nil {
			return fmt.Errorf("could not match statement to an account; pass -account explicitly")
		}
		targetID = suggested.ID
		if *verbose {
			fmt.Fprintf(os.Stderr, "Matched account: %s (%s)\n", suggested.Title, suggested.ID)
		} else {
			ui.Info(fmt.Sprintf("Matched account: %s", ui.BlueText(suggested.Title)))
		}
	}

	if *preview {
		for _, tr := range result.Transactions {
			fmt.Printf("%s  %10.2f %s  %s\n", tr.Date, tr.Amount, tr.Currency, tr.Payee)
		}
		fmt.Printf("\nPreview complete. Would import %d transactions into account %s.\n",
			len(result.Transactions), targetID)
		return nil
	}

	if !*verbose {
		ui.Step(3, totalSteps, "Importing transactions")
	}

	importResult, err := imp.ImportStatement(string(content), fileName, importer.Options{
		AccountID:      targetID,
		SkipDuplicates: *skipDuplicates,
	})
	if err != nil {
		return err
	}

	if err := store.Save(*ledgerFile); err != nil {
		return fmt.Errorf("failed to save ledger: %w", err)
	}

	if *verbose {
		fmt.Fprintf(os.Stderr, "Imported: %d\n", importResult.Imported)
		fmt.Fprintf(os.Stderr, "Skipped duplicates: %d\n", importResult.Skipped)
	} else {
		ui.Success(fmt.Sprintf("Imported %d transactions (%d duplicates skipped)",
			importResult.Imported, importResult.Skipped))
	}
	return nil
}

func bankList(imp *importer.Importer) string {
	var out string
	for _, bank := range imp.Registry().SupportedBanks() {
		out += fmt.Sprintf("  - %s (%s)\n", bank.Name, bank.Code)
	}
	return out
}
