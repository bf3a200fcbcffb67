package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"finanzas/internal/backend"
	"finanzas/internal/cli"
	"finanzas/internal/config"
	"finanzas/internal/core"
	"finanzas/internal/log"
	"finanzas/internal/middleware/auth"
	"finanzas/internal/services"
	"finanzas/internal/sheets"
	sheetsmem "finanzas/internal/sheets/memory"
	"finanzas/internal/storage"
	"finanzas/internal/worker"

	"github.com/google/subcommands"
)

var commands = []subcommands.Command{
	&reportCmd{},
	&reconcileCmd{},
	&openingBalanceCmd{},
}

// session is an opened backend plus the ledger built on it.
type session struct {
	cfg    *config.Config
	logger *log.Logger
	be     *backend.BackendResult
	ledger *cli.Ledger
}

func openSession(ctx context.Context) (*session, error) {
	cfg, err := cli.LoadConfig()
	if err != nil {
		return nil, err
	}
	logger := cli.SetupLogger(cfg, log.ComponentCLI, os.Stderr)
	be, err := cli.OpenBackend(ctx, logger, cfg)
	if err != nil {
		return nil, fmt.Errorf("open backend: %w", err)
	}
	ledger, err := cli.NewLedger(cfg, be)
	if err != nil {
		_ = be.Cleanup()
		return nil, err
	}
	return &session{cfg: cfg, logger: logger, be: be, ledger: ledger}, nil
}

func (s *session) Close() {
	s.ledger.Close()
	if err := s.be.Cleanup(); err != nil {
		s.logger.Warn("Backend cleanup failed", log.FieldError, err)
	}
}

func fail(err error) subcommands.ExitStatus {
	fmt.Fprintln(os.Stderr, err)
	return subcommands.ExitFailure
}

type reportCmd struct {
	owner  string
	months int
	from   string
	to     string
}

func (*reportCmd) Name() string     { return "report" }
func (*reportCmd) Synopsis() string { return "print totals, category breakdown and monthly series" }
func (*reportCmd) Usage() string {
	return `finanzasctl report [-owner <id>] [-months <n>] [-from YYYY-MM-DD] [-to YYYY-MM-DD]

  Aggregates the owner's transactions and prints account balances, totals per
  category and a monthly income/expense series ending with the current month.
`
}

func (c *reportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.owner, "owner", auth.LocalOwner, "Ledger owner id.")
	f.IntVar(&c.months, "months", services.DefaultReportMonths, "Length of the monthly series.")
	f.StringVar(&c.from, "from", "", "Only include transactions on or after this date.")
	f.StringVar(&c.to, "to", "", "Only include transactions before this date.")
}

func (c *reportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	var f core.Filter
	var err error
	if f.From, err = optionalDate(c.from); err != nil {
		return fail(err)
	}
	if f.To, err = optionalDate(c.to); err != nil {
		return fail(err)
	}

	s, err := openSession(ctx)
	if err != nil {
		return fail(err)
	}
	defer s.Close()

	accounts, err := s.ledger.ListAccounts(ctx, c.owner, true)
	if err != nil {
		return fail(err)
	}
	report, err := s.ledger.Report(ctx, c.owner, f, c.months)
	if err != nil {
		return fail(err)
	}
	if err := writeReport(os.Stdout, accounts, report); err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}

func writeReport(out io.Writer, accounts []core.Account, r services.Report) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "ACCOUNT\tKIND\tBALANCE\t")
	for _, a := range accounts {
		fmt.Fprintf(w, "%s\t%s\t%s\t\n", a.Name, a.Kind, core.FormatAmount(a.Balance))
	}
	fmt.Fprintln(w, "\t\t\t")
	fmt.Fprintf(w, "Income\t\t%s\t\n", core.FormatAmount(r.Totals.TotalIncome))
	fmt.Fprintf(w, "Expense\t\t%s\t\n", core.FormatAmount(r.Totals.TotalExpense))
	fmt.Fprintf(w, "Balance\t\t%s\t\n", core.FormatAmount(r.Totals.Balance))
	fmt.Fprintln(w, "\t\t\t")
	fmt.Fprintln(w, "EXPENSE CATEGORY\t\tAMOUNT\t")
	for _, c := range r.Expense {
		fmt.Fprintf(w, "%s\t\t%s\t\n", c.Name, core.FormatAmount(c.Amount))
	}
	fmt.Fprintln(w, "\t\t\t")
	fmt.Fprintln(w, "MONTH\tINCOME\tEXPENSE\tNET\t")
	for _, m := range r.Monthly {
		fmt.Fprintf(w, "%04d-%02d\t%s\t%s\t%s\t\n", m.Year, int(m.Month),
			core.FormatAmount(m.Income), core.FormatAmount(m.Expense), core.FormatAmount(m.Net()))
	}
	return w.Flush()
}

type reconcileCmd struct {
	owner   string
	account string
	fix     bool
}

func (*reconcileCmd) Name() string { return "reconcile" }
func (*reconcileCmd) Synopsis() string {
	return "compare stored balances with the balance implied by transactions"
}
func (*reconcileCmd) Usage() string {
	return `finanzasctl reconcile [-owner <id>] [-account <id>] [-fix]

  Recomputes initial balance plus every transaction for one account, or for
  all stored accounts of the owner, and reports drift. With -fix drifted
  balances are overwritten with the recomputed value.
`
}

func (c *reconcileCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.owner, "owner", auth.LocalOwner, "Ledger owner id.")
	f.StringVar(&c.account, "account", "", "Account id. Empty reconciles every stored account.")
	f.BoolVar(&c.fix, "fix", false, "Rewrite drifted balances.")
}

func (c *reconcileCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := openSession(ctx)
	if err != nil {
		return fail(err)
	}
	defer s.Close()

	results, err := reconcile(ctx, s.ledger.LedgerService, c.owner, c.account, c.fix)
	if err != nil {
		return fail(err)
	}
	drifted := writeReconciliations(os.Stdout, results)
	if drifted > 0 && !c.fix {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func reconcile(ctx context.Context, ledger *services.LedgerService, owner, account string, fix bool) ([]services.Reconciliation, error) {
	ids := []string{account}
	if account == "" {
		accs, err := ledger.ListAccounts(ctx, owner, false)
		if err != nil {
			return nil, err
		}
		ids = ids[:0]
		for _, a := range accs {
			ids = append(ids, a.ID)
		}
	}
	out := make([]services.Reconciliation, 0, len(ids))
	for _, id := range ids {
		r, err := ledger.ReconcileAccount(ctx, owner, id, fix)
		if err != nil {
			return out, fmt.Errorf("reconcile %s: %w", id, err)
		}
		out = append(out, r)
	}
	return out, nil
}

// writeReconciliations prints one line per account and returns how many drifted.
func writeReconciliations(out io.Writer, results []services.Reconciliation) int {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ACCOUNT\tSTORED\tEXPECTED\tDRIFT\tFIXED")
	drifted := 0
	for _, r := range results {
		if !r.Drift.IsZero() {
			drifted++
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\n", r.AccountID,
			core.FormatAmount(r.Stored), core.FormatAmount(r.Expected), core.FormatAmount(r.Drift), r.Fixed)
	}
	_ = w.Flush()
	return drifted
}

type openingBalanceCmd struct {
	owner   string
	account string
	amount  string
}

func (*openingBalanceCmd) Name() string     { return "opening-balance" }
func (*openingBalanceCmd) Synopsis() string { return "set the opening balance of an account or cash" }
func (*openingBalanceCmd) Usage() string {
	return `finanzasctl opening-balance [-owner <id>] -account <id|cash> -amount <decimal>

  Replaces the opening-balance entry of the account. Zero removes it; a
  negative amount is recorded as an expense.
`
}

func (c *openingBalanceCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.owner, "owner", auth.LocalOwner, "Ledger owner id.")
	f.StringVar(&c.account, "account", core.CashRef, "Account id, or cash.")
	f.StringVar(&c.amount, "amount", "", "Opening balance, e.g. 1250.00.")
}

func (c *openingBalanceCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	amount, err := core.ParseSignedAmount(c.amount)
	if err != nil {
		return fail(err)
	}
	s, err := openSession(ctx)
	if err != nil {
		return fail(err)
	}
	defer s.Close()

	t, err := s.ledger.SetOpeningBalance(ctx, c.owner, c.account, amount)
	if err != nil {
		return fail(err)
	}
	if t.ID == "" {
		fmt.Printf("opening balance of %s removed\n", c.account)
	} else {
		fmt.Printf("opening balance of %s set to %s (%s)\n", t.AccountRef(), core.FormatAmount(core.SignedDelta(t)), t.ID)
	}
	return subcommands.ExitSuccess
}

type backfillCmd struct {
	owner  string
	dryRun bool
}

func (*backfillCmd) Name() string     { return "mirror-backfill" }
func (*backfillCmd) Synopsis() string { return "write every transaction to the spreadsheet mirror" }
func (*backfillCmd) Usage() string {
	return `finanzasctl mirror-backfill [-owner <id>]

  Upserts all of the owner's transactions into the configured Google Sheet.
  Rows already carrying a newer version are left alone, so it is safe to run
  while the worker is consuming events. With -dry-run the rows are rendered
  into memory and counted without contacting Google.
`
}

func (c *backfillCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.owner, "owner", auth.LocalOwner, "Ledger owner id.")
	f.BoolVar(&c.dryRun, "dry-run", false, "Render rows in memory instead of writing the sheet.")
}

func (c *backfillCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := openSession(ctx)
	if err != nil {
		return fail(err)
	}
	defer s.Close()
	var mirror sheets.TransactionMirror
	if c.dryRun {
		mirror = sheetsmem.New()
	} else {
		if !s.cfg.SheetsEnabled() {
			return fail(fmt.Errorf("GOOGLE_SPREADSHEET_ID is not set"))
		}
		if mirror, err = cli.OpenSheetsMirror(ctx, s.cfg); err != nil {
			return fail(err)
		}
	}
	res, err := worker.NewSyncWorker(mirror, s.logger.WithComponent(log.ComponentSheets)).Backfill(ctx, s.be.Store, c.owner)
	if err != nil {
		return fail(err)
	}
	fmt.Printf("scanned %d transactions, wrote %d rows\n", res.Scanned, res.Written)
	return subcommands.ExitSuccess
}

type tokenCmd struct {
	owner string
	ttl   time.Duration
}

func (*tokenCmd) Name() string     { return "token" }
func (*tokenCmd) Synopsis() string { return "issue an API bearer token for an owner" }
func (*tokenCmd) Usage() string {
	return `finanzasctl token -owner <id> [-ttl 720h]

  Signs an HS256 token with AUTH_JWT_SECRET whose subject is the owner id.
`
}

func (c *tokenCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.owner, "owner", "", "Ledger owner id.")
	f.DurationVar(&c.ttl, "ttl", 30*24*time.Hour, "Token lifetime.")
}

func (c *tokenCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := cli.LoadConfig()
	if err != nil {
		return fail(err)
	}
	if cfg.AuthJWTSecret == "" {
		return fail(fmt.Errorf("AUTH_JWT_SECRET is not set"))
	}
	token, err := auth.IssueToken([]byte(cfg.AuthJWTSecret), c.owner, c.ttl, time.Now())
	if err != nil {
		return fail(err)
	}
	fmt.Println(token)
	return subcommands.ExitSuccess
}

type schemaCmd struct{}

func (*schemaCmd) Name() string     { return "schema-version" }
func (*schemaCmd) Synopsis() string { return "print the SQLite schema migration version" }
func (*schemaCmd) Usage() string {
	return `finanzasctl schema-version

  Applies pending migrations to SQLITE_DB_PATH and prints the resulting version.
`
}
func (*schemaCmd) SetFlags(*flag.FlagSet) {}

func (*schemaCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := cli.LoadConfig()
	if err != nil {
		return fail(err)
	}
	if cfg.DataBackend != config.BackendSQLite {
		return fail(fmt.Errorf("schema-version only applies to the sqlite backend"))
	}
	if err := storage.RunMigrations(cfg.SQLiteDBPath); err != nil {
		return fail(err)
	}
	version, dirty, err := storage.SchemaVersion(cfg.SQLiteDBPath)
	if err != nil {
		return fail(err)
	}
	fmt.Printf("schema version %d (dirty: %t)\n", version, dirty)
	return subcommands.ExitSuccess
}

func optionalDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return t, nil
}
