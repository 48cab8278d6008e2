package importer

import (
	"errors"
	"strings"
	"testing"

	"github.com/rumor-ml/commons.systems/bankimport/internal/converter"
	"github.com/rumor-ml/commons.systems/bankimport/internal/domain"
	"github.com/rumor-ml/commons.systems/bankimport/internal/history"
	"github.com/rumor-ml/commons.systems/bankimport/internal/ledger"
	"github.com/rumor-ml/commons.systems/bankimport/internal/rules"
)

const sampleStatement = `<?xml version="1.0" encoding="utf-8"?>
<statement>
  <AccountNumber>2050122334455600</AccountNumber>
  <Currency>AMD</Currency>
  <Period>[01/03/2024] - [31/03/2024]</Period>
  <Operations>
    <Operation>
      <n-n>240315001</n-n>
      <Date>15/03/2024</Date>
      <Income>1,234.50</Income>
      <Expense></Expense>
      <Receiver-Payer>ACME LLC</Receiver-Payer>
      <Details>Invoice payment</Details>
    </Operation>
    <Operation>
      <n-n>240316002</n-n>
      <Date>16/03/2024</Date>
      <Income></Income>
      <Expense>500.00</Expense>
      <Receiver-Payer>Coffee shop</Receiver-Payer>
      <Details>Card purchase</Details>
    </Operation>
  </Operations>
</statement>`

func newTestLedger(t *testing.T) *ledger.Store {
	t.Helper()
	store := ledger.NewStore()
	err := store.AddAccount(&domain.Account{
		ID:                "acc-1",
		User:              "user-1",
		Instrument:        "AMD",
		Title:             "Ineco Card",
		Type:              domain.AccountTypeCard,
		SwiftCode:         "INSJAM",
		BankAccountNumber: "2050122334455600",
	})
	if err != nil {
		t.Fatalf("failed to seed account: %v", err)
	}
	return store
}

func TestDefaultRegistry_Order(t *testing.T) {
	banks := DefaultRegistry().SupportedBanks()
	if len(banks) != 3 {
		t.Fatalf("got %d converters, want 3", len(banks))
	}
	// Bank-specific converters must come before the generic OFX one.
	want := []string{"INSJAM", "RZBMRU", "OFXUNK"}
	for i, code := range want {
		if banks[i].Code != code {
			t.Errorf("converter %d = %s, want %s", i, banks[i].Code, code)
		}
	}
}

func TestImportStatement(t *testing.T) {
	store := newTestLedger(t)
	hist := history.NewMemoryStore()
	imp := New(store, hist)

	result, err := imp.ImportStatement(sampleStatement, "statement.xml", Options{
		AccountID:      "acc-1",
		SkipDuplicates: true,
	})
	if err != nil {
		t.Fatalf("ImportStatement() error = %v", err)
	}

	if result.Imported != 2 || result.Skipped != 0 {
		t.Errorf("imported=%d skipped=%d, want 2/0", result.Imported, result.Skipped)
	}

	transactions := store.TransactionsByID()
	if len(transactions) != 2 {
		t.Fatalf("ledger has %d transactions, want 2", len(transactions))
	}

	var income, outcome *domain.Transaction
	for _, tr := range transactions {
		if tr.Income > 0 {
			income = tr
		} else {
			outcome = tr
		}
	}
	if income == nil || outcome == nil {
		t.Fatal("expected one income and one outcome transaction")
	}

	if income.Income != 1234.50 || income.Outcome != 0 {
		t.Errorf("income sides = %v/%v, want 1234.50/0", income.Income, income.Outcome)
	}
	if income.IncomeAccount != "acc-1" || income.OutcomeAccount != "acc-1" {
		t.Error("imported postings must reference the target account on both sides")
	}
	if income.IncomeInstrument != "AMD" {
		t.Errorf("instrument = %q, want account currency", income.IncomeInstrument)
	}
	if income.User != "user-1" {
		t.Errorf("user = %q, want account owner", income.User)
	}
	if income.Payee != "ACME LLC" || income.OriginalPayee != "ACME LLC" {
		t.Errorf("payee = %q/%q", income.Payee, income.OriginalPayee)
	}
	if income.Comment != "[Import: 240315001] Invoice payment" {
		t.Errorf("comment = %q", income.Comment)
	}
	if income.ID == "" || income.ID == outcome.ID {
		t.Error("imported transactions need distinct generated IDs")
	}
	if income.Created == 0 || income.Changed == 0 {
		t.Error("imported transactions must carry timestamps")
	}

	if outcome.Outcome != 500.00 || outcome.Income != 0 {
		t.Errorf("outcome sides = %v/%v, want 0/500.00", outcome.Income, outcome.Outcome)
	}

	// History record
	records := hist.List()
	if len(records) != 1 {
		t.Fatalf("history has %d records, want 1", len(records))
	}
	rec := records[0]
	if rec.BankCode != "INSJAM" || rec.AccountID != "acc-1" || rec.FileName != "statement.xml" {
		t.Errorf("history record = %+v", rec)
	}
	if rec.DateRangeStart != "2024-03-01" || rec.DateRangeEnd != "2024-03-31" {
		t.Errorf("history period = %s..%s", rec.DateRangeStart, rec.DateRangeEnd)
	}
	if rec.TransactionCount != 2 || len(rec.TransactionIDs) != 2 {
		t.Errorf("history counts = %d/%d", rec.TransactionCount, len(rec.TransactionIDs))
	}
	if result.Record == nil || result.Record.ID != rec.ID {
		t.Error("result should carry the history record")
	}
}

func TestImportStatement_Idempotent(t *testing.T) {
	store := newTestLedger(t)
	imp := New(store, history.NewMemoryStore())

	opts := Options{AccountID: "acc-1", SkipDuplicates: true}
	if _, err := imp.ImportStatement(sampleStatement, "statement.xml", opts); err != nil {
		t.Fatalf("first import error = %v", err)
	}

	second, err := imp.ImportStatement(sampleStatement, "statement.xml", opts)
	if err != nil {
		t.Fatalf("second import error = %v", err)
	}
	if second.Imported != 0 || second.Skipped != 2 {
		t.Errorf("second import = %d/%d, want 0 imported / 2 skipped", second.Imported, second.Skipped)
	}
	if len(store.TransactionsByID()) != 2 {
		t.Errorf("ledger has %d transactions after re-import, want 2", len(store.TransactionsByID()))
	}
}

func TestImportStatement_DuplicatesKeptWhenDisabled(t *testing.T) {
	store := newTestLedger(t)
	imp := New(store, history.NewMemoryStore())

	opts := Options{AccountID: "acc-1", SkipDuplicates: false}
	imp.ImportStatement(sampleStatement, "statement.xml", opts)
	second, err := imp.ImportStatement(sampleStatement, "statement.xml", opts)
	if err != nil {
		t.Fatalf("second import error = %v", err)
	}
	if second.Imported != 2 {
		t.Errorf("imported = %d, want 2 when duplicate skipping is off", second.Imported)
	}
	if len(store.TransactionsByID()) != 4 {
		t.Errorf("ledger has %d transactions, want 4", len(store.TransactionsByID()))
	}
}

func TestImportStatement_AccountNotFound(t *testing.T) {
	imp := New(newTestLedger(t), history.NewMemoryStore())

	_, err := imp.ImportStatement(sampleStatement, "statement.xml", Options{AccountID: "acc-missing"})
	if !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("error = %v, want ErrAccountNotFound", err)
	}
}

func TestImportStatement_UnsupportedFormat(t *testing.T) {
	imp := New(newTestLedger(t), history.NewMemoryStore())

	_, err := imp.ImportStatement("just some text", "notes.txt", Options{AccountID: "acc-1"})
	if !errors.Is(err, converter.ErrUnsupportedFormat) {
		t.Fatalf("error = %v, want ErrUnsupportedFormat", err)
	}
	if len(imp.ledger.TransactionsByID()) != 0 {
		t.Error("a failed import must not touch the ledger")
	}
}

func TestImportStatement_AppliesRules(t *testing.T) {
	store := newTestLedger(t)
	imp := New(store, history.NewMemoryStore())

	engine, err := rules.NewEngine([]byte(`rules:
  - {name: coffee, pattern: coffee, match_type: contains, priority: 100, tag: tag-coffee}
`))
	if err != nil {
		t.Fatalf("failed to build rules engine: %v", err)
	}
	imp.SetRules(engine)

	if _, err := imp.ImportStatement(sampleStatement, "statement.xml", Options{AccountID: "acc-1"}); err != nil {
		t.Fatalf("ImportStatement() error = %v", err)
	}

	tagged := 0
	for _, tr := range store.TransactionsByID() {
		if len(tr.Tag) == 1 && tr.Tag[0] == "tag-coffee" {
			tagged++
		}
	}
	if tagged != 1 {
		t.Errorf("got %d tagged transactions, want 1 (only the coffee payee)", tagged)
	}
}

func TestImportStatement_LongMemoTruncated(t *testing.T) {
	store := newTestLedger(t)
	imp := New(store, history.NewMemoryStore())

	longMemo := strings.Repeat("x", 300)
	content := strings.Replace(sampleStatement, "Invoice payment", longMemo, 1)

	if _, err := imp.ImportStatement(content, "statement.xml", Options{AccountID: "acc-1"}); err != nil {
		t.Fatalf("ImportStatement() error = %v", err)
	}
	for _, tr := range store.TransactionsByID() {
		if len([]rune(tr.Comment)) > 255 {
			t.Errorf("comment length = %d, want <= 255", len([]rune(tr.Comment)))
		}
	}
}

func TestPreviewImport_NoSideEffects(t *testing.T) {
	store := newTestLedger(t)
	hist := history.NewMemoryStore()
	imp := New(store, hist)

	result, err := imp.PreviewImport(sampleStatement, "statement.xml")
	if err != nil {
		t.Fatalf("PreviewImport() error = %v", err)
	}
	if len(result.Transactions) != 2 {
		t.Errorf("preview has %d transactions, want 2", len(result.Transactions))
	}
	if len(store.TransactionsByID()) != 0 {
		t.Error("preview must not write to the ledger")
	}
	if len(hist.List()) != 0 {
		t.Error("preview must not record history")
	}
}

func TestSuggestAccount(t *testing.T) {
	imp := New(newTestLedger(t), history.NewMemoryStore())

	result, err := imp.PreviewImport(sampleStatement, "statement.xml")
	if err != nil {
		t.Fatalf("PreviewImport() error = %v", err)
	}
	acc := imp.SuggestAccount(result)
	if acc == nil || acc.ID != "acc-1" {
		t.Errorf("SuggestAccount() = %v, want acc-1", acc)
	}
}
