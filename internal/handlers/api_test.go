package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rumor-ml/commons.systems/bankimport/internal/converter"
	"github.com/rumor-ml/commons.systems/bankimport/internal/domain"
	"github.com/rumor-ml/commons.systems/bankimport/internal/history"
	"github.com/rumor-ml/commons.systems/bankimport/internal/importer"
	"github.com/rumor-ml/commons.systems/bankimport/internal/ledger"
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
  </Operations>
</statement>`

func newTestHandler(t *testing.T) (*APIHandler, *ledger.Store, *history.MemoryStore) {
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
	require.NoError(t, err)

	hist := history.NewMemoryStore()
	return NewAPIHandler(importer.New(store, hist), hist), store, hist
}

func postJSON(t *testing.T, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	return httptest.NewRequest(http.MethodPost, "/", strings.NewReader(string(data)))
}

func TestHealthCheck(t *testing.T) {
	w := httptest.NewRecorder()
	HealthCheck(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestGetBanks(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	w := httptest.NewRecorder()
	handler.GetBanks(w, httptest.NewRequest(http.MethodGet, "/api/banks", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var banks []converter.BankInfo
	require.NoError(t, json.NewDecoder(w.Body).Decode(&banks))
	require.Len(t, banks, 3)
	assert.Equal(t, "INSJAM", banks[0].Code)
	assert.Equal(t, "RZBMRU", banks[1].Code)
	assert.Equal(t, "OFXUNK", banks[2].Code)
}

func TestGetBanks_MethodNotAllowed(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	w := httptest.NewRecorder()
	handler.GetBanks(w, httptest.NewRequest(http.MethodPost, "/api/banks", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestPreviewStatement(t *testing.T) {
	handler, store, _ := newTestHandler(t)

	req := postJSON(t, map[string]string{
		"fileContent": sampleStatement,
		"fileName":    "statement.xml",
	})
	w := httptest.NewRecorder()
	handler.PreviewStatement(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Result           *converter.ParseResult `json:"result"`
		SuggestedAccount *domain.Account        `json:"suggestedAccount"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.NotNil(t, resp.Result)
	assert.Equal(t, "INSJAM", resp.Result.BankCode)
	assert.Len(t, resp.Result.Transactions, 1)
	require.NotNil(t, resp.SuggestedAccount)
	assert.Equal(t, "acc-1", resp.SuggestedAccount.ID)

	// Preview has no side effects.
	assert.Empty(t, store.TransactionsByID())
}

func TestPreviewStatement_Unsupported(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	req := postJSON(t, map[string]string{
		"fileContent": "plain text, not a statement",
		"fileName":    "notes.txt",
	})
	w := httptest.NewRecorder()
	handler.PreviewStatement(w, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestPreviewStatement_BadRequests(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	t.Run("invalid JSON", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{not json"))
		w := httptest.NewRecorder()
		handler.PreviewStatement(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing fileContent", func(t *testing.T) {
		req := postJSON(t, map[string]string{"fileName": "statement.xml"})
		w := httptest.NewRecorder()
		handler.PreviewStatement(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestImportStatement(t *testing.T) {
	handler, store, hist := newTestHandler(t)

	req := postJSON(t, map[string]any{
		"fileContent":    sampleStatement,
		"fileName":       "statement.xml",
		"accountId":      "acc-1",
		"skipDuplicates": true,
	})
	w := httptest.NewRecorder()
	handler.ImportStatement(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var result importer.Result
	require.NoError(t, json.NewDecoder(w.Body).Decode(&result))
	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 0, result.Skipped)
	require.NotNil(t, result.Record)

	assert.Len(t, store.TransactionsByID(), 1)
	assert.Len(t, hist.List(), 1)
}

func TestImportStatement_AccountNotFound(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	req := postJSON(t, map[string]string{
		"fileContent": sampleStatement,
		"fileName":    "statement.xml",
		"accountId":   "acc-missing",
	})
	w := httptest.NewRecorder()
	handler.ImportStatement(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestImportStatement_MissingAccountID(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	req := postJSON(t, map[string]string{
		"fileContent": sampleStatement,
		"fileName":    "statement.xml",
	})
	w := httptest.NewRecorder()
	handler.ImportStatement(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetHistory(t *testing.T) {
	handler, _, hist := newTestHandler(t)
	require.NoError(t, hist.Add(&history.Record{ID: "r1", ImportDate: 100}))

	w := httptest.NewRecorder()
	handler.GetHistory(w, httptest.NewRequest(http.MethodGet, "/api/history", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var records []*history.Record
	require.NoError(t, json.NewDecoder(w.Body).Decode(&records))
	require.Len(t, records, 1)
	assert.Equal(t, "r1", records[0].ID)
}
