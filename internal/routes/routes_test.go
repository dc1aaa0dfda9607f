package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"payout-invoice-backend/internal/config"
	"payout-invoice-backend/internal/models"
	"payout-invoice-backend/internal/repository"
	mock_repository "payout-invoice-backend/internal/repository/mocks"

	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var payoutHeader = []string{
	models.ColOwner, models.ColPlatform, models.ColPeriod, models.ColRestaurant,
	models.ColOrderCount, models.ColTotalPayout, models.ColSubtotal, models.ColPassedOnTax,
	models.ColFacilitatorTax, models.ColMarketplaceFee, models.ColAdditionalFees, models.ColAdFee,
	models.ColFinalNetPayout,
}

var payoutRows = [][]string{
	{"Alice", "DoorDash", "2024-W02", "Main St", "2", "20", "10", "1", "1", "2", "5", "0", "20"},
	{"Bob", "Grubhub", "2024-W01", "Side St", "1", "30", "10", "1", "1", "2", "5", "0", "30"},
}

type fileRenderer struct{}

func (fileRenderer) Render(_ context.Context, _ models.OwnerInvoice, path string) error {
	return os.WriteFile(path, []byte("%PDF-1.3"), 0o644)
}

type testServer struct {
	engine *gin.Engine
	source *mock_repository.MockTableSource
	cfg    *config.AppConfig
}

func newTestServer(t *testing.T) *testServer {
	gin.SetMode(gin.TestMode)
	ctrl := gomock.NewController(t)
	cfg := &config.AppConfig{
		OutputDir:         t.TempDir(),
		MaintenanceMaxAge: time.Hour,
		Sheets: config.SheetDefaults{
			InvoiceSheetID: "default-sheet",
			InvoiceRange:   "A:Z",
			MasterRange:    "M!A:K",
			MaxPDFs:        -1,
		},
		Pipeline: config.DefaultPipeline(),
		Profiles: &config.Profiles{},
	}
	cfg.Pipeline.BatchPause = 0

	ts := &testServer{engine: gin.New(), source: mock_repository.NewMockTableSource(ctrl), cfg: cfg}
	RegisterRoutes(ts.engine, Deps{
		Config:   cfg,
		Source:   ts.source,
		Store:    repository.NewMemoryRunStore(time.Hour),
		Renderer: fileRenderer{},
		Logger:   zaptest.NewLogger(t),
	})
	return ts
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	ts.engine.ServeHTTP(w, req)
	return w
}

func (ts *testServer) postJSON(path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return ts.do(req)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, Version, body["version"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestValidateThenGenerate(t *testing.T) {
	ts := newTestServer(t)
	ts.source.EXPECT().FetchTable(gomock.Any(), "default-sheet", "A:Z").
		Return(models.NewTable(payoutHeader, payoutRows), nil)

	w := ts.postJSON("/api/validate", `{"max_pdfs": 1}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "valid", body["status"])
	id, _ := body["validation_id"].(string)
	require.NotEmpty(t, id)

	w = ts.postJSON("/api/generate/"+id, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "invoices_"+id+".zip")
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")))
	assert.NoDirExists(t, filepath.Join(ts.cfg.OutputDir, id))

	w = ts.postJSON("/api/generate/"+id, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestValidate_EmptyBodyUsesDefaults(t *testing.T) {
	ts := newTestServer(t)
	ts.source.EXPECT().FetchTable(gomock.Any(), "default-sheet", "A:Z").
		Return(models.NewTable(payoutHeader, payoutRows), nil)

	w := ts.postJSON("/api/validate", "")

	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestValidate_RejectsBadMaxPDFs(t *testing.T) {
	ts := newTestServer(t)

	w := ts.postJSON("/api/validate", `{"max_pdfs": -5}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["error"], "max_pdfs")
}

func TestValidate_SourceUnavailable(t *testing.T) {
	ts := newTestServer(t)
	ts.source.EXPECT().FetchTable(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(models.Table{}, repository.ErrSourceUnavailable)

	w := ts.postJSON("/api/validate", `{}`)

	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestGenerate_UnknownID(t *testing.T) {
	ts := newTestServer(t)

	w := ts.postJSON("/api/generate/does-not-exist", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Validation ID not found. Please validate data first.", decode(t, w)["error"])
}

func TestGenerate_FailedValidation(t *testing.T) {
	ts := newTestServer(t)
	bad := [][]string{{"", "DoorDash", "2024-W01", "R", "1", "10", "10", "1", "1", "2", "5", "0", "10"}}
	ts.source.EXPECT().FetchTable(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(models.NewTable(payoutHeader, bad), nil)

	w := ts.postJSON("/api/validate", `{}`)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "invalid", body["status"])

	w = ts.postJSON("/api/generate/"+body["validation_id"].(string), "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func uploadRequest(t *testing.T, filename, content string, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/validate/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func payoutCSV() string {
	lines := []string{strings.Join(payoutHeader, ",")}
	for _, r := range payoutRows {
		lines = append(lines, strings.Join(r, ","))
	}
	return strings.Join(lines, "\n") + "\n"
}

func TestValidateUpload_CSV(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(uploadRequest(t, "payouts.csv", payoutCSV(), map[string]string{"max_pdfs": "1"}))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "valid", body["status"])
	summary := body["data_summary"].(map[string]any)
	assert.EqualValues(t, 2, summary["total_records"])
}

func TestValidateUpload_Errors(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(uploadRequest(t, "", "", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(uploadRequest(t, "payouts.txt", "x", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(uploadRequest(t, "payouts.csv", payoutCSV(), map[string]string{"max_pdfs": "abc"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestValidateUpload_ConfigOverrides(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(uploadRequest(t, "payouts.csv", payoutCSV(), map[string]string{
		"config": `{"suspicious_payout_threshold": 25}`,
	}))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "valid", body["status"])
	warnings, _ := body["warning_details"].([]any)
	require.Len(t, warnings, 1)
	assert.Equal(t, "suspicious_amount", warnings[0].(map[string]any)["type"])
}

func TestValidateUpload_RejectsBadConfig(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(uploadRequest(t, "payouts.csv", payoutCSV(), map[string]string{"config": `{"no_such_key": 1}`}))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(uploadRequest(t, "payouts.csv", payoutCSV(), map[string]string{"config": `{"workers": 0}`}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

var (
	invoiceHeader = []string{models.ColStoreID, models.ColRestaurant, models.ColPlatform, models.ColOwner, models.ColDepositStatus}
	masterHeader  = []string{models.ColStoreID, models.ColMasterRestaurant}
)

func expectSheets(ts *testServer, invoice, master models.Table) {
	ts.source.EXPECT().FetchTable(gomock.Any(), "inv", "A:Z").Return(invoice, nil)
	ts.source.EXPECT().FetchTable(gomock.Any(), "mst", "M!A:K").Return(master, nil)
}

func TestReconciliation_StoreIDs(t *testing.T) {
	ts := newTestServer(t)
	expectSheets(ts,
		models.NewTable(invoiceHeader, [][]string{
			{"1", "Alpha", "DoorDash", "A", "Matched"},
			{"2", "Beta", "DoorDash", "B", "Matched"},
		}),
		models.NewTable(masterHeader, [][]string{{"2", "Beta"}, {"3", "Gamma"}}),
	)

	w := ts.postJSON("/api/reconciliation/store-ids", `{"invoice_sheet_id":"inv","master_sheet_id":"mst"}`)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "success", body["status"])
	results := body["results"].(map[string]any)
	assert.Equal(t, []any{"2"}, results["matched_stores"])
	assert.Equal(t, []any{"1"}, results["missing_in_master"])
	assert.Equal(t, []any{"3"}, results["missing_in_invoice"])
}

func TestReconciliation_StoreMatches(t *testing.T) {
	ts := newTestServer(t)
	expectSheets(ts,
		models.NewTable(invoiceHeader, [][]string{
			{"1", "Alpha", "DoorDash", "A", "Matched"},
			{"9", "Nine", "UberEats", "N", "False"},
		}),
		models.NewTable(masterHeader, [][]string{{"1", "Alpha"}}),
	)

	w := ts.postJSON("/api/reconciliation/store-matches", `{"invoice_sheet_id":"inv","master_sheet_id":"mst"}`)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.NotEmpty(t, body["next_steps"])
	assert.NotEmpty(t, body["analysis_timestamp"])
	results := body["results"].(map[string]any)
	assert.EqualValues(t, 1, results["false_count"])
}

func TestReconciliation_StoreNames(t *testing.T) {
	ts := newTestServer(t)
	expectSheets(ts,
		models.NewTable(invoiceHeader, [][]string{{"1", "Taco-Bell", "DoorDash", "A", "Matched"}}),
		models.NewTable(masterHeader, [][]string{{"1", "taco bell"}}),
	)

	w := ts.postJSON("/api/reconciliation/store-names", `{"invoice_sheet_id":"inv","master_sheet_id":"mst"}`)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestReconciliation_RequiresMasterSheet(t *testing.T) {
	ts := newTestServer(t)

	w := ts.postJSON("/api/reconciliation/store-ids", `{"invoice_sheet_id":"inv"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReconciliation_MissingColumn(t *testing.T) {
	ts := newTestServer(t)
	expectSheets(ts,
		models.NewTable([]string{"Name"}, [][]string{{"Alpha"}}),
		models.NewTable(masterHeader, [][]string{{"1", "Alpha"}}),
	)

	w := ts.postJSON("/api/reconciliation/store-ids", `{"invoice_sheet_id":"inv","master_sheet_id":"mst"}`)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestMaintenanceCleanup(t *testing.T) {
	ts := newTestServer(t)
	staleDir := filepath.Join(ts.cfg.OutputDir, "stale-run")
	staleFile := filepath.Join(ts.cfg.OutputDir, "invoices_old.zip")
	freshFile := filepath.Join(ts.cfg.OutputDir, "invoices_new.zip")
	require.NoError(t, os.MkdirAll(staleDir, 0o755))
	require.NoError(t, os.WriteFile(staleFile, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(freshFile, []byte("x"), 0o644))
	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(staleDir, past, past))
	require.NoError(t, os.Chtimes(staleFile, past, past))

	w := ts.postJSON("/api/maintenance/cleanup", "")

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.EqualValues(t, 1, body["files_removed"])
	assert.EqualValues(t, 1, body["dirs_removed"])
	assert.NoDirExists(t, staleDir)
	assert.NoFileExists(t, staleFile)
	assert.FileExists(t, freshFile)
}
