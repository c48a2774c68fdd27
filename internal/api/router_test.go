package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-elhub-stats/internal/api/handler"
	"go-elhub-stats/internal/config"
	"go-elhub-stats/internal/model"
	"go-elhub-stats/internal/pipeline"
	"go-elhub-stats/internal/selection"
	"go-elhub-stats/internal/store"
	"go-elhub-stats/pkg/router"
	"go-elhub-stats/pkg/utils"
)

var fixtures = map[string]string{
	"mplog.csv": "usage_date,brs,state,count\n" +
		"Jan-21,1,1,5\n" +
		"Mar-21,1,1,2\n" +
		"Jan-22,2,1,4\n" +
		"Jan-22,3,1,7\n" +
		"Jan-21,1,2,9\n" +
		"Foo-21,1,1,1\n",
	"dim_brs.csv":     "id,process_code,group\n1,BRS-NO-101,Leverandorskifte\n2,BRS-NO-102,Leverandorskifte\n3,BRS-NO-301,Legacy\n",
	"dim_mpstate.csv": "id,status_kode\n1,Completed\n2,Rejected\n",
	"solar.csv": "id,postal_code,mtr_pt_installed_capacity,valid_from,valid_to,mtr_grid_area_id\n" +
		"m1,0150,10.5,2021-01-15T10:00:00Z,,G1\n" +
		"m2,0150,5,2021-02-03T10:00:00Z,2021-03-10T12:00:00Z,G2\n",
	"postal.csv":  "Postnummer;Poststed;Latitude;Longitude\n0150;OSLO;59.91;10.75\n",
	"dim_mga.csv": "udc_id,name\nG1,NO1\nG2,NO5\n",
}

type testServer struct {
	http.Handler
	dashboard *pipeline.Dashboard
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	for name, content := range fixtures {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	path := func(name string) string { return filepath.Join(dir, name) }

	return config.Config{
		Port:      8080,
		OutputDir: filepath.Join(dir, "output"),
		Timezone:  "Europe/Oslo",
		Market: config.MarketConfig{
			FactPath:       path("mplog.csv"),
			BRSPath:        path("dim_brs.csv"),
			StatePath:      path("dim_mpstate.csv"),
			ExcludedGroups: []string{"Legacy"},
			DefaultStatus:  "Completed",
		},
		Installation: config.InstallationConfig{
			FactPath:        path("solar.csv"),
			PostalPath:      path("postal.csv"),
			GridPath:        path("dim_mga.csv"),
			PostalDelimiter: ";",
			CapacityDivisor: 100,
		},
	}
}

func newTestServer(t *testing.T, withStore bool) *testServer {
	t.Helper()
	if withStore {
		require.NoError(t, store.InitDB(":memory:"))
		t.Cleanup(func() { store.Close() })
	}

	cfg := testConfig(t)
	dashboard := pipeline.NewDashboard(cfg, nil)
	require.NoError(t, dashboard.Refresh(context.Background()))
	return serverFor(cfg, dashboard)
}

func serverFor(cfg config.Config, dashboard *pipeline.Dashboard) *testServer {
	r := router.New()
	RegisterRoutes(r, handler.New(dashboard, selection.NewManager(time.Hour), utils.NewOutputManager(cfg.OutputDir)))
	return &testServer{Handler: r, dashboard: dashboard}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(method, path, reader))
	return rec
}

type sessionBody struct {
	ID        string               `json:"id"`
	Selection model.SelectionState `json:"selection"`
}

type chartBody struct {
	Status          string          `json:"status"`
	SelectedOptions []string        `json:"selected_options"`
	Chart           model.WideTable `json:"chart"`
}

func createSession(t *testing.T, s *testServer) sessionBody {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/v1/sessions", "")
	require.Equal(t, http.StatusCreated, rec.Code)

	var body sessionBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body.ID)
	return body
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestServer(t, false)
	created := createSession(t, s)
	assert.Equal(t, []string{"Leverandorskifte"}, created.Selection.SelectedGroups)
	assert.Equal(t, []string{"BRS-NO-101", "BRS-NO-102"}, created.Selection.SelectedOptions)
	assert.Equal(t, "Completed", created.Selection.Status)

	base := "/api/v1/sessions/" + created.ID

	rec := s.do(t, http.MethodPut, base+"/groups", `{"groups":["Legacy"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var updated sessionBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, []string{"BRS-NO-301"}, updated.Selection.SelectedOptions)

	rec = s.do(t, http.MethodPut, base+"/options", `{"options":["BRS-NO-101"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var current sessionBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &current))
	assert.Equal(t, []string{"Legacy"}, current.Selection.SelectedGroups)
	assert.Equal(t, []string{"BRS-NO-101"}, current.Selection.SelectedOptions)

	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, base, "").Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, base, "").Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodDelete, base, "").Code)
}

func TestSessionErrors(t *testing.T) {
	s := newTestServer(t, false)
	created := createSession(t, s)
	base := "/api/v1/sessions/" + created.ID

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"unknown session", http.MethodGet, "/api/v1/sessions/nope/chart", "", http.StatusNotFound},
		{"unknown session update", http.MethodPut, "/api/v1/sessions/nope/groups", `{"groups":[]}`, http.StatusNotFound},
		{"bad json", http.MethodPut, base + "/groups", `{"groups":`, http.StatusBadRequest},
		{"unknown status", http.MethodGet, base + "/chart?status=Bogus", "", http.StatusBadRequest},
		{"unknown format", http.MethodGet, base + "/export?format=pdf", "", http.StatusBadRequest},
		{"wrong method", http.MethodPost, base + "/chart", "", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, s.do(t, tt.method, tt.path, tt.body).Code)
		})
	}
}

func TestSessionChart(t *testing.T) {
	s := newTestServer(t, false)
	created := createSession(t, s)
	base := "/api/v1/sessions/" + created.ID

	rec := s.do(t, http.MethodGet, base+"/chart", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body chartBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Completed", body.Status)
	assert.Equal(t, []int{2021, 2022}, body.Chart.Years)
	require.Len(t, body.Chart.Rows, 12)
	assert.Equal(t, []model.NullFloat{model.Float(5), model.Float(4)}, body.Chart.Rows[0].Cells)
	// months without processes are null, not 0
	assert.Contains(t, rec.Body.String(), `"cells":[null,null]`)

	// status from the query is kept by the session
	rec = s.do(t, http.MethodGet, base+"/chart?status=Rejected", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var rejected chartBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rejected))
	assert.Equal(t, []model.NullFloat{model.Float(9), {}}, rejected.Chart.Rows[0].Cells)

	rec = s.do(t, http.MethodGet, base, "")
	var current sessionBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &current))
	assert.Equal(t, "Rejected", current.Selection.Status)
}

func TestSessionChartEmptySelection(t *testing.T) {
	s := newTestServer(t, false)
	created := createSession(t, s)
	base := "/api/v1/sessions/" + created.ID

	require.Equal(t, http.StatusOK, s.do(t, http.MethodPut, base+"/groups", `{"groups":[]}`).Code)

	rec := s.do(t, http.MethodGet, base+"/chart", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "Please select at least one market process", strings.TrimSpace(rec.Body.String()))

	assert.Equal(t, http.StatusUnprocessableEntity, s.do(t, http.MethodGet, base+"/export", "").Code)
}

func TestSessionExport(t *testing.T) {
	s := newTestServer(t, true)
	created := createSession(t, s)

	rec := s.do(t, http.MethodGet, "/api/v1/sessions/"+created.ID+"/export", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "elhub-markedsprosesser-utsnitt-")
	assert.Equal(t, "12", rec.Header().Get("X-Record-Count"))

	body := rec.Body.Bytes()
	require.True(t, bytes.HasPrefix(body, []byte{0xEF, 0xBB, 0xBF}))
	lines := strings.Split(strings.TrimSpace(string(body[3:])), "\n")
	assert.Equal(t, "month,state,2021,2022", lines[0])
	assert.Equal(t, "1,Completed,5,4", lines[1])
	assert.Equal(t, "2,Completed,,", lines[2])

	// the export is listed under its run and can be downloaded again
	_, run := s.dashboard.MarketProcesses()
	rec = s.do(t, http.MethodGet, "/api/v1/files/"+run.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var files struct {
		Count int                `json:"count"`
		Files []model.OutputFile `json:"files"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &files))
	require.Equal(t, 1, files.Count)

	download := s.do(t, http.MethodGet, files.Files[0].FilePath, "")
	require.Equal(t, http.StatusOK, download.Code)
	assert.Equal(t, body, download.Body.Bytes())

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/v1/download/"+run.ID+"/missing.csv", "").Code)
}

func TestMarketProcesses(t *testing.T) {
	s := newTestServer(t, false)

	rec := s.do(t, http.MethodGet, "/api/v1/market-processes?limit=2&offset=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Total   int                      `json:"total"`
		Count   int                      `json:"count"`
		Records []map[string]interface{} `json:"records"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 5, body.Total)
	assert.Equal(t, 2, body.Count)
	assert.Equal(t, "2021-03", body.Records[0]["usage_date"])

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/v1/market-processes?limit=x", "").Code)

	rec = s.do(t, http.MethodGet, "/api/v1/market-processes/catalog", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var catalog model.Catalog
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &catalog))
	assert.Equal(t, []string{"Completed", "Rejected"}, catalog.Statuses)

	rec = s.do(t, http.MethodGet, "/api/v1/market-processes/export?format=json", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "5", rec.Header().Get("X-Record-Count"))

	rec = s.do(t, http.MethodGet, "/api/v1/market-processes/export?format=xlsx", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")))
}

func TestInstallations(t *testing.T) {
	s := newTestServer(t, false)

	rec := s.do(t, http.MethodGet, "/api/v1/installations/monthly", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var monthly struct {
		Units       model.RunningTotals `json:"units"`
		Capacity    model.RunningTotals `json:"capacity"`
		UnitsByYear []model.YearTotal   `json:"units_by_year"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &monthly))
	require.Len(t, monthly.Units.Periods, 3)
	assert.Equal(t, -1.0, monthly.Units.Periods[2].Sum)
	assert.Equal(t, 1.0, monthly.Units.Periods[2].Cumulative)
	assert.Equal(t, 0.105, monthly.Capacity.Periods[0].Sum)
	assert.Equal(t, []model.YearTotal{{Year: 2021, Sum: 1, Cumulative: 1}}, monthly.UnitsByYear)

	rec = s.do(t, http.MethodGet, "/api/v1/installations/by-month", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var wide model.WideTable
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &wide))
	assert.Equal(t, []int{2021}, wide.Years)
	assert.Len(t, wide.Rows, 12)

	rec = s.do(t, http.MethodGet, "/api/v1/installations/by-month?format=csv", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "3,-1\n")

	rec = s.do(t, http.MethodGet, "/api/v1/installations/map", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var m struct {
		Count      int             `json:"count"`
		ByGridArea model.LongTable `json:"by_grid_area"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	assert.Equal(t, 2, m.Count)
	require.Len(t, m.ByGridArea.Rows, 1)
	assert.Equal(t, []interface{}{"NO1"}, m.ByGridArea.Rows[0].Key)
}

func TestRuns(t *testing.T) {
	t.Run("without store", func(t *testing.T) {
		s := newTestServer(t, false)
		rec := s.do(t, http.MethodGet, "/api/v1/runs", "")
		require.Equal(t, http.StatusOK, rec.Code)
		var runs []model.LoadRun
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
		assert.Len(t, runs, 2)

		_, run := s.dashboard.MarketProcesses()
		rec = s.do(t, http.MethodGet, "/api/v1/runs/"+run.ID, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"Foo-21"`)

		assert.Equal(t, http.StatusServiceUnavailable, s.do(t, http.MethodGet, "/api/v1/files/"+run.ID, "").Code)
	})

	t.Run("with store", func(t *testing.T) {
		s := newTestServer(t, true)
		_, run := s.dashboard.MarketProcesses()

		rec := s.do(t, http.MethodGet, "/api/v1/runs/"+run.ID, "")
		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Run         model.LoadRun          `json:"run"`
			Quarantined []model.QuarantinedRow `json:"quarantined"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, 5, body.Run.FactRows)
		assert.Equal(t, 5, body.Run.JoinedRows)
		require.Len(t, body.Quarantined, 1)
		assert.Equal(t, 6, body.Quarantined[0].Row)

		assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/v1/runs/missing", "").Code)
	})
}

func TestSwaggerMounted(t *testing.T) {
	s := newTestServer(t, false)
	rec := s.do(t, http.MethodGet, "/swagger/doc.json", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/sessions/{id}/chart")
}

func TestUnavailablePageAnswers503(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(cfg.Installation.FactPath, []byte("id,postal_code\nm1,0150\n"), 0o644))
	dashboard := pipeline.NewDashboard(cfg, nil)
	require.Error(t, dashboard.Refresh(context.Background()))
	s := serverFor(cfg, dashboard)

	for _, path := range []string{"/api/v1/installations/monthly", "/api/v1/installations/by-month", "/api/v1/installations/map"} {
		rec := s.do(t, http.MethodGet, path, "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
		assert.Contains(t, rec.Body.String(), "plusskunder unavailable", path)
	}

	// the market page keeps serving
	rec := s.do(t, http.MethodPost, "/api/v1/sessions", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var session sessionBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&session))
	rec = s.do(t, http.MethodGet, "/api/v1/sessions/"+session.ID+"/chart", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/v1/market-processes", "").Code)
}

func TestUnavailableMarketPage(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.Remove(cfg.Market.BRSPath))
	dashboard := pipeline.NewDashboard(cfg, nil)
	require.Error(t, dashboard.Refresh(context.Background()))
	s := serverFor(cfg, dashboard)

	assert.Equal(t, http.StatusServiceUnavailable, s.do(t, http.MethodPost, "/api/v1/sessions", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, s.do(t, http.MethodGet, "/api/v1/market-processes", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, s.do(t, http.MethodGet, "/api/v1/market-processes/catalog", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, s.do(t, http.MethodGet, "/api/v1/market-processes/export", "").Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/v1/installations/monthly", "").Code)
}
