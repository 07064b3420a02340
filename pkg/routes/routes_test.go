package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/thistle/internal/repositories/report"
	dqerrors "github.com/Ramsey-B/thistle/pkg/errors"
	"github.com/Ramsey-B/thistle/pkg/middleware"
	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/pipeline"
	"github.com/Ramsey-B/thistle/pkg/routes/graph"
	"github.com/Ramsey-B/thistle/pkg/routes/health"
	"github.com/Ramsey-B/thistle/pkg/routes/reports"
	"github.com/Ramsey-B/thistle/pkg/tasks"
)

type fakeRunner struct {
	result  *pipeline.Result
	err     error
	release chan struct{}
}

func (r *fakeRunner) RunWithID(ctx context.Context, _, _ string) (*pipeline.Result, error) {
	if r.release != nil {
		select {
		case <-r.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return r.result, r.err
}

type fakeReportStore struct {
	reports map[string]*models.Report
}

func (s *fakeReportStore) Get(_ context.Context, runID string) (*models.Report, error) {
	rep, ok := s.reports[runID]
	if !ok {
		return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("report for run %s not found", runID))
	}
	return rep, nil
}

func (s *fakeReportStore) List(_ context.Context, limit int) ([]report.Summary, error) {
	out := []report.Summary{}
	for id, rep := range s.reports {
		if len(out) == limit {
			break
		}
		out = append(out, report.Summary{RunID: id, Dataset: rep.Dataset})
	}
	return out, nil
}

func (s *fakeReportStore) DailyRevenue(_ context.Context, runID string) ([]models.DayRevenue, error) {
	return s.reports[runID].DailyRevenue, nil
}

type fakeAliasFinder struct {
	aliases map[string][]string
	err     error
}

func (f *fakeAliasFinder) Aliases(_ context.Context, runID, userID string) ([]string, error) {
	return f.aliases[runID+"/"+userID], f.err
}

type testServer struct {
	t       *testing.T
	e       *echo.Echo
	manager *tasks.Manager
	dataDir string
}

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func newTestServer(t *testing.T, runner tasks.Runner, store reports.Store, finders ...graph.AliasFinder) *testServer {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	manager := tasks.NewManager(ctx, tasks.NewMemoryStore(), runner, testLogger())
	t.Cleanup(func() {
		cancel()
		manager.Wait()
	})

	dataDir := t.TempDir()
	checker := health.NewChecker("test")
	checker.AddCheck("store", func(context.Context) error { return nil })

	deps := Dependencies{
		Runs:    manager,
		Reports: store,
		Health:  checker,
	}
	if len(finders) > 0 {
		deps.Graph = finders[0]
	}
	e := NewServer(Options{AppName: "thistle-test", DataDir: dataDir}, deps, testLogger())

	return &testServer{t: t, e: e, manager: manager, dataDir: dataDir}
}

func (s *testServer) request(method, path string, body any) *httptest.ResponseRecorder {
	var reqBody bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&reqBody).Encode(body))
	}

	req := httptest.NewRequest(method, path, &reqBody)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func doneResult() *pipeline.Result {
	return &pipeline.Result{Report: &models.Report{
		UniqueRealUsers: 4,
		DailyRevenue: []models.DayRevenue{
			{Date: "2024-01-01", Revenue: 20},
			{Date: "2024-01-02", Revenue: 62},
		},
	}}
}

func TestRuns_CreateAndGet(t *testing.T) {
	s := newTestServer(t, &fakeRunner{result: doneResult()}, nil)

	rec := s.request(http.MethodPost, "/api/v1/runs", map[string]string{"dataset": "."})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[map[string]string](t, rec)
	assert.Equal(t, tasks.StatusInProgress, created["status"])
	require.NotEmpty(t, created["id"])

	s.manager.Wait()

	rec = s.request(http.MethodGet, "/api/v1/runs/"+created["id"], nil)
	require.Equal(t, http.StatusOK, rec.Code)
	task := decode[tasks.Task](t, rec)
	assert.Equal(t, tasks.StatusDone, task.Status)
	require.NotNil(t, task.Report)
	assert.Equal(t, 4, task.Report.UniqueRealUsers)

	rec = s.request(http.MethodGet, "/api/v1/runs/"+created["id"]+"/daily", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	daily := decode[map[string]any](t, rec)
	assert.Len(t, daily["daily"], 2)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

func TestRuns_CreateValidation(t *testing.T) {
	s := newTestServer(t, &fakeRunner{result: doneResult()}, nil)

	tests := []struct {
		name string
		body any
	}{
		{name: "missing dataset", body: map[string]string{}},
		{name: "unknown dataset", body: map[string]string{"dataset": "DATA404"}},
		{name: "absolute path", body: map[string]string{"dataset": s.dataDir}},
		{name: "parent traversal", body: map[string]string{"dataset": "../.."}},
		{name: "traversal after a name", body: map[string]string{"dataset": "DATA1/../../other"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.request(http.MethodPost, "/api/v1/runs", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			resp := decode[middleware.ErrorResponse](t, rec)
			assert.NotEmpty(t, resp.Message)
			assert.NotEmpty(t, resp.RequestID)
		})
	}
}

func TestRuns_NotFound(t *testing.T) {
	s := newTestServer(t, &fakeRunner{result: doneResult()}, nil)

	rec := s.request(http.MethodGet, "/api/v1/runs/unknown", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := decode[middleware.ErrorResponse](t, rec)
	assert.Equal(t, "unknown", resp.Meta["id"])
}

func TestRuns_Failed(t *testing.T) {
	dqErr := dqerrors.NewDataQualityError("unparseable timestamp").AddTable("orders").AddRow(1).AddField("timestamp")
	s := newTestServer(t, &fakeRunner{err: fmt.Errorf("normalize: %w", dqErr)}, nil)

	rec := s.request(http.MethodPost, "/api/v1/runs", map[string]string{"dataset": "."})
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[map[string]string](t, rec)["id"]
	s.manager.Wait()

	rec = s.request(http.MethodGet, "/api/v1/runs/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	task := decode[tasks.Task](t, rec)
	assert.Equal(t, tasks.StatusFailed, task.Status)
	assert.Contains(t, task.Message, "unparseable timestamp")
	assert.Nil(t, task.Report)

	rec = s.request(http.MethodGet, "/api/v1/runs/"+id+"/daily", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestRuns_DailyInProgress(t *testing.T) {
	runner := &fakeRunner{result: doneResult(), release: make(chan struct{})}
	s := newTestServer(t, runner, nil)

	rec := s.request(http.MethodPost, "/api/v1/runs", map[string]string{"dataset": "."})
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[map[string]string](t, rec)["id"]

	rec = s.request(http.MethodGet, "/api/v1/runs/"+id+"/daily", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	close(runner.release)
	s.manager.Wait()

	rec = s.request(http.MethodGet, "/api/v1/runs/"+id+"/daily", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReports(t *testing.T) {
	store := &fakeReportStore{reports: map[string]*models.Report{
		"run-1": doneResult().Report,
	}}
	store.reports["run-1"].Dataset = "DATA1"
	s := newTestServer(t, &fakeRunner{result: doneResult()}, store)

	tests := []struct {
		name string
		path string
		want int
	}{
		{name: "list", path: "/api/v1/reports", want: http.StatusOK},
		{name: "list with limit", path: "/api/v1/reports?limit=1", want: http.StatusOK},
		{name: "invalid limit", path: "/api/v1/reports?limit=zero", want: http.StatusBadRequest},
		{name: "get", path: "/api/v1/reports/run-1", want: http.StatusOK},
		{name: "get unknown", path: "/api/v1/reports/run-2", want: http.StatusNotFound},
		{name: "daily", path: "/api/v1/reports/run-1/daily", want: http.StatusOK},
		{name: "daily unknown", path: "/api/v1/reports/run-2/daily", want: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.request(http.MethodGet, tt.path, nil)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestReports_DisabledWithoutStore(t *testing.T) {
	s := newTestServer(t, &fakeRunner{result: doneResult()}, nil)

	rec := s.request(http.MethodGet, "/api/v1/reports", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, &fakeRunner{result: doneResult()}, nil)

	rec := s.request(http.MethodGet, "/api/v1/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[health.Response](t, rec)
	assert.Equal(t, health.StatusHealthy, resp.Status)
	assert.Equal(t, health.StatusHealthy, resp.Checks["store"].Status)

	rec = s.request(http.MethodGet, "/api/v1/health/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = s.request(http.MethodGet, "/api/v1/health/live", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealth_Unhealthy(t *testing.T) {
	checker := health.NewChecker("test")
	checker.AddCheck("redis", func(context.Context) error { return errors.New("connection refused") })
	checker.SetReady(true)

	e := echo.New()
	checker.RegisterRoutes(e)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, &fakeRunner{result: doneResult()}, nil)

	rec := s.request(http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGraphAliases(t *testing.T) {
	finder := &fakeAliasFinder{aliases: map[string][]string{
		"run-1/1": {"1", "2"},
	}}
	s := newTestServer(t, &fakeRunner{result: doneResult()}, nil, finder)

	rec := s.request(http.MethodGet, "/api/v1/graph/runs/run-1/users/1/aliases", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[graph.AliasesResponse](t, rec)
	assert.Equal(t, []string{"1", "2"}, resp.Aliases)

	rec = s.request(http.MethodGet, "/api/v1/graph/runs/run-1/users/9/aliases", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	finder.err = errors.New("bolt connection reset")
	rec = s.request(http.MethodGet, "/api/v1/graph/runs/run-1/users/1/aliases", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
