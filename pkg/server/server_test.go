package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/estate-tools/reportpipe/pkg/models/api"
	"github.com/estate-tools/reportpipe/pkg/models/domain"
	reportsvc "github.com/estate-tools/reportpipe/pkg/services/report"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockReportService struct {
	mock.Mock
}

func (m *mockReportService) ListReports(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockReportService) Describe(ctx context.Context, name string) (*domain.ReportSpec, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReportSpec), args.Error(1)
}

func (m *mockReportService) Generate(
	ctx context.Context,
	name string,
	params map[string]any,
) (*reportsvc.Result, string, error) {
	args := m.Called(ctx, name, params)
	if args.Get(0) == nil {
		return nil, "", args.Error(2)
	}
	return args.Get(0).(*reportsvc.Result), args.String(1), args.Error(2)
}

func TestWebAPI_Endpoints(t *testing.T) {
	logger := zerolog.New(zerolog.NewTestWriter(t))

	svc := new(mockReportService)
	config := Config{
		Addr:            ":8080",
		ShutdownTimeout: 10 * time.Second,
		Dependencies: Dependencies{
			Reports: svc,
			Logger:  logger,
		},
	}
	router := ConfigureRouter(config)
	testServer := httptest.NewServer(router)
	defer testServer.Close()

	values := domain.NewReportValues()
	values.Values["total_tons"] = float64(20)

	tests := []struct {
		name           string
		method         string
		path           string
		body           string
		setupMocks     func()
		expectedStatus int
		check          func(t *testing.T, body []byte)
	}{
		{
			name:   "ListReports",
			method: http.MethodGet,
			path:   "/api/v1/reports",
			setupMocks: func() {
				svc.On("ListReports", mock.Anything).Return([]string{"harvest"}, nil)
			},
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				var names []string
				require.NoError(t, json.Unmarshal(body, &names))
				assert.Equal(t, []string{"harvest"}, names)
			},
		},
		{
			name:   "DescribeReport",
			method: http.MethodGet,
			path:   "/api/v1/reports/harvest/spec",
			setupMocks: func() {
				svc.On("Describe", mock.Anything, "harvest").Return(&domain.ReportSpec{
					Name:    "harvest",
					Queries: map[string]domain.QueryDefinition{"workers": {SQL: "SELECT 1"}},
				}, nil)
			},
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				var summary api.ReportSummary
				require.NoError(t, json.Unmarshal(body, &summary))
				assert.Equal(t, "harvest", summary.Name)
				require.Len(t, summary.Queries, 1)
			},
		},
		{
			name:   "DescribeReport_NotFound",
			method: http.MethodGet,
			path:   "/api/v1/reports/nope/spec",
			setupMocks: func() {
				svc.On("Describe", mock.Anything, "nope").Return(nil, reportsvc.ErrSpecNotFound)
			},
			expectedStatus: http.StatusNotFound,
			check:          func(t *testing.T, body []byte) {},
		},
		{
			name:   "GenerateReport",
			method: http.MethodPost,
			path:   "/api/v1/reports/harvest/generate",
			body:   `{"params":{"estate":"EST01"}}`,
			setupMocks: func() {
				svc.On("Generate", mock.Anything, "harvest", map[string]any{"estate": "EST01"}).
					Return(&reportsvc.Result{
						Spec:   &domain.ReportSpec{Name: "harvest"},
						Values: values,
					}, "out/harvest.xlsx", nil)
			},
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				var resp api.GenerateResponse
				require.NoError(t, json.Unmarshal(body, &resp))
				assert.Equal(t, "out/harvest.xlsx", resp.OutputPath)
				assert.Equal(t, float64(20), resp.Values["total_tons"])
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.setupMocks()

			var reqBody io.Reader
			if tc.body != "" {
				reqBody = strings.NewReader(tc.body)
			}
			req, err := http.NewRequest(tc.method, testServer.URL+tc.path, reqBody)
			require.NoError(t, err)

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err, "Failed to send request")
			defer resp.Body.Close()

			assert.Equal(t, tc.expectedStatus, resp.StatusCode, "Status code mismatch")

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err, "Failed to read response body")
			tc.check(t, body)
		})
	}

	svc.AssertExpectations(t)
}
