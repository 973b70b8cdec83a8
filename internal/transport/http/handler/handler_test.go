package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-push-scheduler/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockSweepSvc struct{ mock.Mock }

func (m *mockSweepSvc) Run(ctx context.Context, mode domain.RunMode) (domain.RunReport, error) {
	args := m.Called(ctx, mode)
	return args.Get(0).(domain.RunReport), args.Error(1)
}

type mockCampaignSvc struct{ mock.Mock }

func (m *mockCampaignSvc) Send(ctx context.Context, campaignID string) (*domain.CampaignRun, error) {
	args := m.Called(ctx, campaignID)
	if c, _ := args.Get(0).(*domain.CampaignRun); c != nil {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

// --- sweeps ---

func postSweep(h *SweepHandler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/sweeps", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()
	h.Trigger(rr, req)
	return rr
}

func TestSweepHandler_EmptyBodyRunsScheduled(t *testing.T) {
	svc := new(mockSweepSvc)
	svc.On("Run", mock.Anything, domain.ModeScheduled).
		Return(domain.RunReport{RunID: "r1", Status: domain.RunCompleted, TotalSent: 3}, nil)

	rr := postSweep(NewSweepHandler(svc), "")

	assert.Equal(t, http.StatusOK, rr.Code)
	var env RunEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
	require.NotNil(t, env.Report)
	assert.Equal(t, "r1", env.Report.RunID)
	assert.EqualValues(t, 3, env.Report.TotalSent)
	svc.AssertExpectations(t)
}

func TestSweepHandler_ManualMode(t *testing.T) {
	svc := new(mockSweepSvc)
	svc.On("Run", mock.Anything, domain.ModeManual).
		Return(domain.RunReport{RunID: "r2", Status: domain.RunCompleted}, nil)

	rr := postSweep(NewSweepHandler(svc), `{"mode":"manual"}`)

	assert.Equal(t, http.StatusOK, rr.Code)
	svc.AssertExpectations(t)
}

func TestSweepHandler_SkippedRunIsOK(t *testing.T) {
	svc := new(mockSweepSvc)
	svc.On("Run", mock.Anything, domain.ModeScheduled).
		Return(domain.RunReport{RunID: "r3", Status: domain.RunSkipped}, nil)

	rr := postSweep(NewSweepHandler(svc), `{"mode":"scheduled"}`)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"skipped"`)
}

func TestSweepHandler_RejectsUnknownMode(t *testing.T) {
	svc := new(mockSweepSvc)

	rr := postSweep(NewSweepHandler(svc), `{"mode":"hourly"}`)

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	svc.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
}

func TestSweepHandler_MalformedBody(t *testing.T) {
	rr := postSweep(NewSweepHandler(new(mockSweepSvc)), `{"mode":`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSweepHandler_FailedRunCarriesReport(t *testing.T) {
	svc := new(mockSweepSvc)
	runErr := fmt.Errorf("%w: token endpoint returned 401", domain.ErrCredential)
	svc.On("Run", mock.Anything, domain.ModeManual).
		Return(domain.RunReport{RunID: "r4", Status: domain.RunFailed, Error: runErr.Error()}, runErr)

	rr := postSweep(NewSweepHandler(svc), `{"mode":"manual"}`)

	assert.Equal(t, http.StatusBadGateway, rr.Code)
	var env RunEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
	require.NotNil(t, env.Report)
	assert.Equal(t, domain.RunFailed, env.Report.Status)
	assert.Contains(t, env.Error, "token endpoint")
}

func TestSweepHandler_OverlappingRunIsConflict(t *testing.T) {
	svc := new(mockSweepSvc)
	runErr := fmt.Errorf("%w: another sweep is in progress", domain.ErrConflict)
	svc.On("Run", mock.Anything, domain.ModeManual).
		Return(domain.RunReport{RunID: "r5", Status: domain.RunSkipped, Error: "another sweep is in progress"}, runErr)

	rr := postSweep(NewSweepHandler(svc), `{"mode":"manual"}`)

	assert.Equal(t, http.StatusConflict, rr.Code)
}

// --- campaigns ---

func sendCampaign(h *CampaignHandler, id string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Post("/v1/campaigns/{id}/send", h.Send)
	req := httptest.NewRequest(http.MethodPost, "/v1/campaigns/"+id+"/send", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestCampaignHandler_Sent(t *testing.T) {
	svc := new(mockCampaignSvc)
	svc.On("Send", mock.Anything, "c1").
		Return(&domain.CampaignRun{CampaignID: "c1", Status: domain.CampaignSent, TotalSent: 10}, nil)

	rr := sendCampaign(NewCampaignHandler(svc), "c1")

	assert.Equal(t, http.StatusOK, rr.Code)
	var env CampaignEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
	require.NotNil(t, env.Campaign)
	assert.Equal(t, domain.CampaignSent, env.Campaign.Status)
	assert.EqualValues(t, 10, env.Campaign.TotalSent)
}

func TestCampaignHandler_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"not found", fmt.Errorf("campaign c9: %w", domain.ErrNotFound), http.StatusNotFound},
		{"already sending", fmt.Errorf("%w: campaign c9 is sending", domain.ErrConflict), http.StatusConflict},
		{"directory down", fmt.Errorf("%w: scan", domain.ErrAudienceResolution), http.StatusBadGateway},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := new(mockCampaignSvc)
			svc.On("Send", mock.Anything, "c9").Return(nil, tc.err)

			rr := sendCampaign(NewCampaignHandler(svc), "c9")

			assert.Equal(t, tc.code, rr.Code)
			assert.Contains(t, rr.Body.String(), tc.err.Error())
		})
	}
}

func TestCampaignHandler_FailedSendReturnsFinalState(t *testing.T) {
	svc := new(mockCampaignSvc)
	runErr := fmt.Errorf("%w: mint", domain.ErrCredential)
	svc.On("Send", mock.Anything, "c2").
		Return(&domain.CampaignRun{CampaignID: "c2", Status: domain.CampaignFailed, FailureReason: runErr.Error()}, runErr)

	rr := sendCampaign(NewCampaignHandler(svc), "c2")

	assert.Equal(t, http.StatusBadGateway, rr.Code)
	var env CampaignEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
	require.NotNil(t, env.Campaign)
	assert.Equal(t, domain.CampaignFailed, env.Campaign.Status)
}

// --- health ---

func TestHealthHandler_Ping(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/v1/health-check/{action}", NewHealthHandler().Ping)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/health-check/ping", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"message":"pong"}`, rr.Body.String())

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/health-check/other", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
