package estimate

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camroute/fare-engine/internal/corpus"
)

func newEstimateRouter(service *Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/v1/estimates", NewHandler(service).CreateEstimate)
	return router
}

func postEstimate(t *testing.T, router *gin.Engine, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/estimates", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestHandler_CreateEstimate(t *testing.T) {
	router := newEstimateRouter(newEngineService(defaultGateway(), narrowCorpus(), nil))

	recorder := postEstimate(t, router, estimateRequest())

	require.Equal(t, http.StatusOK, recorder.Code)

	var envelope struct {
		Success bool           `json:"success"`
		Data    EstimateResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	assert.True(t, envelope.Success)
	assert.Equal(t, "exact", envelope.Data.Status)
	assert.Equal(t, 250.0, envelope.Data.PriceMean)
	assert.Equal(t, corpus.TimeMorning, envelope.Data.TimeOfDay)
}

func TestHandler_CreateEstimate_MalformedBody(t *testing.T) {
	router := newEstimateRouter(newEngineService(defaultGateway(), narrowCorpus(), nil))

	req := httptest.NewRequest(http.MethodPost, "/v1/estimates", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestHandler_CreateEstimate_OutOfRangeCoordinates(t *testing.T) {
	router := newEstimateRouter(newEngineService(defaultGateway(), narrowCorpus(), nil))

	body := estimateRequest()
	body.DepartLatitude = 95

	recorder := postEstimate(t, router, body)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestHandler_CreateEstimate_InvalidTimeOfDay(t *testing.T) {
	router := newEstimateRouter(newEngineService(defaultGateway(), narrowCorpus(), nil))

	body := map[string]interface{}{
		"depart_latitude":   departA.Lat,
		"depart_longitude":  departA.Lon,
		"arrival_latitude":  arrivalA.Lat,
		"arrival_longitude": arrivalA.Lon,
		"time_of_day":       "midnightish",
	}

	recorder := postEstimate(t, router, body)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestHandler_CreateEstimate_IdenticalEndpoints(t *testing.T) {
	router := newEstimateRouter(newEngineService(defaultGateway(), narrowCorpus(), nil))

	body := estimateRequest()
	body.ArrivalLatitude = body.DepartLatitude
	body.ArrivalLongitude = body.DepartLongitude

	recorder := postEstimate(t, router, body)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}
