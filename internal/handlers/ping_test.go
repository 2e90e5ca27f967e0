package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPingHandler(t *testing.T) {
	request := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	recorder := httptest.NewRecorder()

	PingHandler(recorder, request)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "ok", recorder.Body.String())
}

func TestPingHandlerRejectsPost(t *testing.T) {
	request := httptest.NewRequest(http.MethodPost, "/api/ping", nil)
	recorder := httptest.NewRecorder()

	PingHandler(recorder, request)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}
