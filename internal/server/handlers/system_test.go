package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemStatus(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doRequest(t, r, http.MethodGet, "/api/system/status", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var status map[string]interface{}
	decodeJSON(t, w, &status)
	assert.Contains(t, status, "num_cpu")
	assert.Contains(t, status, "goroutines")
	assert.Contains(t, status, "time")
	assert.Positive(t, status["num_cpu"])
}
