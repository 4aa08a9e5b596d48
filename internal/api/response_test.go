package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jeromeof/pywiim-sub000/internal/corerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteErrorMapsCorerrTypesToStatusCodes(t *testing.T) {
	cases := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{&corerr.UnsupportedOperationError{Operation: "shuffle"}, http.StatusNotImplemented, "UNSUPPORTED_OPERATION"},
		{&corerr.InconsistentStateError{Detail: "no group"}, http.StatusConflict, "INCONSISTENT_STATE"},
		{&corerr.PreconditionFailureError{Detail: "no ssid"}, http.StatusPreconditionFailed, "PRECONDITION_FAILED"},
		{&corerr.TimeoutError{Host: "h"}, http.StatusGatewayTimeout, "DEVICE_TIMEOUT"},
		{&corerr.ConnectionError{Host: "h"}, http.StatusBadGateway, "DEVICE_UNREACHABLE"},
	}

	for _, c := range cases {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		WriteError(rec, req, c.err)

		assert.Equal(t, c.wantStatus, rec.Code)

		var body StripeErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, c.wantCode, body.Error.Code)
	}
}

func TestWriteListProducesStripeShapedEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteList(rec, "/v1/groups", []int{1, 2}, false))

	var body StripeListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "list", body.Object)
	assert.Equal(t, "/v1/groups", body.URL)
	assert.False(t, body.HasMore)
}
