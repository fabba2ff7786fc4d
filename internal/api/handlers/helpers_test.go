package handlers_test

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type apiResponse[T any] struct {
	Success bool `json:"success"`
	Data    T    `json:"data"`
	Error   *struct {
		Code    string   `json:"code"`
		Message string   `json:"message"`
		Details []string `json:"details"`
	} `json:"error"`
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) apiResponse[T] {
	t.Helper()

	var resp apiResponse[T]
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp), rr.Body.String())

	return resp
}
