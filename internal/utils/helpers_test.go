package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/senyabanana/freelance-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLimitOffset(t *testing.T) {
	tests := []struct {
		name       string
		limit      string
		offset     string
		wantLimit  int
		wantOffset int
		wantErr    bool
	}{
		{name: "defaults", wantLimit: 5, wantOffset: 0},
		{name: "explicit", limit: "10", offset: "20", wantLimit: 10, wantOffset: 20},
		{name: "limit too large", limit: "51", wantErr: true},
		{name: "zero limit", limit: "0", wantErr: true},
		{name: "negative offset", offset: "-1", wantErr: true},
		{name: "not a number", limit: "ten", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limit, offset, err := ParseLimitOffset(tt.limit, tt.offset)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantLimit, limit)
			assert.Equal(t, tt.wantOffset, offset)
		})
	}
}

func TestSendErrorEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	SendError(rec, models.NewForbidden("nope"))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	var body models.ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "nope", body.Message)
	assert.Equal(t, "nope", body.Errors["detail"])
}

func TestSendErrorHidesUnexpectedErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	SendError(rec, errors.New("pq: connection refused on 10.0.0.3"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.3")
}

func TestSendSuccessEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	SendSuccess(rec, http.StatusCreated, "created", map[string]int{"n": 1})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"success":true,"message":"created","data":{"n":1}}`, rec.Body.String())
}

func TestDecodeJSONValidation(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"client_score": 9}`))
	var score models.ScoreRequest

	err := DecodeJSON(req, &score)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrValidation)

	var errResp *models.ErrorResponse
	require.True(t, errors.As(err, &errResp))
	assert.Contains(t, errResp.Errors, "client_score")
}

func TestDecodeJSONEmptyBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	var q models.QuestionRequest
	assert.ErrorIs(t, DecodeJSON(req, &q), models.ErrValidation)
}
