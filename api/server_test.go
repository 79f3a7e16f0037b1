package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hupe1980/vtable"
	"github.com/hupe1980/vtable/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, optFns ...func(o *Options)) *Server {
	t.Helper()
	db, err := vtable.Open(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db, optFns...)
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeID(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var out IDResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.NotEmpty(t, out.ID)
	return out.ID
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorDetail {
	t.Helper()
	var out ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out.Error
}

func TestTableLifecycle(t *testing.T) {
	s := newServer(t)

	rec := do(t, s, http.MethodPost, "/v1/tables", map[string]any{"name": "Tasks", "ownerId": "u1"})
	require.Equal(t, http.StatusCreated, rec.Code)
	tableID := decodeID(t, rec)

	rec = do(t, s, http.MethodPost, "/v1/tables/"+tableID+"/columns", map[string]any{"name": "Title", "type": "text"})
	require.Equal(t, http.StatusCreated, rec.Code)
	title := decodeID(t, rec)

	rec = do(t, s, http.MethodPost, "/v1/tables/"+tableID+"/columns", map[string]any{
		"name": "Status", "type": "text", "options": map[string]any{"choices": []string{"todo", "done"}},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, s, http.MethodPost, "/v1/tables/"+tableID+"/rows", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	rowID := decodeID(t, rec)

	rec = do(t, s, http.MethodPut, "/v1/rows/"+rowID+"/cells/"+title, map[string]any{"value": "Buy milk"})
	require.Equal(t, http.StatusOK, rec.Code)
	decodeID(t, rec)

	rec = do(t, s, http.MethodGet, "/v1/tables/"+tableID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var view model.AssembledTable
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "Tasks", view.Table.Name)
	require.Len(t, view.Columns, 2)
	assert.Equal(t, "Status", view.Columns[1].Name)
	assert.Equal(t, []any{"todo", "done"}, view.Columns[1].Options["choices"])
	require.Len(t, view.Rows, 1)
	assert.Equal(t, "Buy milk", *view.Rows[0].Cells[model.ColumnID(title)].Value)

	rec = do(t, s, http.MethodGet, "/v1/tables?ownerId=u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []model.Table
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)

	rec = do(t, s, http.MethodGet, "/v1/tables?ownerId=other", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	rec = do(t, s, http.MethodPatch, "/v1/tables/"+tableID, map[string]any{"name": "Chores"})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, s, http.MethodPatch, "/v1/columns/"+title, map[string]any{"order": 1})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, s, http.MethodDelete, "/v1/rows/"+rowID, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, s, http.MethodDelete, "/v1/columns/"+title, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, s, http.MethodDelete, "/v1/tables/"+tableID, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, s, http.MethodGet, "/v1/tables/"+tableID, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, KindNotFound, decodeError(t, rec).Kind)
}

func TestErrorMapping(t *testing.T) {
	s := newServer(t)
	rec := do(t, s, http.MethodPost, "/v1/tables", map[string]any{"name": "T"})
	require.Equal(t, http.StatusCreated, rec.Code)
	tableID := decodeID(t, rec)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		kind   string
	}{
		{"InvalidType", http.MethodPost, "/v1/tables/" + tableID + "/columns",
			map[string]any{"name": "P", "type": "currency"}, http.StatusUnprocessableEntity, KindInvalidType},
		{"NegativeOrder", http.MethodPost, "/v1/tables/" + tableID + "/columns",
			map[string]any{"name": "P", "type": "text", "order": -1}, http.StatusBadRequest, KindValidation},
		{"MalformedBody", http.MethodPost, "/v1/tables", "{not json", http.StatusBadRequest, KindValidation},
		{"MissingTable", http.MethodPatch, "/v1/tables/nope", map[string]any{"name": "x"}, http.StatusNotFound, KindNotFound},
		{"MissingCell", http.MethodPut, "/v1/rows/r/cells/c", map[string]any{"value": nil}, http.StatusNotFound, KindNotFound},
		{"MissingRowTable", http.MethodPost, "/v1/tables/nope/rows", nil, http.StatusNotFound, KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, tt.method, tt.path, tt.body)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			detail := decodeError(t, rec)
			assert.Equal(t, tt.kind, detail.Kind)
			assert.NotEmpty(t, detail.Message)
		})
	}
}

func TestBodyLimit(t *testing.T) {
	s := newServer(t, func(o *Options) { o.MaxBodyBytes = 16 })
	rec := do(t, s, http.MethodPost, "/v1/tables", map[string]any{"name": "a table name well past the limit"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, KindValidation, decodeError(t, rec).Kind)
}

func TestRateLimit(t *testing.T) {
	s := newServer(t, func(o *Options) {
		o.RateLimit = 0.001
		o.Burst = 2
	})

	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/healthz", nil).Code)
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/healthz", nil).Code)

	rec := do(t, s, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, KindRateLimited, decodeError(t, rec).Kind)
}

func TestChat(t *testing.T) {
	s := newServer(t)
	for _, text := range []string{"first", "second"} {
		rec := do(t, s, http.MethodPost, "/v1/messages", map[string]any{"text": text, "author": "bo"})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := do(t, s, http.MethodGet, "/v1/messages", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var msgs []model.Message
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msgs))
	require.Len(t, msgs, 2)
	assert.Equal(t, "first", msgs[0].Text)
	assert.Equal(t, "second", msgs[1].Text)
}

func TestClassify(t *testing.T) {
	status, kind := classify(vtable.ErrConflict)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, KindConflict, kind)

	status, kind = classify(assert.AnError)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, KindInternal, kind)
}
