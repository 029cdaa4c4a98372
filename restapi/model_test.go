package restapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/go-cmp/cmp"

	"github.com/sharedcode/graphkv"
	"github.com/sharedcode/graphkv/datasource"
	"github.com/sharedcode/graphkv/inmemory"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type failingStore struct{}

func (failingStore) MultiGet(context.Context, []string) ([]graphkv.Item, error) {
	return nil, errors.New("connection refused")
}

func (failingStore) MultiSet(context.Context, []graphkv.Item) error {
	return errors.New("connection refused")
}

func newTestRouter(t *testing.T, store graphkv.Store) *gin.Engine {
	t.Helper()
	ds, err := datasource.New(store)
	if err != nil {
		t.Fatal(err)
	}
	r, err := NewRouter(ds, 0)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func serve(r *gin.Engine, req *http.Request) (int, map[string]any) {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var body map[string]any
	json.Unmarshal(w.Body.Bytes(), &body)
	return w.Code, body
}

func getModel(paths string) *http.Request {
	q := url.Values{"method": {"get"}, "paths": {paths}}
	return httptest.NewRequest(http.MethodGet, BasePath+ModelPath+"?"+q.Encode(), nil)
}

func postModel(form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, BasePath+ModelPath, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestGetModel(t *testing.T) {
	t.Setenv("GRAPHKV_ENV", "DEV")
	store := inmemory.NewStore()
	store.MultiSet(context.Background(), []graphkv.Item{
		{Key: "byId!0!name", Value: "Jim"},
		{Key: "byId!1!name", Value: "Ann"},
	})
	r := newTestRouter(t, store)

	code, body := serve(r, getModel(`[["byId",[0,1,2],"name"]]`))
	if code != http.StatusOK {
		t.Fatalf("status = %d, body %v", code, body)
	}
	want := map[string]any{
		"paths": []any{[]any{"byId", []any{"0", "1", "2"}, "name"}},
		"jsonGraph": map[string]any{
			"byId": map[string]any{
				"0": map[string]any{"name": "Jim"},
				"1": map[string]any{"name": "Ann"},
			},
		},
	}
	if diff := cmp.Diff(want, body); diff != "" {
		t.Errorf("response mismatch (-want +got):\n%s", diff)
	}
}

func TestGetModelBadRequests(t *testing.T) {
	t.Setenv("GRAPHKV_ENV", "DEV")
	r := newTestRouter(t, inmemory.NewStore())

	tests := []struct {
		name string
		req  *http.Request
	}{
		{"missing paths", httptest.NewRequest(http.MethodGet, BasePath+ModelPath, nil)},
		{"malformed paths", getModel(`[["byId"`)},
		{"wrong method", httptest.NewRequest(http.MethodGet, BasePath+ModelPath+"?method=set&paths=[]", nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code, body := serve(r, tt.req); code != http.StatusBadRequest {
				t.Errorf("status = %d, body %v", code, body)
			}
		})
	}
}

func TestGetModelReadFail(t *testing.T) {
	t.Setenv("GRAPHKV_ENV", "DEV")
	r := newTestRouter(t, failingStore{})

	code, body := serve(r, getModel(`[["byId",0,"name"]]`))
	if code != http.StatusInternalServerError {
		t.Fatalf("status = %d, body %v", code, body)
	}
	want := map[string]any{
		"$type": "error",
		"value": map[string]any{"status": "read_fail", "message": "Failed to read from store"},
	}
	if diff := cmp.Diff(want, body); diff != "" {
		t.Errorf("response mismatch (-want +got):\n%s", diff)
	}
}

func TestSetModel(t *testing.T) {
	t.Setenv("GRAPHKV_ENV", "DEV")
	store := inmemory.NewStore()
	r := newTestRouter(t, store)

	env := `{"jsonGraph":{"byId":{"0":{"name":"Jim","age":42}}},"paths":[["byId",0,["name","age"]]]}`
	code, body := serve(r, postModel(url.Values{"method": {"set"}, "jsonGraph": {env}}))
	if code != http.StatusOK {
		t.Fatalf("status = %d, body %v", code, body)
	}
	wantGraph := map[string]any{"byId": map[string]any{"0": map[string]any{"name": "Jim", "age": float64(42)}}}
	if diff := cmp.Diff(wantGraph, body["jsonGraph"]); diff != "" {
		t.Errorf("jsonGraph mismatch (-want +got):\n%s", diff)
	}

	got, _ := store.MultiGet(context.Background(), []string{"byId!0!name", "byId!0!age"})
	want := []graphkv.Item{{Key: "byId!0!name", Value: "Jim"}, {Key: "byId!0!age", Value: float64(42)}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("store mismatch (-want +got):\n%s", diff)
	}
}

func TestSetModelWriteFail(t *testing.T) {
	t.Setenv("GRAPHKV_ENV", "DEV")
	r := newTestRouter(t, failingStore{})

	env := `{"jsonGraph":{"byId":{"0":{"name":"Jim"}}},"paths":[["byId",0,"name"]]}`
	code, body := serve(r, postModel(url.Values{"method": {"set"}, "jsonGraph": {env}}))
	if code != http.StatusOK {
		t.Fatalf("status = %d, body %v", code, body)
	}
	leaf := body["jsonGraph"].(map[string]any)["byId"].(map[string]any)["0"].(map[string]any)["name"]
	e, ok := graphkv.AsErrorMarker(leaf)
	if !ok || e.Status != graphkv.WriteFail {
		t.Errorf("expected write_fail marker, got %v", leaf)
	}
}

func TestPostModelBadRequests(t *testing.T) {
	t.Setenv("GRAPHKV_ENV", "DEV")
	r := newTestRouter(t, inmemory.NewStore())

	for name, form := range map[string]url.Values{
		"unknown method":    {"method": {"delete"}},
		"malformed graph":   {"method": {"set"}, "jsonGraph": {"{"}},
		"malformed path":    {"method": {"call"}, "callPath": {`["a",[1,2]]`}},
		"malformed args":    {"method": {"call"}, "callPath": {`["a"]`}, "arguments": {"{"}},
		"missing call path": {"method": {"call"}},
	} {
		t.Run(name, func(t *testing.T) {
			if code, body := serve(r, postModel(form)); code != http.StatusBadRequest {
				t.Errorf("status = %d, body %v", code, body)
			}
		})
	}
}

func TestCallModelUnsupported(t *testing.T) {
	t.Setenv("GRAPHKV_ENV", "DEV")
	r := newTestRouter(t, inmemory.NewStore())

	code, body := serve(r, postModel(url.Values{"method": {"call"}, "callPath": {`["lists","add"]`}, "arguments": {`[1]`}}))
	if code != http.StatusNotImplemented {
		t.Fatalf("status = %d, body %v", code, body)
	}
	if e, ok := graphkv.AsErrorMarker(body); !ok || e.Status != graphkv.Unsupported {
		t.Errorf("expected unsupported marker, got %v", body)
	}
}

func TestAuth(t *testing.T) {
	r := newTestRouter(t, inmemory.NewStore())

	t.Setenv("GRAPHKV_ENV", "")
	if code, _ := serve(r, getModel(`[["a"]]`)); code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", code)
	}

	t.Setenv("GRAPHKV_ENV", "QA")
	t.Setenv("GRAPHKV_QA_TOKEN", "letmein")
	req := getModel(`[["a"]]`)
	req.Header.Set("Authorization", "Bearer letmein")
	if code, body := serve(r, req); code != http.StatusOK {
		t.Errorf("QA token: status = %d, body %v", code, body)
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	h := func(c *gin.Context) {}
	if err := reg.RegisterMethod(GET, "/a", h); err != nil {
		t.Fatal(err)
	}
	if err := reg.RegisterMethod(POST, "/a", h); err != nil {
		t.Fatal(err)
	}
	if err := reg.RegisterMethod(GET, "/a", h); err == nil {
		t.Error("expected duplicate registration error")
	}
	if got := len(reg.RestMethods()); got != 2 {
		t.Errorf("got %d methods, want 2", got)
	}

	reg.RegisterMethod(Unknown, "/b", h)
	if err := reg.Mount(gin.New().Group("/"), nil); err == nil {
		t.Error("expected error mounting an unknown verb")
	}
}

func TestSwaggerServed(t *testing.T) {
	r := newTestRouter(t, inmemory.NewStore())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "/model.json") {
		t.Errorf("status = %d, body %.200s", w.Code, w.Body.String())
	}
}

func TestModelPathLimit(t *testing.T) {
	t.Setenv("GRAPHKV_ENV", "DEV")
	ds, err := datasource.New(inmemory.NewStore())
	if err != nil {
		t.Fatal(err)
	}
	r, err := NewRouter(ds, 3)
	if err != nil {
		t.Fatal(err)
	}

	if code, body := serve(r, getModel(`[["byId",{"from":0,"to":2},"name"]]`)); code != http.StatusOK {
		t.Errorf("within limit: status = %d, body %v", code, body)
	}
	huge := `[["a",{"from":0,"to":1125899906842624},{"from":0,"to":1048576}]]`
	if code, body := serve(r, getModel(huge)); code != http.StatusBadRequest {
		t.Errorf("huge get: status = %d, body %v", code, body)
	}
	env := `{"jsonGraph":{},"paths":` + huge + `}`
	if code, body := serve(r, postModel(url.Values{"method": {"set"}, "jsonGraph": {env}})); code != http.StatusBadRequest {
		t.Errorf("huge set: status = %d, body %v", code, body)
	}
}
