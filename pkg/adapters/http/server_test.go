package http

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/chaptree"
	"github.com/aretw0/chaptree/pkg/adapters/memory"
	"github.com/aretw0/chaptree/pkg/domain"
	"github.com/aretw0/chaptree/pkg/layout"
	"github.com/aretw0/chaptree/pkg/schema"
	"github.com/aretw0/chaptree/pkg/session"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, opts ...Option) *Server {
	t.Helper()
	var n atomic.Int64
	engine := chaptree.New(chaptree.WithIDGenerator(func() string {
		return fmt.Sprintf("c%d", n.Add(1))
	}))
	manager := session.NewManager(memory.NewStore(), session.WithEngine(engine))
	return NewServer(manager, opts...)
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestContract(t *testing.T) {
	contract, err := Contract()
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", contract.Info.Version)
	assert.Contains(t, contract.Components.Schemas, "CommandEnvelope")
}

func TestHealthAndInfo(t *testing.T) {
	h := newTestServer(t).Routes()

	w := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = do(t, h, http.MethodGet, "/info", "")
	require.Equal(t, http.StatusOK, w.Code)
	info := decode[map[string]string](t, w)
	assert.Equal(t, "chaptree-http", info["app"])
	assert.Equal(t, "1.0.0", info["api_version"])
	assert.Equal(t, strings.TrimSpace(chaptree.Version), info["version"])

	w = do(t, h, http.MethodGet, "/openapi.yaml", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "openapi: 3.0.3")
}

func TestDocumentLifecycle(t *testing.T) {
	h := newTestServer(t).Routes()

	w := do(t, h, http.MethodGet, "/documents/book", "")
	require.Equal(t, http.StatusOK, w.Code)
	doc := decode[domain.Document](t, w)
	assert.Equal(t, "book", doc.ID)
	assert.Equal(t, uint64(0), doc.Revision)
	assert.Equal(t, 1, doc.Forest.Len())

	w = do(t, h, http.MethodPost, "/documents/book/commands", `{"kind":"insert_after","path":[0]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	doc = decode[domain.Document](t, w)
	assert.Equal(t, uint64(1), doc.Revision)
	assert.Equal(t, 2, doc.Forest.Len())

	w = do(t, h, http.MethodPost, "/documents/book/commands", `{"kind":"rename","path":[1],"name":"Appendix"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	doc = decode[domain.Document](t, w)
	assert.Equal(t, "Appendix", doc.Forest.Root(1).Name())

	w = do(t, h, http.MethodGet, "/documents", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"documents":["book"]}`, w.Body.String())

	w = do(t, h, http.MethodDelete, "/documents/book", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, h, http.MethodGet, "/documents", "")
	assert.JSONEq(t, `{"documents":[]}`, w.Body.String())
}

func TestApplyCommand_Errors(t *testing.T) {
	tests := []struct {
		name   string
		target string
		body   string
		want   int
	}{
		{"malformed json", "/documents/book/commands", `{"kind":`, http.StatusBadRequest},
		{"unknown field", "/documents/book/commands", `{"kind":"remove","path":[0],"extra":1}`, http.StatusBadRequest},
		{"missing path", "/documents/book/commands", `{"kind":"remove"}`, http.StatusBadRequest},
		{"empty path", "/documents/book/commands", `{"kind":"remove","path":[]}`, http.StatusNotFound},
		{"negative index", "/documents/book/commands", `{"kind":"remove","path":[-1]}`, http.StatusNotFound},
		{"unknown kind", "/documents/book/commands", `{"kind":"explode","path":[0]}`, http.StatusBadRequest},
		{"master without id", "/documents/book/commands", `{"kind":"assign_master","path":[0]}`, http.StatusBadRequest},
		{"invalid document id", "/documents/bad$id/commands", `{"kind":"remove","path":[0]}`, http.StatusBadRequest},
		{"path out of range", "/documents/book/commands", `{"kind":"rename","path":[4],"name":"x"}`, http.StatusNotFound},
		{"nested out of range", "/documents/book/commands", `{"kind":"insert_after","path":[0,2]}`, http.StatusNotFound},
		{"sole root removal", "/documents/book/commands", `{"kind":"remove","path":[0]}`, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(t).Routes()
			w := do(t, h, http.MethodPost, tt.target, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())

			resp := decode[ErrorResponse](t, w)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestApplyCommand_ValidationFields(t *testing.T) {
	h := newTestServer(t).Routes()
	w := do(t, h, http.MethodPost, "/documents/book/commands", `{"kind":"tag","path":[0]}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	resp := decode[ErrorResponse](t, w)
	assert.Equal(t, []schema.FieldError{{Field: "master_id", Rule: "required_if"}}, resp.Fields)
}

func TestGetLayout(t *testing.T) {
	s := newTestServer(t)
	h := s.Routes()
	do(t, h, http.MethodPost, "/documents/book/commands", `{"kind":"insert_after","path":[0]}`)

	w := do(t, h, http.MethodGet, "/documents/book/layout", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	scene := decode[layout.Scene](t, w)
	require.Len(t, scene.Boxes, 2)
	assert.Equal(t, 200.0, scene.Boxes[0].Width)
	assert.Equal(t, 2*200.0+3*40, scene.Width)

	w = do(t, h, http.MethodGet, "/documents/book/layout?box_width=100&vertical_margin=10", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	scene = decode[layout.Scene](t, w)
	assert.Equal(t, 100.0, scene.Boxes[0].Width)
	assert.Equal(t, 10.0, scene.Config.VerticalMargin)

	w = do(t, h, http.MethodGet, "/documents/book/layout?viewport=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetNode(t *testing.T) {
	h := newTestServer(t).Routes()
	do(t, h, http.MethodPost, "/documents/book/commands", `{"kind":"insert_child","path":[0]}`)
	do(t, h, http.MethodPost, "/documents/book/commands", `{"kind":"rename","path":[0,0],"name":"Intro"}`)

	w := do(t, h, http.MethodGet, "/documents/book/node?path=0,0", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Path string `json:"path"`
		Node struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"node"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "0.0", resp.Path)
	assert.Equal(t, "Intro", resp.Node.Name)
	assert.Equal(t, "c2", resp.Node.ID)

	w = do(t, h, http.MethodGet, "/documents/book/node?path=0,3", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h, http.MethodGet, "/documents/book/node", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "chaptree_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	h := newTestServer(t, WithGatherer(reg)).Routes()
	w := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "chaptree_test_total 1")
}

func TestCORS(t *testing.T) {
	h := newTestServer(t, WithCORSOrigins("https://a.example")).Routes()

	req := httptest.NewRequest(http.MethodOptions, "/documents", nil)
	req.Header.Set("Origin", "https://a.example")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://a.example", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://b.example")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestSubscribeEvents(t *testing.T) {
	ts := httptest.NewServer(newTestServer(t).Routes())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/documents/book/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			if data, ok := strings.CutPrefix(scanner.Text(), "data: {"); ok {
				lines <- "{" + data
			}
		}
	}()

	next := func() domain.ForestDiff {
		t.Helper()
		select {
		case line, ok := <-lines:
			require.True(t, ok, "stream closed")
			var diff domain.ForestDiff
			require.NoError(t, json.Unmarshal([]byte(line), &diff))
			return diff
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for event")
		}
		return domain.ForestDiff{}
	}

	initial := next()
	assert.Equal(t, "book", initial.DocumentID)
	require.NotNil(t, initial.Forest)
	assert.Equal(t, []string{"c1"}, initial.Added)

	post, err := http.Post(ts.URL+"/documents/book/commands", "application/json",
		strings.NewReader(`{"kind":"insert_before","path":[0]}`))
	require.NoError(t, err)
	post.Body.Close()
	require.Equal(t, http.StatusOK, post.StatusCode)

	diff := next()
	assert.Equal(t, uint64(1), diff.Revision)
	assert.Equal(t, []string{"c2"}, diff.Added)
	assert.Nil(t, diff.Forest)
}

func TestStreamDocument(t *testing.T) {
	ts := httptest.NewServer(newTestServer(t).Routes())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/documents/book/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var doc domain.Document
	require.NoError(t, conn.ReadJSON(&doc))
	assert.Equal(t, uint64(0), doc.Revision)

	require.NoError(t, conn.WriteJSON(schema.CommandEnvelope{Kind: "child", Path: []int{0}}))
	require.NoError(t, conn.ReadJSON(&doc))
	assert.Equal(t, uint64(1), doc.Revision)
	assert.Equal(t, 1, doc.Forest.Root(0).ChildCount())

	require.NoError(t, conn.WriteJSON(schema.CommandEnvelope{Kind: "remove", Path: []int{0}}))
	var rejected ErrorResponse
	require.NoError(t, conn.ReadJSON(&rejected))
	assert.Contains(t, rejected.Error, domain.ErrRootRemovalRejected.Error())
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{schema.ErrInvalidCommand, http.StatusBadRequest},
		{domain.ErrUnknownCommand, http.StatusBadRequest},
		{domain.ErrInvalidDocumentID, http.StatusBadRequest},
		{&domain.PathError{Path: domain.Path{3}, Index: 3, Siblings: 1}, http.StatusNotFound},
		{domain.ErrDocumentNotFound, http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", domain.ErrRootRemovalRejected), http.StatusConflict},
		{domain.ErrIDExhausted, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusCode(tt.err), tt.err.Error())
	}
}

func TestStreamManager_DropsWhenFull(t *testing.T) {
	sm := NewStreamManager(newTestServer(t).logger)
	ch, cancel := sm.Subscribe("book")
	assert.Equal(t, 1, sm.Subscribers("book"))

	for i := range 20 {
		sm.Broadcast("book", Update{Diff: &domain.ForestDiff{Revision: uint64(i)}})
	}
	assert.Len(t, ch, StreamBuffer)

	cancel()
	cancel()
	assert.Equal(t, 0, sm.Subscribers("book"))
}

func TestStreamManager_ResyncsSlowSubscriber(t *testing.T) {
	sm := NewStreamManager(newTestServer(t).logger)
	ch, cancel := sm.Subscribe("book")
	defer cancel()

	doc := domain.NewDocument("book", domain.NewDefaultForest("root"))
	for i := range StreamBuffer + 1 {
		next := doc.Next(doc.Forest.WithRoots([]*domain.Node{doc.Forest.Root(0).WithName(fmt.Sprintf("Title %d", i))}))
		sm.Broadcast("book", Update{Diff: domain.Diff(doc, next), Document: next})
		doc = next
	}

	require.Len(t, ch, 1)
	u := <-ch
	assert.Same(t, doc, u.Document)
	assert.Equal(t, doc.Revision, u.Diff.Revision)
	require.NotNil(t, u.Diff.Forest, "resync carries the whole forest")
	assert.Equal(t, "Title 10", u.Diff.Forest.Root(0).Name())
	assert.Equal(t, []string{"root"}, u.Diff.Added)
}
