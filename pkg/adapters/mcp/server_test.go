package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/aretw0/chaptree"
	"github.com/aretw0/chaptree/internal/validator"
	"github.com/aretw0/chaptree/pkg/adapters/memory"
	"github.com/aretw0/chaptree/pkg/domain"
	"github.com/aretw0/chaptree/pkg/layout"
	"github.com/aretw0/chaptree/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	n := 0
	engine := chaptree.New(chaptree.WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("c%d", n)
	}))
	return NewServer(session.NewManager(memory.NewStore(), session.WithEngine(engine)))
}

func call(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	content, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return content.Text
}

func TestApplyCommand(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	res, err := s.handleApplyCommand(ctx, call(map[string]any{
		"document": "book", "kind": "insert_after", "path": "0",
	}))
	require.NoError(t, err)
	require.False(t, res.IsError, text(t, res))

	res, err = s.handleApplyCommand(ctx, call(map[string]any{
		"document": "book", "kind": "rename", "path": []any{1.0}, "name": "Part II",
	}))
	require.NoError(t, err)
	require.False(t, res.IsError, text(t, res))

	var doc domain.Document
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &doc))
	assert.Equal(t, uint64(2), doc.Revision)
	assert.Equal(t, []string{"c1", "c2"}, []string{doc.Forest.Root(0).ID(), doc.Forest.Root(1).ID()})
	assert.Equal(t, "Part II", doc.Forest.Root(1).Name())
}

func TestApplyCommand_Rejected(t *testing.T) {
	tests := []struct {
		name string
		args map[string]any
	}{
		{"sole root removal", map[string]any{"document": "book", "kind": "remove", "path": "0"}},
		{"out of range", map[string]any{"document": "book", "kind": "rename", "path": "3", "name": "x"}},
		{"unknown kind", map[string]any{"document": "book", "kind": "explode", "path": "0"}},
		{"bad path", map[string]any{"document": "book", "kind": "remove", "path": "a.b"}},
		{"bad document", map[string]any{"document": "../etc", "kind": "remove", "path": "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := newTestServer(t).handleApplyCommand(context.Background(), call(tt.args))
			require.NoError(t, err, "domain failures are tool errors")
			assert.True(t, res.IsError)
			assert.NotEmpty(t, text(t, res))
		})
	}
}

func TestGetDocument(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	res, err := s.handleGetDocument(ctx, call(map[string]any{"document": "book"}))
	require.NoError(t, err)
	var doc domain.Document
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &doc))
	assert.Equal(t, "book", doc.ID)
	assert.Equal(t, 1, doc.Forest.Count())

	res, err = s.handleGetDocument(ctx, call(map[string]any{"document": "book", "format": "outline"}))
	require.NoError(t, err)
	assert.Contains(t, text(t, res), "`0`")
	assert.Contains(t, text(t, res), domain.UnnamedLabel)

	res, err = s.handleListDocuments(ctx, call(nil))
	require.NoError(t, err)
	assert.JSONEq(t, `["book"]`, text(t, res))
}

func TestGetLayout(t *testing.T) {
	s := newTestServer(t)
	res, err := s.handleGetLayout(context.Background(), call(map[string]any{"document": "book", "viewport": 1000.0}))
	require.NoError(t, err)

	var scene layout.Scene
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &scene))
	require.Len(t, scene.Boxes, 1)
	assert.Equal(t, 1000.0, scene.Width)
	assert.Equal(t, 200.0, scene.Boxes[0].Width)
}

func TestReadDocumentResource(t *testing.T) {
	s := newTestServer(t)

	var req mcp.ReadResourceRequest
	req.Params.URI = DocumentURIPrefix + "book"
	contents, err := s.readDocument(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, contents, 1)

	text, ok := contents[0].(mcp.TextResourceContents)
	require.True(t, ok)
	assert.Equal(t, "application/json", text.MIMEType)
	assert.Contains(t, text.Text, `"id":"book"`)

	req.Params.URI = "other://book"
	_, err = s.readDocument(context.Background(), req)
	assert.Error(t, err)
}

func TestLintDocument(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	res, err := s.handleLintDocument(ctx, call(map[string]any{"document": "book"}))
	require.NoError(t, err)
	var findings []validator.Finding
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &findings))
	require.Len(t, findings, 2)
	assert.Equal(t, validator.RuleUnnamed, findings[0].Rule)
	assert.Equal(t, "c1", findings[0].NodeID)

	for _, args := range []map[string]any{
		{"document": "book", "kind": "rename", "path": "0", "name": "Cover"},
		{"document": "book", "kind": "assign_master", "path": "0", "master_id": "full-bleed"},
	} {
		res, err := s.handleApplyCommand(ctx, call(args))
		require.NoError(t, err)
		require.False(t, res.IsError, text(t, res))
	}

	res, err = s.handleLintDocument(ctx, call(map[string]any{"document": "book"}))
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, text(t, res))
}
