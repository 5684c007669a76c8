package chaptree_test

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/aretw0/chaptree"
	"github.com/aretw0/chaptree/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunner_AppliesLines(t *testing.T) {
	ctx := context.Background()
	ed := chaptree.NewEditor(ctx, "doc", chaptree.WithIDGenerator(counter("n")))

	input := strings.Join([]string{
		"insert-child 0",
		"rename 0.0 Opening Scene",
		"assign-master 0.0 title-card",
		"remove 0",
		"fly 0",
		"quit",
		"insert-after 0",
	}, "\n")

	var saved []uint64
	var out bytes.Buffer
	r := chaptree.NewRunner()
	r.Input = strings.NewReader(input)
	r.Output = &out
	r.Headless = true
	r.OnChange = func(_ context.Context, doc *domain.Document) error {
		saved = append(saved, doc.Revision)
		return nil
	}

	require.NoError(t, r.Run(ctx, ed))

	f := ed.Forest()
	require.Equal(t, 1, f.Len())
	child := f.Root(0).Child(0)
	assert.Equal(t, "Opening Scene", child.Name())
	assert.Equal(t, []string{"title-card"}, child.MasterRefs())

	assert.Equal(t, []uint64{1, 2, 3}, saved)
	assert.Contains(t, out.String(), "rejected: cannot remove the only root chapter")
	assert.Contains(t, out.String(), "error: unknown command")
	assert.Contains(t, out.String(), "**Opening Scene** · title-card")
}

func TestRunner_RequiresIO(t *testing.T) {
	ed := chaptree.NewEditor(context.Background(), "doc")
	assert.Error(t, chaptree.NewRunner().Run(context.Background(), ed))
}

func TestRunner_RendererIsApplied(t *testing.T) {
	ed := chaptree.NewEditor(context.Background(), "doc")
	var out bytes.Buffer
	r := &chaptree.Runner{
		Input:    strings.NewReader("show\n"),
		Output:   &out,
		Headless: true,
		Renderer: func(s string) (string, error) { return strings.ToUpper(s), nil },
	}
	require.NoError(t, r.Run(context.Background(), ed))
	assert.Contains(t, out.String(), "(TO BE NAMED)")
}

func TestRunner_JSONLines(t *testing.T) {
	ctx := context.Background()
	ed := chaptree.NewEditor(ctx, "doc", chaptree.WithIDGenerator(counter("n")))

	input := strings.Join([]string{
		`{"kind":"rename","path":[0],"name":"Intro"}`,
		`{"kind":"rename","path":[0],"name":"Intro"}`,
		`insert-after 0`,
		`{"kind":"remove","path":[5]}`,
		`{"kind":"fly"}`,
	}, "\n")

	var out bytes.Buffer
	r := &chaptree.Runner{Input: strings.NewReader(input), Output: &out, JSON: true}
	require.NoError(t, r.Run(ctx, ed))

	var replies []chaptree.Reply
	dec := json.NewDecoder(&out)
	for dec.More() {
		var reply chaptree.Reply
		require.NoError(t, dec.Decode(&reply))
		replies = append(replies, reply)
	}
	require.Len(t, replies, 6)

	assert.NotNil(t, replies[0].Document, "the current document is sent first")
	assert.True(t, replies[1].Changed)
	assert.Equal(t, uint64(1), replies[1].Revision)
	assert.False(t, replies[2].Changed, "renaming to the same name is a no-op")
	assert.Nil(t, replies[2].Document)
	assert.Equal(t, uint64(2), replies[3].Revision)
	assert.Contains(t, replies[4].Error, "out of range")
	assert.Equal(t, uint64(2), replies[4].Revision)
	assert.Contains(t, replies[5].Error, "invalid command")
}
