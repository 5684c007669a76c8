package observability_test

import (
	"context"
	"testing"

	"github.com/aretw0/chaptree"
	"github.com/aretw0/chaptree/pkg/domain"
	"github.com/aretw0/chaptree/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Hooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg)
	eng := chaptree.New(chaptree.WithLifecycleHooks(m.Hooks()))
	ctx := context.Background()

	doc := eng.Start(ctx, "doc")
	doc, err := eng.Apply(ctx, doc, domain.InsertChild{Path: domain.Path{0}})
	require.NoError(t, err)
	_, err = eng.Apply(ctx, doc, domain.Remove{Path: domain.Path{0}})
	require.Error(t, err)
	_, err = eng.Apply(ctx, doc, domain.Rename{Path: domain.Path{3}, Name: "x"})
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Commands.WithLabelValues("insert_child", "applied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Commands.WithLabelValues("remove", "rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Rejected.WithLabelValues("remove", "root_removal")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Rejected.WithLabelValues("rename", "path_out_of_range")))

	count, err := testutil.GatherAndCount(reg, "chaptree_command_path_depth")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMetrics_Observe(t *testing.T) {
	m := observability.NewMetrics(nil)
	f, err := domain.NewForest(domain.NewNode("r", "", nil, domain.NewNode("c", "", nil)))
	require.NoError(t, err)

	m.Observe(context.Background(), nil, domain.NewDocument("doc", f))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Chapters.WithLabelValues("doc")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Revisions.WithLabelValues("doc")))

	m.Forget("doc")
	assert.Equal(t, 0, testutil.CollectAndCount(m.Chapters))
}

func TestReason(t *testing.T) {
	assert.Equal(t, "none", observability.Reason(nil))
	assert.Equal(t, "path_out_of_range", observability.Reason(&domain.PathError{}))
	assert.Equal(t, "other", observability.Reason(assert.AnError))
}
