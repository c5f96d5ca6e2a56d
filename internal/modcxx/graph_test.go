package modcxx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chalet-org/chalet/internal/chkerr"
	"github.com/chalet-org/chalet/internal/model"
)

func TestTopoBatches_LinearChain(t *testing.T) {
	files := []*model.SourceFileGroup{
		{Source: "m_a.cpp", ProvidesModule: "a"},
		{Source: "m_b.cpp", ProvidesModule: "b", ImportsModules: []string{"a"}},
		{Source: "main.cpp", ImportsModules: []string{"b"}},
	}
	g := BuildGraph(files)

	batches, err := g.TopoBatches()
	require.NoError(t, err)
	require.Len(t, batches, 3)

	assert.Equal(t, "a", batches[0][0].Name)
	assert.Equal(t, "b", batches[1][0].Name)
	assert.Equal(t, "main.cpp", batches[2][0].Name)
}

func TestTopoBatches_ParallelBatch(t *testing.T) {
	files := []*model.SourceFileGroup{
		{Source: "m_a.cpp", ProvidesModule: "a"},
		{Source: "m_b.cpp", ProvidesModule: "b"},
		{Source: "main.cpp", ImportsModules: []string{"a", "b"}},
	}
	g := BuildGraph(files)

	batches, err := g.TopoBatches()
	require.NoError(t, err)
	require.Len(t, batches, 2)
	assert.Len(t, batches[0], 2)
	assert.Len(t, batches[1], 1)
}

func TestTopoBatches_Cycle(t *testing.T) {
	files := []*model.SourceFileGroup{
		{Source: "m_a.cpp", ProvidesModule: "a", ImportsModules: []string{"b"}},
		{Source: "m_b.cpp", ProvidesModule: "b", ImportsModules: []string{"a"}},
	}
	g := BuildGraph(files)

	_, err := g.TopoBatches()
	require.Error(t, err)
	assert.True(t, chkerr.Is(err, chkerr.ModuleCycle))

	ce, ok := err.(*chkerr.Error)
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"a", "b"}, ce.Modules)
}

func TestTopoBatches_CycleExcludesDownstreamImporter(t *testing.T) {
	files := []*model.SourceFileGroup{
		{Source: "m_a.cpp", ProvidesModule: "a", ImportsModules: []string{"b"}},
		{Source: "m_b.cpp", ProvidesModule: "b", ImportsModules: []string{"a"}},
		{Source: "main.cpp", ImportsModules: []string{"b"}},
	}
	g := BuildGraph(files)

	_, err := g.TopoBatches()
	require.Error(t, err)
	ce, ok := err.(*chkerr.Error)
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"a", "b"}, ce.Modules)
	assert.NotContains(t, ce.Modules, "main.cpp")
}
