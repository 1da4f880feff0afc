package search

import "github.com/poiesic/corpus/core"

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(query string, tags []string)
	AfterSemanticSearch(ids []uint64)
	TagFiltered(chunk *core.Chunk)
	VerbatimBoost(chunk *core.Chunk)
	Finish(results []*core.SearchResult)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string, _ []string)     {}
func (n *noopMonitor) AfterSemanticSearch(_ []uint64) {}
func (n *noopMonitor) TagFiltered(_ *core.Chunk)      {}
func (n *noopMonitor) VerbatimBoost(_ *core.Chunk)    {}
func (n *noopMonitor) Finish(_ []*core.SearchResult)  {}
