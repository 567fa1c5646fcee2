package search

import "github.com/poiesic/docent/core"

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(query string)
	AfterQueryAnalysis(embeddingDim int, entities []string)
	AfterVectorSearch(results []*core.RankedChunk)
	AfterGraphSearch(results []*core.RankedChunk)
	BranchFailed(branch string, err error)
	AfterFusion(results []*core.RankedChunk)
	TextFallback(results []*core.RankedChunk)
	Finish(results []*core.RankedChunk)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                           {}
func (n *noopMonitor) AfterQueryAnalysis(_ int, _ []string)     {}
func (n *noopMonitor) AfterVectorSearch(_ []*core.RankedChunk)  {}
func (n *noopMonitor) AfterGraphSearch(_ []*core.RankedChunk)   {}
func (n *noopMonitor) BranchFailed(_ string, _ error)           {}
func (n *noopMonitor) AfterFusion(_ []*core.RankedChunk)        {}
func (n *noopMonitor) TextFallback(_ []*core.RankedChunk)       {}
func (n *noopMonitor) Finish(_ []*core.RankedChunk)             {}
