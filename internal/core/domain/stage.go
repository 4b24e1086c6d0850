package domain

// PipelineStage is the coordinator's current position in the scan pipeline.
// Transitions are one-directional except for the universal escape to
// StageDegraded.
type PipelineStage int

const (
	StageInit PipelineStage = iota
	StagePrecheck
	StageSubmitVision
	StagePollVision
	StageExtractMetrics
	StageAssembleReport
	StageEnrichNarrative
	StageDone
	StageDegraded
)

var stageNames = map[PipelineStage]string{
	StageInit:            "init",
	StagePrecheck:        "precheck",
	StageSubmitVision:    "submit_vision",
	StagePollVision:      "poll_vision",
	StageExtractMetrics:  "extract_metrics",
	StageAssembleReport:  "assemble_report",
	StageEnrichNarrative: "enrich_narrative",
	StageDone:            "done",
	StageDegraded:        "degraded",
}

func (s PipelineStage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return "unknown"
}

// ValidTransition reports whether the pipeline may move from one stage to the
// next. Forward moves advance by exactly one stage; any stage may escape to
// StageDegraded, and StageDegraded resolves only into StageDone.
func ValidTransition(from, to PipelineStage) bool {
	if from == to {
		return false
	}
	if to == StageDegraded {
		return from != StageDone && from != StageDegraded
	}
	if from == StageDegraded {
		return to == StageDone
	}
	// EnrichNarrative is optional: AssembleReport may resolve straight to Done.
	if from == StageAssembleReport && to == StageDone {
		return true
	}
	return to == from+1
}
