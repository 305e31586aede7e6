package repair

// Action describes what the engine did to a line.
type Action string

// Actions recorded by the engine.
const (
	ActionRemoved   Action = "Removed"
	ActionRewritten Action = "Rewritten"
	ActionSplit     Action = "Split"
)

// Reason describes why the engine touched a line.
type Reason string

// Reasons recorded by the engine.
const (
	// ReasonOrphanedOutsideBlock marks a member/field line found at block depth 0.
	ReasonOrphanedOutsideBlock Reason = "OrphanedOutsideBlock"

	// ReasonIncompleteColor marks a style line with a hex color of the wrong length.
	ReasonIncompleteColor Reason = "IncompleteColor"

	// ReasonTruncatedProperty marks a line with a cut-off CSS property name.
	ReasonTruncatedProperty Reason = "TruncatedProperty"

	// ReasonUnbalancedDelimiters marks a flowchart line with mismatched brackets.
	ReasonUnbalancedDelimiters Reason = "UnbalancedDelimiters"

	// ReasonInvalidInlineStyle marks a class-diagram triple-colon style assignment.
	ReasonInvalidInlineStyle Reason = "InvalidInlineStyle"

	// ReasonBatchedClassAssign marks a comma-batched class style assignment.
	ReasonBatchedClassAssign Reason = "BatchedClassAssign"

	// ReasonCorruptedQuoting marks escaped quotes or backslashes inside a label.
	ReasonCorruptedQuoting Reason = "CorruptedQuoting"

	// ReasonDanglingTail marks dangling tokens stripped from the end of the text.
	ReasonDanglingTail Reason = "DanglingTail"
)

// Record is one audit entry describing an automated edit. Records are
// appended in the order edits were applied and are never mutated afterwards.
type Record struct {
	// LineNo is the 1-based line number in the original input.
	LineNo int `json:"line_no"`

	// OriginalText is the line as it appeared in the original input.
	OriginalText string `json:"original_text"`

	// Reason explains why the line was edited.
	Reason Reason `json:"reason"`

	// Action is the kind of edit applied.
	Action Action `json:"action"`
}
