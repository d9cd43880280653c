package domain

import "time"

// Pipeline stage identifiers, recorded on TradeResult to show how far an
// attempt progressed before succeeding or failing.
const (
	StageQuote        = "QUOTE"
	StageInstructions = "INSTRUCTIONS"
	StageLookup       = "LOOKUP"
	StageBuild        = "BUILD"
	StageSubmit       = "SUBMIT"
)

// TradeResult is the terminal outcome of one trade execution pipeline run.
// Append-only; never mutated after creation.
type TradeResult struct {
	ResultID      string
	EventID       string // MatchEvent that triggered the attempt
	Mint          string
	AmountSOL     float64
	Lamports      uint64 // floored minor-unit input amount
	Stage         string // last stage reached
	Signature     string // relay-assigned transaction id on success
	FailureReason string // empty on success
	CreatedAt     time.Time
}

// Succeeded reports whether the attempt produced a submitted transaction.
func (r *TradeResult) Succeeded() bool {
	return r.FailureReason == "" && r.Signature != ""
}
