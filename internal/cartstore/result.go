package cartstore

// Outcome reports what a mutation did to the cart.
type Outcome string

const (
	OutcomeAdded       Outcome = "added"
	OutcomeIncremented Outcome = "incremented"
	// OutcomeCapped means the line already held the maximum quantity.
	OutcomeCapped  Outcome = "capped"
	OutcomeUpdated Outcome = "updated"
	// OutcomeClamped means the requested quantity was bounded before it was applied.
	OutcomeClamped Outcome = "clamped"
	OutcomeRemoved Outcome = "removed"
	OutcomeNoop    Outcome = "noop"
)

// Result describes a completed mutation.
type Result struct {
	Action  Action  `json:"action"`
	Outcome Outcome `json:"outcome"`
	ID      string  `json:"id"`
	// Quantity is the line's quantity after the mutation, 0 when no line remains.
	Quantity      int `json:"quantity"`
	TotalQuantity int `json:"totalQuantity"`
}

// Changed reports whether the mutation altered the cart contents.
func (r Result) Changed() bool {
	return r.Outcome != OutcomeNoop && r.Outcome != OutcomeCapped
}
