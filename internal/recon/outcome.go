package recon

// Outcome classifies how a scan or movement event terminated. Every
// branch ends in exactly one of these; rejections are business
// results, not errors.
type Outcome string

const (
	OutcomeApplied  Outcome = "applied"
	OutcomeRejected Outcome = "rejected"
	OutcomeIgnored  Outcome = "ignored"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeError    Outcome = "error"
)

// Direction of a zone-boundary crossing.
type Direction string

const (
	DirectionOut  Direction = "OUT_OF_WAREHOUSE"
	DirectionIn   Direction = "INTO_WAREHOUSE"
	DirectionNone Direction = ""
)

const (
	ReasonDuplicateScan  = "barcode already scanned for this job"
	ReasonNoMatch        = "no matching item"
	ReasonDepleted       = "item already depleted"
	ReasonNotItemMove    = "not an item move event"
	ReasonNoCrossing     = "no boundary crossing"
	ReasonDuplicateEvent = "event already processed"
)
