package domain

// Direction represents the side of a derivative position.
// The leaderboard feed reports mutually exclusive long/short booleans;
// they are collapsed into this enum on ingestion.
type Direction string

const (
	Long  Direction = "long"
	Short Direction = "short"
)

// ContractType distinguishes the two position lists returned by the
// leaderboard feed. Both share the same shape and go through the same
// reconciliation path; the tag is informational.
type ContractType string

const (
	Perpetual ContractType = "perpetual"
	Delivery  ContractType = "delivery"
)
