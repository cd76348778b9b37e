package addresses

// Address is a stop supplied by the caller
type Address struct {
	ID           int    `json:"id"`
	Address      string `json:"address"`
	TimeCategory *int   `json:"timeCategory,omitempty"`
}

// PairwiseRecord is the travel distance and duration between two addresses
// as reported by the backend
type PairwiseRecord struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Distance string `json:"distance"`
	Duration string `json:"duration"`
}

// Request body for both /pairwise/ and /solution/
type addressesRequest struct {
	Addresses []Address `json:"addresses"`
}
