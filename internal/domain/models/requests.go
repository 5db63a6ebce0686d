package models

// Requests for the analysis HTTP endpoints. Defined in domain for
// consistency and reuse.

type SignalsRequest struct {
	Symbol string `param:"symbol" json:"symbol" validate:"required"`
	Limit  int    `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=1000"`
	From   string `query:"from" json:"from"`
	To     string `query:"to" json:"to"`
}

type SnapshotRequest struct {
	Symbol string `param:"symbol" json:"symbol" validate:"required"`
}
