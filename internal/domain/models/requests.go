package models

// Requests for the prediction HTTP endpoints. Defined in domain for
// consistency and reuse.

type SetPredictionRequest struct {
	Date  string `json:"date" query:"date"` // defaults to today (UTC)
	Hour  int    `json:"hour" validate:"gte=0,lte=23"`
	Value string `json:"value" validate:"required"`
}

type SubmitRequest struct {
	Date        string   `json:"date"` // defaults to today (UTC)
	Predictions []string `json:"predictions" validate:"required,len=24"` // "" = unset
}

type GetLedgerRequest struct {
	Date string `query:"date" json:"date"`
}

type LeaderboardRequest struct {
	Date  string `query:"date" json:"date"`
	Limit int    `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=1000"`
}

type HistoryRequest struct {
	Date string `query:"date" json:"date" validate:"required"`
}
