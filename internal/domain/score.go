package domain

// ScoreRecord is one externally-ingested score observation. Records are
// uniquely keyed by (Symbol, Timestamp); a later write with the same key
// replaces the earlier one. Timestamp is milliseconds since epoch (UTC).
type ScoreRecord struct {
	Symbol    string  `json:"symbol"`
	Timestamp int64   `json:"timestamp"`
	Score     float64 `json:"score"`
}
