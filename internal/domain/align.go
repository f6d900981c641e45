package domain

import "time"

// AlignmentKey is a millisecond timestamp floored to its minute boundary.
// It is the join key shared by candle, score and snapshot series: two
// timestamps in the same minute always map to the same key, and key order
// matches timestamp order.
type AlignmentKey int64

const minuteMillis = int64(time.Minute / time.Millisecond)

// AlignToMinute floors a millisecond timestamp to its minute boundary.
// Every series producer must go through this function so truncation
// semantics stay identical across sources.
func AlignToMinute(millis int64) AlignmentKey {
	return AlignmentKey(millis - millis%minuteMillis)
}

// AlignTimeToMinute floors a time.Time to its minute boundary key.
func AlignTimeToMinute(t time.Time) AlignmentKey {
	return AlignToMinute(t.UnixMilli())
}

// Time converts the key back to a UTC time.
func (k AlignmentKey) Time() time.Time {
	return time.UnixMilli(int64(k)).UTC()
}

// MergedRow is one minute of the joined view. The candle defines the row;
// Score is nil when no score record fell into that minute. An absent score
// is a normal outcome, never coerced to zero.
type MergedRow struct {
	Key    AlignmentKey `json:"key"`
	Candle Candle       `json:"candle"`
	Score  *float64     `json:"score,omitempty"`
}
