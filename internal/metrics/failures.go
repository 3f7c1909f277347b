package metrics

import "sort"

// FailureBucket is the number of failed units of one kind.
type FailureBucket struct {
	Kind  string
	Count int
}

// FailureBuckets returns the error breakdown sorted by descending count,
// then by kind for stability.
func (s Stats) FailureBuckets() []FailureBucket {
	if len(s.Errors) == 0 {
		return nil
	}
	rows := make([]FailureBucket, 0, len(s.Errors))
	for kind, count := range s.Errors {
		rows = append(rows, FailureBucket{Kind: kind, Count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count == rows[j].Count {
			return rows[i].Kind < rows[j].Kind
		}
		return rows[i].Count > rows[j].Count
	})
	return rows
}
