package domain

// Table is a rendered tabular metric result: one header row plus
// string-formatted data rows. Every report emitter (CSV, Excel, HTML)
// consumes this shape, so numeric formatting happens exactly once.
type Table struct {
	Name    string     `json:"name"`
	Title   string     `json:"title"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Empty reports whether the table carries no data rows.
func (t Table) Empty() bool { return len(t.Rows) == 0 }

// PartitionMeta identifies the (period, status bucket) pair a set of
// metric tables was computed for.
type PartitionMeta struct {
	Period string `json:"period"` // "total" or a year like "2023"
	Bucket string `json:"bucket"` // "all", "completed" or "cancelled"
	Rows   int    `json:"rows"`
}
