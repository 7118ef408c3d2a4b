package admin

// TableStat summarises a user table for the database overview.
type TableStat struct {
	Name          string `json:"name"`
	EstimatedRows int64  `json:"estimated_rows"`
	TotalBytes    int64  `json:"total_bytes"`
	TotalSize     string `json:"total_size"`
}

// Column describes one column of a table.
type Column struct {
	Name     string  `json:"name"`
	DataType string  `json:"data_type"`
	Nullable bool    `json:"nullable"`
	Default  *string `json:"default,omitempty"`
	Position int     `json:"position"`
}
