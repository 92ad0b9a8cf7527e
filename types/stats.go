package types

// Stats summarises the size of the board for administrators.
type Stats struct {
	TotalUsers int64 `json:"total_users"`
	TotalCVs   int64 `json:"total_cvs"`
	TotalJobs  int64 `json:"total_jobs"`
}
