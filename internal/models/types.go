package models

type ErrorResponse struct {
	Error     string `json:"error"`
	Timestamp string `json:"timestamp"`
	Command   string `json:"command"`
}

type DeleteResult struct {
	BucketName     string   `json:"bucket_name"`
	Prefix         string   `json:"prefix"`
	DaysOld        int      `json:"days_old"`
	DryRun         bool     `json:"dry_run"`
	DeletedFiles   []string `json:"deleted_files"`
	DeletedCount   int      `json:"deleted_count"`
	FailedFiles    []string `json:"failed_files,omitempty"`
	TotalSizeBytes int64    `json:"total_size_bytes"`
	TotalSizeHuman string   `json:"total_size_human"`
	OperationTime  string   `json:"operation_time"`
	CutoffDate     string   `json:"cutoff_date"`
}
