package models

// ItemReport is the printed outcome of one transferred item.
type ItemReport struct {
	Source      string `json:"source,omitempty"`
	Object      string `json:"object"`
	Destination string `json:"destination,omitempty"`
	Size        int64  `json:"size"`
	SizeHuman   string `json:"size_human"`
	Status      string `json:"status"`
	Output      string `json:"output,omitempty"`
	Generation  string `json:"generation,omitempty"`
	Error       string `json:"error,omitempty"`
}

// BatchReport summarizes one upload or download batch.
type BatchReport struct {
	Operation      string       `json:"operation"`
	BucketName     string       `json:"bucket_name"`
	Items          []ItemReport `json:"items"`
	TotalItems     int          `json:"total_items"`
	Succeeded      int          `json:"succeeded"`
	Skipped        int          `json:"skipped"`
	Failed         int          `json:"failed"`
	AnyFailed      bool         `json:"any_failed"`
	TotalSizeBytes int64        `json:"total_size_bytes"`
	TotalSizeHuman string       `json:"total_size_human"`
	OperationTime  string       `json:"operation_time"`
	Duration       string       `json:"duration"`
}
