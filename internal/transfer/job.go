package transfer

type JobKind string

const (
	UploadJob   JobKind = "upload"
	DownloadJob JobKind = "download"
)

// Job is the outcome of one batch call. Results holds exactly one entry
// per input item, in input order. Every aggregate is derived from Results.
type Job struct {
	Kind    JobKind
	Bucket  string
	Results []Result
}

func (j *Job) Len() int {
	return len(j.Results)
}

// AnyFailed reports whether any item failed. Skipped items are not failures.
func (j *Job) AnyFailed() bool {
	for _, r := range j.Results {
		if r.Status.Failed() {
			return true
		}
	}
	return false
}

func (j *Job) Count(status Status) int {
	n := 0
	for _, r := range j.Results {
		if r.Status == status {
			n++
		}
	}
	return n
}

func (j *Job) Succeeded() []Result {
	return j.filter(func(s Status) bool { return s == Success })
}

func (j *Job) Skipped() []Result {
	return j.filter(func(s Status) bool { return s == Skipped })
}

func (j *Job) Failed() []Result {
	return j.filter(Status.Failed)
}

func (j *Job) filter(keep func(Status) bool) []Result {
	var out []Result
	for _, r := range j.Results {
		if keep(r.Status) {
			out = append(out, r)
		}
	}
	return out
}
