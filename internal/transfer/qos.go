package transfer

import "math"

// QoS decides the transfer strategy for one object from its size. It is a
// pure function of the EngineConfig and safe for concurrent use.
type QoS struct {
	cfg EngineConfig
}

func NewQoS(cfg EngineConfig) QoS {
	return QoS{cfg: cfg}
}

// SplitDownload reports whether an object of size bytes should be fetched
// as concurrent ranged reads.
func (q QoS) SplitDownload(size int64) bool {
	return q.cfg.AllowSplitDownload && size > q.cfg.SplitThreshold
}

// CompositeUpload reports whether a file of size bytes should be uploaded
// as independent parts composed server-side. A pool of two or fewer workers
// gains nothing from parallel parts.
func (q QoS) CompositeUpload(size int64) bool {
	return q.cfg.AllowCompositeUpload &&
		q.cfg.MaxWorkers > 2 &&
		q.cfg.PerWorkerBufferSize <= math.MaxInt64/4 &&
		size > 4*q.cfg.PerWorkerBufferSize
}

// ChunkSize is the length of every range or part except possibly the last.
func (q QoS) ChunkSize() int64 {
	return q.cfg.PerWorkerBufferSize
}
