package engine

// passHistory is a fixed-capacity ring buffer of pass records.
type passHistory struct {
	buf      []PassRecord
	start    int
	count    int
	capacity int
}

func newPassHistory(capacity int) *passHistory {
	if capacity <= 0 {
		capacity = defaultHistoryLimit
	}
	return &passHistory{
		buf:      make([]PassRecord, capacity),
		capacity: capacity,
	}
}

func (h *passHistory) append(record PassRecord) {
	if h.count < h.capacity {
		h.buf[(h.start+h.count)%h.capacity] = record
		h.count++
		return
	}
	h.buf[h.start] = record
	h.start = (h.start + 1) % h.capacity
}

func (h *passHistory) snapshot() []PassRecord {
	if h.count == 0 {
		return nil
	}
	out := make([]PassRecord, h.count)
	for i := 0; i < h.count; i++ {
		out[i] = h.buf[(h.start+i)%h.capacity]
	}
	return out
}
