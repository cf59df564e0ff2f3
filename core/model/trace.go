package model

// RefuelEvent records fuel put on board at a station, expressed as range.
type RefuelEvent struct {
	Node     NodeID  `json:"node_id"`
	AmountKM float64 `json:"amount_km"`
}

// PathTrace is the simulated history of one path.
type PathTrace struct {
	PathID            RouteID       `json:"path_id"`
	StartRange        float64       `json:"start_range"`
	Refuels           []RefuelEvent `json:"refuels"`
	EndRemainingRange float64       `json:"end_remaining_range"`
}

// RefuelledKM sums the range dispensed along the path.
func (t PathTrace) RefuelledKM() float64 {
	var sum float64
	for _, r := range t.Refuels {
		sum += r.AmountKM
	}
	return sum
}

// Trace holds one PathTrace per simulated path, in path order.
type Trace struct {
	Paths []PathTrace `json:"paths"`
	index map[RouteID]int
}

// NewTrace returns an empty trace.
func NewTrace() *Trace { return &Trace{index: make(map[RouteID]int)} }

// Add appends the trace of a path.
func (t *Trace) Add(pt PathTrace) {
	if t.index == nil {
		t.index = make(map[RouteID]int)
	}
	t.index[pt.PathID] = len(t.Paths)
	t.Paths = append(t.Paths, pt)
}

// Path returns the trace of the given path.
func (t *Trace) Path(id RouteID) (PathTrace, bool) {
	i, ok := t.index[id]
	if !ok {
		return PathTrace{}, false
	}
	return t.Paths[i], true
}
