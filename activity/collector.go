package activity

// Collector accumulates records in arrival order and drops repeats by Key.
// It is not safe for concurrent use.
type Collector struct {
	seen    map[string]struct{}
	records []Record
}

func NewCollector() *Collector {
	return &Collector{seen: make(map[string]struct{})}
}

// Add reports whether rec was new.
func (c *Collector) Add(rec Record) bool {
	k := rec.Key()
	if _, ok := c.seen[k]; ok {
		return false
	}
	c.seen[k] = struct{}{}
	c.records = append(c.records, rec)
	return true
}

func (c *Collector) AddAll(recs []Record) int {
	var added int
	for _, r := range recs {
		if c.Add(r) {
			added++
		}
	}
	return added
}

func (c *Collector) Len() int {
	return len(c.records)
}

func (c *Collector) Records() []Record {
	out := make([]Record, len(c.records))
	copy(out, c.records)
	return out
}
