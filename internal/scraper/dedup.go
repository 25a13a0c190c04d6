package scraper

// Deduplicator tracks the phone numbers already emitted during one run.
// Numbers are compared as literal strings; formatting is never normalized.
type Deduplicator struct {
	seen map[string]struct{}
}

// NewDeduplicator returns an empty Deduplicator.
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{seen: make(map[string]struct{})}
}

// Admit records number and returns true on its first occurrence; every
// later call with the same string returns false.
func (d *Deduplicator) Admit(number string) bool {
	if _, ok := d.seen[number]; ok {
		return false
	}
	d.seen[number] = struct{}{}
	return true
}

// Len returns the number of distinct numbers admitted.
func (d *Deduplicator) Len() int {
	return len(d.seen)
}
