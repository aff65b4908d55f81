package bot

import "sync"

// Deduper tracks which attachments have been processed per message, bounded
// to the most recent N distinct message identities. Eviction is FIFO by
// first-seen order, not by last access.
type Deduper struct {
	mu       sync.Mutex
	capacity int
	seen     map[string]map[string]bool // message identity -> attachment identities
	order    []string                   // first-seen order for eviction
}

// NewDeduper creates a deduper retaining up to capacity message identities
func NewDeduper(capacity int) *Deduper {
	if capacity <= 0 {
		capacity = 512
	}
	return &Deduper{
		capacity: capacity,
		seen:     make(map[string]map[string]bool),
	}
}

// Seen reports whether the attachment was already marked for this message.
// An empty message identity means no persistent tracking is possible and the
// attachment is treated as unprocessed.
func (d *Deduper) Seen(messageID, attachmentID string) bool {
	if messageID == "" {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	atts, ok := d.seen[messageID]
	return ok && atts[attachmentID]
}

// Mark records the attachment as processed for this message, evicting the
// oldest message identity when the window overflows
func (d *Deduper) Mark(messageID, attachmentID string) {
	if messageID == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	atts, ok := d.seen[messageID]
	if !ok {
		atts = make(map[string]bool)
		d.seen[messageID] = atts
		d.order = append(d.order, messageID)

		for len(d.order) > d.capacity {
			oldest := d.order[0]
			d.order = d.order[1:]
			delete(d.seen, oldest)
		}
	}
	atts[attachmentID] = true
}

// Len returns the number of tracked message identities
func (d *Deduper) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
