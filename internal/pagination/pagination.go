// Package pagination tracks how much of a ranked list has been loaded and
// gates "load more" requests.
package pagination

// Data holds limit/offset/total for one list view.
// It is not safe for concurrent use.
type Data struct {
	total         int
	currentLimit  int
	currentOffset int

	handlers map[string]func(*Data)
}

// New creates pagination state. Values are clamped so that
// limit <= total and 0 <= offset <= total-limit.
func New(total, limit, offset int) *Data {
	d := &Data{}
	d.Reset(total, limit, offset)
	return d
}

// Total is the number of elements the upstream list holds.
func (d *Data) Total() int { return d.total }

// CurrentLimit is the page size.
func (d *Data) CurrentLimit() int { return d.currentLimit }

// CurrentOffset is the offset of the last loaded page.
func (d *Data) CurrentOffset() int { return d.currentOffset }

// RemainingElements is total - offset - limit. Callers gate on > 0.
func (d *Data) RemainingElements() int {
	return d.total - d.currentOffset - d.currentLimit
}

// SetTotal ignores negative or unchanged values. Limit and offset are
// clamped against the new total.
func (d *Data) SetTotal(v int) {
	if v < 0 || v == d.total {
		return
	}
	d.total, d.currentLimit, d.currentOffset = clamp(v, d.currentLimit, d.currentOffset)
	d.changed()
}

// SetCurrentLimit clamps to at most Total.
func (d *Data) SetCurrentLimit(v int) {
	if v < 0 || v == d.currentLimit {
		return
	}
	d.currentLimit = min(v, d.total)
	d.changed()
}

// SetCurrentOffset clamps into [0, total-limit].
func (d *Data) SetCurrentOffset(v int) {
	if v < 0 || v == d.currentOffset {
		return
	}
	d.currentOffset = max(0, min(v, d.total-d.currentLimit))
	d.changed()
}

// UpdateOffset advances the offset by one page, but only while elements
// remain. Returns whether it advanced.
func (d *Data) UpdateOffset() bool {
	if d.RemainingElements() <= 0 {
		return false
	}
	d.SetCurrentOffset(d.currentOffset + d.currentLimit)
	return true
}

// Reset reinitializes all fields and drops registered handlers.
func (d *Data) Reset(total, limit, offset int) {
	d.total, d.currentLimit, d.currentOffset = clamp(total, limit, offset)
	d.handlers = nil
}

func clamp(total, limit, offset int) (int, int, int) {
	total = max(0, total)
	limit = min(max(0, limit), total)
	offset = max(0, min(offset, total-limit))
	return total, limit, offset
}

// RegisterChangedHandler registers fn under key, replacing any previous one.
func (d *Data) RegisterChangedHandler(key string, fn func(*Data)) {
	if d.handlers == nil {
		d.handlers = make(map[string]func(*Data))
	}
	d.handlers[key] = fn
}

// UnregisterChangedHandler removes the handler registered under key.
func (d *Data) UnregisterChangedHandler(key string) {
	delete(d.handlers, key)
}

func (d *Data) changed() {
	for _, fn := range d.handlers {
		fn(d)
	}
}
