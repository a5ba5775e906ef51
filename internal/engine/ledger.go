package engine

import "slices"

// DedupKey identifies one dispatch: a prayer at a wall-clock minute of a
// civil date. The date keeps an unchanged time on the next day from being
// mistaken for a repeat.
type DedupKey struct {
	Date   string
	Prayer Prayer
	Time   TimeOfDay
}

// Ledger remembers what was dispatched during the last dispatched minute so
// a prayer fires at most once per (prayer, HH:MM) no matter how many ticks
// land inside that minute. It is owned by the dispatcher loop and is not
// safe for concurrent use.
type Ledger struct {
	date    string
	minute  TimeOfDay
	prayers []Prayer
}

// Seen reports whether k was already dispatched.
func (l *Ledger) Seen(k DedupKey) bool {
	return len(l.prayers) > 0 && l.date == k.Date && l.minute == k.Time &&
		slices.Contains(l.prayers, k.Prayer)
}

// Mark records k as dispatched, forgetting any earlier minute.
func (l *Ledger) Mark(k DedupKey) {
	if l.date != k.Date || l.minute != k.Time {
		l.date, l.minute = k.Date, k.Time
		l.prayers = l.prayers[:0]
	}
	if !slices.Contains(l.prayers, k.Prayer) {
		l.prayers = append(l.prayers, k.Prayer)
	}
}

// Last returns the most recently marked key.
func (l *Ledger) Last() (DedupKey, bool) {
	if len(l.prayers) == 0 {
		return DedupKey{}, false
	}
	return DedupKey{Date: l.date, Prayer: l.prayers[len(l.prayers)-1], Time: l.minute}, true
}

// Reset forgets every key.
func (l *Ledger) Reset() {
	l.date = ""
	l.minute = 0
	l.prayers = l.prayers[:0]
}
