package dashboard

import (
	"sync"
	"time"
)

// DefaultSearchDelay adalah jeda ketik sebelum pencarian dijalankan.
const DefaultSearchDelay = 300 * time.Millisecond

// Debouncer menjalankan fungsi terakhir setelah jeda tanpa pemicu baru.
// Pemicu yang datang saat menunggu membatalkan fungsi sebelumnya.
type Debouncer struct {
	delay time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	seq     uint64
	pending func()
}

// NewDebouncer membuat debouncer dengan jeda delay.
func NewDebouncer(delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = DefaultSearchDelay
	}
	return &Debouncer{delay: delay}
}

// Trigger menjadwalkan fn dan membatalkan jadwal sebelumnya.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	seq := d.seq
	d.pending = fn
	d.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		// A stopped timer may still fire once; seq rejects the stale run.
		if seq != d.seq || d.pending == nil {
			d.mu.Unlock()
			return
		}
		run := d.pending
		d.pending = nil
		d.timer = nil
		d.mu.Unlock()
		run()
	})
}

// Cancel membuang jadwal yang belum berjalan.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.seq++
	d.pending = nil
}

// Flush langsung menjalankan fungsi yang tertunda, bila ada.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	run := d.pending
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.seq++
	d.pending = nil
	d.mu.Unlock()
	if run != nil {
		run()
	}
}
