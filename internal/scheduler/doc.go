// Package scheduler is the lane-allocation engine behind the overlay.
//
// An [Engine] owns a FIFO of pending items and a lane table. Every tick it
// walks the queue in order, measures items it sees for the first time,
// drops items taller than the display, and admits items to the first
// contiguous run of available lanes. A blocked item does not block the
// items behind it. At most a third of the lane count is admitted per tick.
//
// The tick loop reschedules itself on the configured poll interval while
// items are pending and stops once the queue drains; [Engine.Add] and
// [Engine.Resume] restart it.
//
// Motion itself is delegated to a [Surface]: the engine tells it where an
// item starts, where it ends and how long it takes, and the surface reports
// back through [Engine.Finished] when an item has scrolled off. Pausing
// freezes every hosted item where it is; resuming restarts each one from
// its frozen distance at its original speed, so no seam is visible.
//
// All entry points are serialized by a single mutex, so ticks never
// overlap with each other or with pause, resume, resize and clear.
package scheduler
