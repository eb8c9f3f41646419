// Package stage provides the display surfaces the scheduler plays items on.
//
// A [Stage] is a virtual display: it keeps the position of every hosted
// item as a function of time, reports completed motions back to the
// scheduler through the clock, and publishes every change as an [Event] so
// that remote renderers (the browser overlay, the terminal view) can
// animate the same picture.
//
// [TextMeasurer] and [CellMeasurer] estimate the rendered size of a message
// in pixels and terminal cells respectively.
package stage
