// Package dashboard provides the embedded overlay page.
//
// The page connects to the display event stream, animates every play,
// freeze and remove it receives with CSS transitions, and reports its own
// size and visibility back to the server so that the lanes follow the
// browser window. It also carries the message submission form.
package dashboard

import "embed"

// Assets is an embedded filesystem containing the overlay page.
//
// The filesystem structure is:
//
//	assets/
//	  index.html    - Overlay page with inline CSS and JavaScript
//
//go:embed assets/*
var Assets embed.FS
