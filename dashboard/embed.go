// Package dashboard provides the embedded page shell for the push mirror.
//
// The shell is an html/template rendered by the server package with the
// current push fragment. A small script subscribes to /api/sse and swaps the
// push region whenever a new fragment arrives.
package dashboard

import "embed"

// Assets is an embedded filesystem containing the page shell.
//
//	assets/
//	  index.html    - page template (Title, State, Key, Fragment)
//
//go:embed assets/*
var Assets embed.FS
