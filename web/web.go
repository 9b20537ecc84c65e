// Package web holds static assets served by the API, embedded into the
// binary so a single artifact ships the backend and its widget script.
package web

import "embed"

// Widget contains the embeddable chat widget script under widget/.
//
//go:embed widget/chat.js
var Widget embed.FS
