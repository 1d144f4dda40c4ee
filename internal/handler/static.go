package handler

import _ "embed"

//go:embed static/info.html
var infoPage []byte

// InfoPage returns the static informational document.
func InfoPage() []byte {
	return infoPage
}
