//go:build !ORT

package provider

import "github.com/knights-analytics/hugot"

// Pure-Go inference backend. Slower than ONNX Runtime but needs no
// native library.
func newHugotSession() (*hugot.Session, error) {
	return hugot.NewGoSession()
}
