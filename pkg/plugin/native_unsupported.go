//go:build !(linux || darwin || freebsd)

package plugin

// NativeOpener is not available on this platform and fails to open any path
type NativeOpener struct{}

// Accepts implements Opener
func (NativeOpener) Accepts(string) bool {
	return true
}

// Open implements Opener
func (NativeOpener) Open(path string) (Library, error) {
	return nil, ErrUnsupported
}
