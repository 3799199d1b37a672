package ports

// Watcher monitors a single file (the scoring lexicon) and fires when it
// changes. Editors often replace files via rename, so the adapter watches
// the parent directory and filters by name. Only one Watch call should be
// active at a time.
type Watcher interface {
	// Watch starts monitoring filePath. onChange is called with the absolute
	// path after each write, create, or rename that lands on it. The callback
	// may be invoked from any goroutine. Returns an error if the parent
	// directory doesn't exist or permissions are insufficient.
	Watch(filePath string, onChange func(filePath string)) error

	// Stop ends monitoring and releases all resources. After Stop returns,
	// no further onChange calls will fire. Safe to call multiple times.
	Stop() error
}
