package cache

// ScopedKeyer prepends a fixed prefix to every key of an inner [Keyer], so
// that several producers can share one backend. The HTTP server scopes its
// keys with "server:".
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer scopes inner under prefix. A nil inner uses the default
// keyer.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

func (k *ScopedKeyer) ArtifactKey(graphHash, sourceHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(graphHash, sourceHash, opts)
}

func (k *ScopedKeyer) FrameKey(graphHash, sourceHash string, frame, total int, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.FrameKey(graphHash, sourceHash, frame, total, opts)
}
