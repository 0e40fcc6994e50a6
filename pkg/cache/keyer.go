package cache

// ArtifactKeyOpts holds the encoding options that distinguish artifacts
// rendered from the same graph and source.
type ArtifactKeyOpts struct {
	Format  string `json:"format"`
	MaxSide int    `json:"max_side,omitempty"`
	Smooth  bool   `json:"smooth,omitempty"`
}

// Keyer builds cache keys.
type Keyer interface {
	// ArtifactKey identifies an encoded render of source through graph.
	ArtifactKey(graphHash, sourceHash string, opts ArtifactKeyOpts) string

	// FrameKey identifies one frame of an animated sequence.
	FrameKey(graphHash, sourceHash string, frame, total int, opts ArtifactKeyOpts) string
}

// DefaultKeyer produces "kind:sha256" keys.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// ArtifactKey implements [Keyer].
func (DefaultKeyer) ArtifactKey(graphHash, sourceHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", graphHash, sourceHash, opts)
}

// FrameKey implements [Keyer].
func (DefaultKeyer) FrameKey(graphHash, sourceHash string, frame, total int, opts ArtifactKeyOpts) string {
	return hashKey("frame", graphHash, sourceHash, frame, total, opts)
}
