package ports

// FrameSink receives paced frames for display or storage.
// It stands in for a texture upload on a display surface.
type FrameSink interface {
	// Upload consumes one frame. The sink may retain frame.Pix.
	Upload(frame *NormalizedFrame) error

	// Close flushes any pending output.
	Close() error
}
