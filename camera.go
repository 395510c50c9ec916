package rawtiler

// CameraMeta carries the per-frame camera calibration the pipeline needs
// to turn RAW samples into normalized values: white balance gains and the
// black/white normalization levels.
type CameraMeta struct {
	// WB holds the three white-balance gains (R, G, B), default 1.0 each.
	WB [3]float32

	BlackLevel float32
	WhiteLevel float32
}

// DefaultCameraMeta returns metadata with identity white balance and no
// black/white levels set (WhiteLevel == BlackLevel triggers the pipeline's
// per-image min/max fallback).
func DefaultCameraMeta() CameraMeta {
	return CameraMeta{WB: [3]float32{1, 1, 1}}
}

// Valid reports whether WhiteLevel/BlackLevel form a usable normalization
// range on their own (white_level > black_level + 1.0). When false, the
// pipeline substitutes the RAW buffer's own min/max.
func (m CameraMeta) Valid() bool {
	return m.WhiteLevel > m.BlackLevel+1.0
}
