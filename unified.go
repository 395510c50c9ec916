package rawtiler

import (
	"github.com/gogpu/rawtiler/plugin"
	"github.com/gogpu/rawtiler/rawimage"
)

// ProcessingStep references a plugin instance by id. History ordering is
// authoritative: plugins of the same stage run in the order they appear.
type ProcessingStep struct {
	InstanceID plugin.ID
}

// UnifiedRaw bundles a RAW buffer with the camera metadata needed to
// normalize it and the ordered history of processing steps to apply. The
// caller owns it; the pipeline only ever borrows it immutably for the
// duration of a single Apply call.
type UnifiedRaw struct {
	Raw     *rawimage.Raw
	Meta    CameraMeta
	History []ProcessingStep
}
