package build

import "errors"

// Sentinel errors wrapped into classified page failures.
var (
	ErrDestEscapesRoot = errors.New("pagefactory: page key escapes destination root")
	ErrEmptyPageKey    = errors.New("pagefactory: empty page key")
)

// Component is the component name reported with every pass error.
const Component = "pagefactory"

// Failure stages.
const (
	StageManifest    = "manifest"
	StageTemplate    = "template"
	StageVariables   = "variables"
	StageInject      = "inject"
	StageRender      = "render"
	StagePostProcess = "postprocess"
	StageWrite       = "write"
)
