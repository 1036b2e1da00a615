package template

import "errors"

// ErrMalformedDefinition is returned when a definition declares both or
// neither of the element and text shapes, or carries a value the engine
// cannot interpret.
var ErrMalformedDefinition = errors.New("template: malformed definition")

// ErrStructuralMismatch is returned when an applied or extended definition
// does not line up with the existing structure (child counts, node kinds).
var ErrStructuralMismatch = errors.New("template: structural mismatch")

// ErrAlreadyRendered is returned when a definition is rendered or applied a
// second time, or extended after it was rendered.
var ErrAlreadyRendered = errors.New("template: already rendered")

// ErrRevertWithoutApply is returned by Revert when nothing was applied to
// the given node.
var ErrRevertWithoutApply = errors.New("template: nothing was applied here")
