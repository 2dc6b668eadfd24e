package plugin

import "errors"

// ErrDuplicateName is returned by Register when a plugin with the same name
// is already registered. This is the only engine entry point that surfaces
// an error to the caller; it indicates a wiring bug in the hosting app.
var ErrDuplicateName = errors.New("plugin name already registered")

// ErrPluginNotFound is returned when a named plugin is not registered.
var ErrPluginNotFound = errors.New("plugin not found")

// ErrFrameSkipped is returned by a frame handler to signal "not applicable
// this frame". The dispatcher records a Skip outcome, not a failure.
var ErrFrameSkipped = errors.New("frame skipped")
