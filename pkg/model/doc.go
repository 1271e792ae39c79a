// Package model defines the field descriptors, canonical value commands, and
// server error payloads shared by the dispatcher, widgets, and renderers.
//
// A Descriptor identifies one logical field inside a caller-owned draft object
// through a dotted path (for example "acquisition_price.initial"). Descriptors
// are immutable per render: widgets never mutate them, and the dispatcher never
// retains the draft across renders. Widgets report edits as FieldChange values
// which the enclosing form applies to its draft.
//
// InputType is a closed set. Strings coming from YAML or OpenAPI extensions are
// converted once through ParseInputType so an unknown widget kind surfaces as a
// configuration error at load time instead of during rendering.
package model
