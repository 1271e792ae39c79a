package render

// RenderOptions carry per-request data that is not part of the form session.
type RenderOptions struct {
	// Action is the URL field events and the final submission post to.
	Action string
	// Method overrides the submission verb. Browsers only send GET and POST,
	// so other verbs are emitted as POST plus a hidden _method input.
	Method string
	// Hidden fields are emitted in name order.
	Hidden []HiddenField
	// Field limits output to the single field with this path, used to answer
	// field events with a fragment.
	Field string
}
