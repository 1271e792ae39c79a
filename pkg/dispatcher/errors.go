package dispatcher

import (
	"fmt"

	goerrors "github.com/goliatone/go-errors"
)

// TextCodeFieldConfig tags descriptor configuration errors.
const TextCodeFieldConfig = "FIELD_CONFIG_INVALID"

// configError wraps an implementer mistake. These are not user facing.
func configError(path string, err error) error {
	if err == nil {
		return nil
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, fmt.Sprintf("field %q is misconfigured", path)).
		WithTextCode(TextCodeFieldConfig)
}

// IsConfigError reports whether err came from descriptor validation.
func IsConfigError(err error) bool {
	return goerrors.IsCategory(err, goerrors.CategoryInternal)
}
