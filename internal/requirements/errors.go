// SPDX-License-Identifier: Apache-2.0

package requirements

import (
	"github.com/joomcode/errorx"
)

var (
	ErrorsNamespace = errorx.NewNamespace("requirements")
	ImmutableError  = ErrorsNamespace.NewType("cannot_change")

	// UnsatisfiableError marks a requirement set an existing cluster can
	// never meet, since the failing requirements cannot be reconfigured.
	UnsatisfiableError = ErrorsNamespace.NewType("unsatisfiable")

	requirementProperty = errorx.RegisterPrintableProperty("requirement")
)

const immutableErrorMsg = "cannot change requirement %s after cluster creation"

func NewImmutableError(r Requirement) *errorx.Error {
	return ImmutableError.New(immutableErrorMsg, r.String()).
		WithProperty(requirementProperty, r.String())
}

// NewUnsatisfiableError creates an error listing the requirements the
// cluster at hand cannot be brought to meet.
func NewUnsatisfiableError(reqs []Requirement) *errorx.Error {
	rendered := FormatList(reqs)
	return UnsatisfiableError.New("cluster cannot satisfy requirements: %s", rendered).
		WithProperty(requirementProperty, rendered)
}
