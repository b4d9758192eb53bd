// SPDX-License-Identifier: Apache-2.0

package provision

import (
	"github.com/joomcode/errorx"
)

var (
	ErrorsNamespace = errorx.NewNamespace("provision")

	// ProvisionError is fatal for the run: a failed start or connect is an
	// environment fault needing human attention, never retried.
	ProvisionError = ErrorsNamespace.NewType("provision_failed")

	// ResidualUnmetError means a freshly built cluster still fails its own
	// requirements. That is a bug in the adapter or the collaborator, and
	// it must fail loudly rather than hand back a non-conforming cluster.
	ResidualUnmetError = ErrorsNamespace.NewType("residual_unmet")

	requirementsProperty = errorx.RegisterPrintableProperty("requirements")
)

const residualUnmetErrorMsg = "newly created cluster still has requirements unmet: %s"

func NewResidualUnmetError(unmet string) *errorx.Error {
	return ResidualUnmetError.New(residualUnmetErrorMsg, unmet).
		WithProperty(requirementsProperty, unmet)
}
