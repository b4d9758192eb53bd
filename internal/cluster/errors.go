// SPDX-License-Identifier: Apache-2.0

package cluster

import (
	"github.com/joomcode/errorx"
)

var (
	ErrorsNamespace       = errorx.NewNamespace("cluster")
	ConnectError          = ErrorsNamespace.NewType("connect_error")
	RequestError          = ErrorsNamespace.NewType("request_error")
	UnexpectedStatusError = ErrorsNamespace.NewType("unexpected_status")
	RebalanceError        = ErrorsNamespace.NewType("rebalance_error")
	NodeNotFoundError     = ErrorsNamespace.NewType("node_not_found")
	TeardownError         = ErrorsNamespace.NewType("teardown_error")

	urlProperty        = errorx.RegisterPrintableProperty("url")
	statusCodeProperty = errorx.RegisterPrintableProperty("status_code")
	bodyProperty       = errorx.RegisterPrintableProperty("response_body")
)

const (
	connectErrorMsg          = "failed to connect to %s"
	unexpectedStatusErrorMsg = "%s %s returned %d (expected %s)"
)

func NewConnectError(cause error, url string) *errorx.Error {
	return ConnectError.Wrap(cause, connectErrorMsg, url).
		WithProperty(urlProperty, url)
}

func NewUnexpectedStatusError(method, url string, code int, expected string, body []byte) *errorx.Error {
	return UnexpectedStatusError.New(unexpectedStatusErrorMsg, method, url, code, expected).
		WithProperty(urlProperty, url).
		WithProperty(statusCodeProperty, code).
		WithProperty(bodyProperty, string(body))
}
