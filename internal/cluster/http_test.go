// SPDX-License-Identifier: Apache-2.0

package cluster

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/joomcode/errorx"
	"github.com/stretchr/testify/require"
)

func testNode(t *testing.T, srv *httptest.Server, auth Auth) Node {
	t.Helper()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	return NewNode(u.Hostname(), port, auth)
}

func TestRequestSendsBasicAuthAndForm(t *testing.T) {
	var gotUser, gotPass, gotBody, gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, gotPass, _ = r.BasicAuth()
		gotContentType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	node := testNode(t, srv, Auth{Username: "Administrator", Password: "asdasd"})
	form := url.Values{}
	form.Set("memoryQuota", "512")
	res, err := PostSucc(context.Background(), node, "/pools/default", WithForm(form))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)

	require.Equal(t, "Administrator", gotUser)
	require.Equal(t, "asdasd", gotPass)
	require.Equal(t, "memoryQuota=512", gotBody)
	require.Equal(t, "application/x-www-form-urlencoded", gotContentType)
}

func TestRequestUnexpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"errors":{"name":"invalid"}}`))
	}))
	defer srv.Close()

	node := testNode(t, srv, Auth{})
	res, err := GetSucc(context.Background(), node, "/pools/default")
	require.Error(t, err)
	require.True(t, errorx.IsOfType(err, UnexpectedStatusError))
	// the parsed response still comes back for callers that want the body
	require.NotNil(t, res)
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
	require.Contains(t, res.Text(), "invalid")
}

func TestEnsureDeletedAccepts404(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	node := testNode(t, srv, Auth{})
	res, err := EnsureDeleted(context.Background(), node, "/pools/default/buckets/gone")
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestDiagEvalTrimsOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/diag/eval", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		require.Equal(t, "cluster_compat_mode:is_enterprise().", string(body))
		w.Write([]byte("true\n"))
	}))
	defer srv.Close()

	node := testNode(t, srv, Auth{})
	out, err := DiagEval(context.Background(), node, "cluster_compat_mode:is_enterprise().")
	require.NoError(t, err)
	require.Equal(t, "true", out)
}

func TestResponseJSONRejectsGarbage(t *testing.T) {
	res := &Response{StatusCode: http.StatusOK, Body: []byte("not json")}
	var v map[string]any
	err := res.JSON(&v)
	require.Error(t, err)
	require.True(t, errorx.IsOfType(err, errorx.IllegalFormat))
}
