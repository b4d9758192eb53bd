// SPDX-License-Identifier: Apache-2.0

package cluster

import (
	"fmt"
	"net"
	"strings"
)

// Auth carries the admin credentials used for every request against the
// cluster's management API.
type Auth struct {
	Username string
	Password string
}

// Node is a handle to a single cluster node's management endpoint.
type Node struct {
	Host string
	Port int
	Auth Auth
}

func NewNode(host string, port int, auth Auth) Node {
	return Node{Host: host, Port: port, Auth: auth}
}

// Hostname returns the host:port form, bracketing IPv6 literals.
func (n Node) Hostname() string {
	ip := net.ParseIP(n.Host)
	if ip != nil && strings.Contains(n.Host, ":") {
		return fmt.Sprintf("[%s]:%d", n.Host, n.Port)
	}
	return fmt.Sprintf("%s:%d", n.Host, n.Port)
}

// URL returns the base HTTP URL of the node's management API.
func (n Node) URL() string {
	return "http://" + n.Hostname()
}

func (n Node) String() string {
	return n.Hostname()
}

// EndpointNode implements Endpoint so a Node can be queried directly.
func (n Node) EndpointNode() Node {
	return n
}

// Credentials implements Endpoint.
func (n Node) Credentials() Auth {
	return n.Auth
}

// NodeURLs renders the management URL of every node in the slice.
func NodeURLs(nodes []Node) []string {
	urls := make([]string, 0, len(nodes))
	for _, n := range nodes {
		urls = append(urls, n.URL())
	}
	return urls
}
