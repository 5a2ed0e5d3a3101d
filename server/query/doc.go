// Package query answers Bedrock query protocol requests on the UDP port of the
// game listener.
//
// Query requests share the port with RakNet traffic. Register installs a
// RakNet network that filters query datagrams out before RakNet sees them and
// answers them with the state reported by a Provider.
package query
