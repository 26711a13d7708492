// Package version holds the release version of the eunoia client.
package version

// Client is the version reported in logs and in the User-Agent header.
const Client = "v0.4.0"
