// Package version holds the software version reported with predictions.
package version

// Version is the running software version. Release builds override it:
//
//	go build -ldflags "-X github.com/ajitpratap0/vehicleinsurance/pkg/version.Version=1.2.0"
var Version = "0.0.1"

// APIVersion is the version of the HTTP API.
var APIVersion = "0.0.1"
