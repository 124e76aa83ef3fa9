// Package cli turns command-line arguments into an app.Config. Usage and
// validation failures come back as an ExitError carrying the process exit
// code.
package cli
