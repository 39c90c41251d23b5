// Package testutil provides builders shared by the SDK's tests.
package testutil
