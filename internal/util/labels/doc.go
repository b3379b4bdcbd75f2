// Package labels provides consistent tagging for the AWS resources an
// execution creates.
//
// All keys use the edgeforge: prefix and follow a builder pattern for
// constructing tag sets with the execution id, model package group, target
// device and manager identification.
package labels
