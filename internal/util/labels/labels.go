package labels

import "sort"

// Standard tag keys for compilation jobs, packaging jobs, component versions
// and deployments.
const (
	// KeyExecution identifies the execution that created a resource
	KeyExecution = "edgeforge:execution-id"

	// KeyModelGroup identifies the model package group deployed
	KeyModelGroup = "edgeforge:model-package-group"

	// KeyDevice identifies the core device deployed to
	KeyDevice = "edgeforge:thing-name"

	// KeyManagedBy identifies the management system
	KeyManagedBy = "edgeforge:managed-by"
)

// ManagedByEdgeforge is the KeyManagedBy value of resources created by the CLI.
const ManagedByEdgeforge = "edgeforge"

// LabelBuilder provides a fluent interface for building resource tags.
type LabelBuilder struct {
	labels map[string]string
}

// NewLabelBuilder creates a new builder with the execution id pre-set.
func NewLabelBuilder(executionID string) *LabelBuilder {
	return &LabelBuilder{
		labels: map[string]string{
			KeyExecution: executionID,
			KeyManagedBy: ManagedByEdgeforge,
		},
	}
}

// WithModelGroupIfSet adds the model package group only if it is non-empty.
func (lb *LabelBuilder) WithModelGroupIfSet(group string) *LabelBuilder {
	if group != "" {
		lb.labels[KeyModelGroup] = group
	}
	return lb
}

// WithDevice adds the target thing name.
func (lb *LabelBuilder) WithDevice(thingName string) *LabelBuilder {
	lb.labels[KeyDevice] = thingName
	return lb
}

// WithManagedBy sets who manages this resource.
func (lb *LabelBuilder) WithManagedBy(manager string) *LabelBuilder {
	lb.labels[KeyManagedBy] = manager
	return lb
}

// Merge adds all tags from the provided map. Standard keys set so far are
// kept.
func (lb *LabelBuilder) Merge(extra map[string]string) *LabelBuilder {
	for k, v := range extra {
		if _, reserved := lb.labels[k]; reserved && isStandard(k) {
			continue
		}
		lb.labels[k] = v
	}
	return lb
}

// Build returns a copy of the tags map.
func (lb *LabelBuilder) Build() map[string]string {
	result := make(map[string]string, len(lb.labels))
	for k, v := range lb.labels {
		result[k] = v
	}
	return result
}

// Keys returns the tag keys of m in sorted order.
func Keys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func isStandard(key string) bool {
	switch key {
	case KeyExecution, KeyModelGroup, KeyDevice, KeyManagedBy:
		return true
	default:
		return false
	}
}
