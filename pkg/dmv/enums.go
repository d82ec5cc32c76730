package dmv

import "strings"

// WaitCategory identifies a wait classification as reported by
// sys.query_store_wait_stats, with the engine's category IDs.
type WaitCategory int

const (
	WaitCategoryCPU         WaitCategory = 1
	WaitCategoryLock        WaitCategory = 3
	WaitCategoryLatch       WaitCategory = 4
	WaitCategoryBufferIO    WaitCategory = 6
	WaitCategoryIdle        WaitCategory = 11
	WaitCategoryPreemptive  WaitCategory = 12
	WaitCategoryNetworkIO   WaitCategory = 15
	WaitCategoryParallelism WaitCategory = 16
	WaitCategoryMemory      WaitCategory = 17
)

// WaitCategories lists every modeled category in catalog order.
var WaitCategories = []WaitCategory{
	WaitCategoryBufferIO,
	WaitCategoryNetworkIO,
	WaitCategoryMemory,
	WaitCategoryParallelism,
	WaitCategoryPreemptive,
	WaitCategoryIdle,
	WaitCategoryLock,
	WaitCategoryLatch,
	WaitCategoryCPU,
}

// String returns the display name used in the wait_category column.
func (c WaitCategory) String() string {
	switch c {
	case WaitCategoryCPU:
		return "CPU"
	case WaitCategoryLock:
		return "Lock"
	case WaitCategoryLatch:
		return "Latch"
	case WaitCategoryBufferIO:
		return "Buffer IO"
	case WaitCategoryIdle:
		return "Idle"
	case WaitCategoryPreemptive:
		return "Preemptive"
	case WaitCategoryNetworkIO:
		return "Network IO"
	case WaitCategoryParallelism:
		return "Parallelism"
	default:
		return "Unknown"
	}
}

// IsIO reports whether waits in this category are I/O bound.
func (c WaitCategory) IsIO() bool {
	return strings.Contains(c.String(), "IO")
}

// IsMemory reports whether waits in this category are memory bound.
func (c WaitCategory) IsMemory() bool {
	return c == WaitCategoryMemory
}

// ExecutionType classifies how an execution finished, with the engine's
// execution_type IDs.
type ExecutionType int

const (
	ExecutionTypeRegular   ExecutionType = 0
	ExecutionTypeAborted   ExecutionType = 3
	ExecutionTypeException ExecutionType = 4
)

// String returns the execution_type_desc display value.
func (t ExecutionType) String() string {
	switch t {
	case ExecutionTypeAborted:
		return "Aborted"
	case ExecutionTypeException:
		return "Exception"
	default:
		return "Regular"
	}
}

// ParameterizationType classifies how a query was parameterized.
type ParameterizationType int

const (
	ParameterizationNone ParameterizationType = 0
	ParameterizationUser ParameterizationType = 1
)

// String returns the query_parameterization_type_desc display value.
func (p ParameterizationType) String() string {
	if p == ParameterizationUser {
		return "User"
	}

	return "None"
}
