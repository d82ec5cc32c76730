package workload

import (
	"fmt"
	"strings"
)

// Share is one class's weight within a scenario mix. Weights within a
// scenario sum to 1.0.
type Share struct {
	Class  Class   `yaml:"class"`
	Weight float64 `yaml:"weight"`
}

// Scenario is a named workload: a weighted mix of query classes plus the
// pressure factors the environment applies.
type Scenario struct {
	ID             string  `yaml:"id"`
	Name           string  `yaml:"name"`
	Mix            []Share `yaml:"mix"`
	CPUPressure    float64 `yaml:"cpu_pressure"`
	IOPressure     float64 `yaml:"io_pressure"`
	MemoryPressure float64 `yaml:"memory_pressure"`
}

// Dominant returns the class with the highest weight in the mix.
func (s Scenario) Dominant() Class {
	dominant := ClassOLTP
	best := -1.0

	for _, share := range s.Mix {
		if share.Weight > best {
			best = share.Weight
			dominant = share.Class
		}
	}

	return dominant
}

// HasClass reports whether the mix gives any weight to the class.
func (s Scenario) HasClass(c Class) bool {
	for _, share := range s.Mix {
		if share.Class == c && share.Weight > 0 {
			return true
		}
	}

	return false
}

// catalog lists the built-in scenarios in presentation order.
var catalog = []Scenario{
	{
		ID:   "oltp",
		Name: "OLTP",
		Mix: []Share{
			{Class: ClassOLTP, Weight: 0.95},
			{Class: ClassOLAP, Weight: 0.05},
		},
		CPUPressure:    0.8,
		IOPressure:     0.7,
		MemoryPressure: 0.8,
	},
	{
		ID:   "olap",
		Name: "OLAP",
		Mix: []Share{
			{Class: ClassOLAP, Weight: 0.8},
			{Class: ClassOLTP, Weight: 0.15},
			{Class: ClassProblematic, Weight: 0.05},
		},
		CPUPressure:    1.5,
		IOPressure:     2.0,
		MemoryPressure: 1.8,
	},
	{
		ID:   "mixed",
		Name: "Mixed",
		Mix: []Share{
			{Class: ClassOLTP, Weight: 0.6},
			{Class: ClassOLAP, Weight: 0.3},
			{Class: ClassProblematic, Weight: 0.1},
		},
		CPUPressure:    1.0,
		IOPressure:     1.0,
		MemoryPressure: 1.0,
	},
	{
		ID:   "cpu_pressure",
		Name: "CPU Pressure",
		Mix: []Share{
			{Class: ClassOLTP, Weight: 0.4},
			{Class: ClassOLAP, Weight: 0.4},
			{Class: ClassProblematic, Weight: 0.2},
		},
		CPUPressure:    2.5,
		IOPressure:     1.2,
		MemoryPressure: 1.5,
	},
	{
		ID:   "io_bottleneck",
		Name: "I/O Bottleneck",
		Mix: []Share{
			{Class: ClassOLAP, Weight: 0.6},
			{Class: ClassProblematic, Weight: 0.3},
			{Class: ClassOLTP, Weight: 0.1},
		},
		CPUPressure:    1.2,
		IOPressure:     3.0,
		MemoryPressure: 1.0,
	},
	{
		ID:   "memory_pressure",
		Name: "Memory Pressure",
		Mix: []Share{
			{Class: ClassOLAP, Weight: 0.5},
			{Class: ClassProblematic, Weight: 0.4},
			{Class: ClassOLTP, Weight: 0.1},
		},
		CPUPressure:    1.3,
		IOPressure:     1.8,
		MemoryPressure: 3.0,
	},
	{
		ID:   "blocking",
		Name: "Blocking/Locking",
		Mix: []Share{
			{Class: ClassOLTP, Weight: 0.7},
			{Class: ClassOLAP, Weight: 0.2},
			{Class: ClassProblematic, Weight: 0.1},
		},
		CPUPressure:    0.6,
		IOPressure:     1.0,
		MemoryPressure: 1.0,
	},
	{
		ID:   "parameter_sniffing",
		Name: "Parameter Sniffing",
		Mix: []Share{
			{Class: ClassOLTP, Weight: 0.5},
			{Class: ClassProblematic, Weight: 0.5},
		},
		CPUPressure:    1.5,
		IOPressure:     1.5,
		MemoryPressure: 1.2,
	},
}

// Catalog returns the built-in scenarios in presentation order.
func Catalog() []Scenario {
	out := make([]Scenario, len(catalog))
	copy(out, catalog)

	return out
}

// Names returns the valid scenario IDs in catalog order.
func Names() []string {
	names := make([]string, len(catalog))
	for i, s := range catalog {
		names[i] = s.ID
	}

	return names
}

// ByName looks up a scenario by its ID, case-insensitively.
func ByName(name string) (Scenario, error) {
	key := strings.ToLower(strings.TrimSpace(name))

	for _, s := range catalog {
		if s.ID == key {
			return s, nil
		}
	}

	return Scenario{}, fmt.Errorf(
		"unknown workload %q (available: %s)",
		name, strings.Join(Names(), ", "),
	)
}
