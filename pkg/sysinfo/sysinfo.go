package sysinfo

import (
	"runtime"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/sirupsen/logrus"
)

// Snapshot describes the host a dataset was generated on. It is embedded
// in the generation summary so corpus entries stay attributable.
type Snapshot struct {
	Hostname        string `json:"hostname,omitempty" mapstructure:"hostname"`
	OS              string `json:"os,omitempty" mapstructure:"os"`
	Platform        string `json:"platform,omitempty" mapstructure:"platform"`
	PlatformVersion string `json:"platform_version,omitempty" mapstructure:"platform_version"`
	KernelVersion   string `json:"kernel_version,omitempty" mapstructure:"kernel_version"`
	Arch            string `json:"arch,omitempty" mapstructure:"arch"`
	CPUModel        string `json:"cpu_model,omitempty" mapstructure:"cpu_model"`
	CPUCores        int    `json:"cpu_cores,omitempty" mapstructure:"cpu_cores"`
	MemoryTotal     uint64 `json:"memory_total_bytes,omitempty" mapstructure:"memory_total_bytes"`
	GoVersion       string `json:"go_version" mapstructure:"go_version"`
}

// Collect gathers a best-effort host snapshot. Unreadable fields stay
// zero; collection never fails the caller.
func Collect(log logrus.FieldLogger) *Snapshot {
	snapshot := &Snapshot{
		GoVersion: runtime.Version(),
		Arch:      runtime.GOARCH,
	}

	if info, err := host.Info(); err != nil {
		log.WithError(err).Warn("Failed to read host info")
	} else {
		snapshot.Hostname = info.Hostname
		snapshot.OS = info.OS
		snapshot.Platform = info.Platform
		snapshot.PlatformVersion = info.PlatformVersion
		snapshot.KernelVersion = info.KernelVersion
	}

	if infos, err := cpu.Info(); err != nil {
		log.WithError(err).Warn("Failed to read cpu info")
	} else if len(infos) > 0 {
		snapshot.CPUModel = infos[0].ModelName
	}

	if count, err := cpu.Counts(true); err != nil {
		log.WithError(err).Warn("Failed to count cpus")
	} else {
		snapshot.CPUCores = count
	}

	if vm, err := mem.VirtualMemory(); err != nil {
		log.WithError(err).Warn("Failed to read memory info")
	} else {
		snapshot.MemoryTotal = vm.Total
	}

	return snapshot
}
