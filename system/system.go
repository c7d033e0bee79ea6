package system

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

// Snapshot describes the resource usage of the host the miner runs on.
type Snapshot struct {
	NumCPU        int     `json:"num_cpu"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	Load1         float64 `json:"load1"`
	TemperatureC  float64 `json:"temperature_c"` // hottest sensor, 0 if none readable
}

// Read collects a Snapshot. Individual readings that fail are left at zero
// and reported in the joined error, so a partial snapshot is still usable.
func Read() (Snapshot, error) {
	snap := Snapshot{NumCPU: runtime.NumCPU()}
	var errs []error

	if percent, err := cpu.Percent(0, false); err != nil {
		errs = append(errs, fmt.Errorf("cpu: %w", err))
	} else if len(percent) > 0 {
		snap.CPUPercent = percent[0]
	}

	if vm, err := mem.VirtualMemory(); err != nil {
		errs = append(errs, fmt.Errorf("memory: %w", err))
	} else {
		snap.MemoryPercent = vm.UsedPercent
	}

	if avg, err := load.Avg(); err != nil {
		errs = append(errs, fmt.Errorf("load: %w", err))
	} else {
		snap.Load1 = avg.Load1
	}

	snap.TemperatureC = hottest(host.SensorsTemperatures())

	return snap, errors.Join(errs...)
}

// hottest picks the highest plausible cpu or soc temperature. Sensor errors
// are often only warnings next to valid readings, so they are ignored.
func hottest(sensors []host.TemperatureStat, _ error) (celsius float64) {
	for _, s := range sensors {
		key := strings.ToLower(s.SensorKey)
		if !strings.Contains(key, "cpu") && !strings.Contains(key, "soc") &&
			!strings.Contains(key, "core") && !strings.Contains(key, "package") {
			continue
		}
		if s.Temperature > celsius && s.Temperature < 150 {
			celsius = s.Temperature
		}
	}
	return celsius
}

var metricsOnce sync.Once

// InitializePrometheusMetrics registers gauges reading the host on every scrape.
func InitializePrometheusMetrics() {
	metricsOnce.Do(func() {
		promauto.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "pimine_host_cpu_percent",
			Help: "host cpu utilization since the previous reading",
		}, func() float64 {
			percent, err := cpu.Percent(0, false)
			if err != nil || len(percent) == 0 {
				return 0
			}
			return percent[0]
		})

		promauto.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "pimine_host_memory_percent",
			Help: "host memory in use",
		}, func() float64 {
			vm, err := mem.VirtualMemory()
			if err != nil {
				return 0
			}
			return vm.UsedPercent
		})

		promauto.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "pimine_host_temperature_celsius",
			Help: "hottest cpu/soc temperature sensor, 0 if unavailable",
		}, func() float64 {
			return hottest(host.SensorsTemperatures())
		})
	})
}
