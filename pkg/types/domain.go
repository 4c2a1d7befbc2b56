package types

// GPUInfo is a best-effort accelerator reading taken when status is requested.
type GPUInfo struct {
	// Device index as reported by the driver.
	// example: 0
	ID int `json:"id" example:"0"`
	// Marketing name of the device.
	// example: NVIDIA GeForce RTX 4090
	Name string `json:"name" example:"NVIDIA GeForce RTX 4090"`
	// Memory currently in use, in MB.
	// example: 5120
	MemoryUsedMB int `json:"memory_used_mb" example:"5120"`
	// Total device memory, in MB.
	// example: 24564
	MemoryTotalMB int `json:"memory_total_mb" example:"24564"`
	// Compute utilization in percent.
	// example: 12
	UtilizationPercent int `json:"utilization_percent" example:"12"`
	// Core temperature in degrees Celsius.
	// example: 48
	TemperatureC int `json:"temperature_c" example:"48"`
}

// Timestamp aligns a piece of recognized text with the audio.
type Timestamp struct {
	// example: hello
	Text string `json:"text" example:"hello"`
	// Start offset in seconds.
	// example: 0.12
	Start float64 `json:"start" example:"0.12"`
	// End offset in seconds.
	// example: 0.48
	End float64 `json:"end" example:"0.48"`
}
