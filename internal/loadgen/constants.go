package loadgen

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
	ProgressEvery           = 100
)

// Runner configuration constants.
const (
	PercentageMultiplier = 100
	directoryPermission  = 0o750
	filePermission       = 0o600
)
