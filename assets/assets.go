package assets

const (
	// ServiceName is used as tracer and logger identity.
	ServiceName = "presensi"

	// ServiceVersion bump this on every release.
	ServiceVersion = "1.0.0"
)
