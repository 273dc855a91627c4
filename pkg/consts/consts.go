package consts

const (
	// ConfigFile is the project configuration file stevedore looks for in
	// the working directory.
	ConfigFile = "stevedore.yaml"

	// DefaultURL is the connection string used when none is configured.
	DefaultURL = "localhost:9000"

	// DefaultNamespace is the namespace used for unqualified source and
	// destination table names.
	DefaultNamespace = "default"

	// DefaultWidenThreshold is the byte length above which fixed-width text
	// columns are widened to a variable-width type. Thresholds below this
	// are accepted with a size warning.
	DefaultWidenThreshold = 16
)
