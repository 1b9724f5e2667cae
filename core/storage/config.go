package storage

// Config holds configuration for the baseline mirror bucket.
type Config struct {
	// Enabled turns mirroring of accepted baselines on.
	Enabled bool `mapstructure:"enabled" default:"false"`
	// Endpoint is the URL of the storage service.
	Endpoint string `mapstructure:"endpoint" default:"localhost:9000"`
	// AccessKey is the access key ID for authentication.
	AccessKey string `mapstructure:"access_key" default:"minioadmin"`
	// SecretKey is the secret access key for authentication.
	SecretKey string `mapstructure:"secret_key" default:"minioadmin"`
	// UseSSL indicates whether to use SSL/TLS for connections.
	UseSSL bool `mapstructure:"use_ssl" default:"false"`
	// Bucket is the name of the bucket baselines are mirrored to.
	Bucket string `mapstructure:"bucket" default:"integrity-baselines"`
	// Region is the location of the bucket (e.g., us-east-1).
	Region string `mapstructure:"region" default:""`
	// Prefix is prepended to every mirrored object name.
	Prefix string `mapstructure:"prefix" default:"baselines/"`
	// Keep is the number of mirrored baselines retained (0 = all).
	Keep int `mapstructure:"keep" default:"10"`
	// TimeoutSeconds is the connection timeout in seconds.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
}
