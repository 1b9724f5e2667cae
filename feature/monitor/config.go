package monitor

import "time"

// Config holds the settings of a monitoring run.
type Config struct {
	// Roots are the directories walked on every run.
	Roots []string `mapstructure:"roots" default:"/bin,/sbin,/usr/bin,/usr/sbin,/boot,/var/log"`
	// Exclude lists base-name globs or absolute path prefixes to skip.
	Exclude []string `mapstructure:"exclude" default:""`
	// Baseline is the path of the baseline file.
	Baseline string `mapstructure:"baseline" default:"/var/lib/integrity-monitor/baseline.csv"`
	// Algorithm is the digest algorithm (md5, sha1, sha224, sha256, sha384, sha512).
	Algorithm string `mapstructure:"algorithm" default:"sha256"`
	// Workers is the size of each stage pool (0 = number of CPUs).
	Workers int `mapstructure:"workers" default:"0"`
	// BatchSize is the number of files per hash and verify task.
	BatchSize int `mapstructure:"batch_size" default:"200"`
	// BufferSize is the read buffer used while hashing.
	BufferSize int `mapstructure:"buffer_size" default:"65536"`
	// StageTimeout bounds each stage (0 = no limit).
	StageTimeout time.Duration `mapstructure:"stage_timeout" default:"0s"`
	// StrictMembership counts added and removed files as changes.
	StrictMembership bool `mapstructure:"strict_membership" default:"false"`
	// IgnoreModTime compares digest and size only.
	IgnoreModTime bool `mapstructure:"ignore_mtime" default:"false"`
}
