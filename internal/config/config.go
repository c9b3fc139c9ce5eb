package config

import "os"

type Config struct {
	// EncryptionKey protects backup and archive artifacts when a
	// configuration enables encryption. Must be kept safe: losing it makes
	// encrypted artifacts unrecoverable.
	EncryptionKey string

	// AccessKey is the token the ops API expects in the X-Access-Token header.
	AccessKey string

	// Environment is recorded in backup job metadata.
	Environment string

	DatabasePath string
	DataDir      string
	ListenAddr   string

	// TablesFile optionally points to a YAML file listing the tracked tables
	// the dump layer is allowed to touch.
	TablesFile string
}

func New() Config {
	cfg := Config{
		EncryptionKey: os.Getenv("ENCRYPTION_KEY"),
		AccessKey:     os.Getenv("ACCESS_KEY"),
		Environment:   os.Getenv("ENVIRONMENT"),
		DatabasePath:  os.Getenv("DATABASE_PATH"),
		DataDir:       os.Getenv("DATA_DIR"),
		ListenAddr:    os.Getenv("LISTEN_ADDR"),
		TablesFile:    os.Getenv("TABLES_FILE"),
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "/var/dataguard/data"
	}
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = cfg.DataDir + "/dataguard.db"
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":3650"
	}
	return cfg
}
