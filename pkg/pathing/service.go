package pathing

import (
	"log"
	"os"
	"path/filepath"
)

// Ensure directories exist on startup
func init() {
	// Directories that must exist:
	dirs := []string{
		GetDataDir(),
	}

	// Create all directories
	for _, dir := range dirs {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			err := os.MkdirAll(dir, 0755)
			if err != nil {
				// Opening the database reports the failure later.
				log.Printf("Warning: could not create %s: %v", dir, err)
			}
		}
	}
}

func GetSpoolDbPath() string {
	// Join path
	return filepath.Join(GetDataDir(), "ec-spool.db")
}

func GetDataDir() string {
	if dir := os.Getenv("ENERGY_COLLECTORS_DATA_DIR"); dir != "" {
		return dir
	}
	return "/var/lib/energy_collectors"
}

func GetConfigDir() string {
	if dir := os.Getenv("ENERGY_COLLECTORS_CONFIG_DIR"); dir != "" {
		return dir
	}
	return "/etc/energy_collectors"
}
