package cmds

import (
	"budgie/internal/types"
	"os"
	"strconv"
)

const (
	PortKey        = "PORT"
	CatalogKey     = "CATALOG"
	CatalogFileKey = "CATALOG_FILE"
	ConfigsFileKey = "CONFIGS_FILE"
	LogLevelKey    = "LOG_LEVEL"
	LogFormatKey   = "LOG_FORMAT"
	EnvFileKey     = "ENV_FILE"

	DefaultPort = 8080
)

// LoadCatalog loads the catalog from the file if given, else from CATALOG (inline JSON or YAML),
// else from the file named by CATALOG_FILE.
func LoadCatalog(file string) (*types.Catalog, error) {
	if file == "" {
		if inline := os.Getenv(CatalogKey); inline != "" {
			return types.ParseCatalog([]byte(inline))
		}
		file = os.Getenv(CatalogFileKey)
	}
	if file == "" {
		return nil, types.Err(types.ErrInvalidCatalog, nil, "no catalog: set %s or %s", CatalogKey, CatalogFileKey)
	}
	b, err := os.ReadFile(file)
	if err != nil {
		return nil, types.Err(types.ErrInvalidCatalog, err, "read %s", file)
	}
	return types.ParseCatalog(b)
}

func envPort() int {
	p, err := strconv.Atoi(os.Getenv(PortKey))
	if err != nil || p <= 0 {
		return DefaultPort
	}
	return p
}

// getenv retrieves the value of the environment variable named by the key.
func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}
