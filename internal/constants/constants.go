// Package constants defines shared path and environment variable names
// used by internal/config.
package constants

var (
	// ConfigFile is the config file name inside DefaultDir.
	ConfigFile = "config.yaml"

	// DefaultDir is the dotfile directory under the user's home
	// directory.
	DefaultDir = ".ilosentinel"

	// ConfigEnvVar replaces the user's home directory as the directory
	// under which DefaultDir and ConfigFile are looked up.
	ConfigEnvVar = "ILOSENTINEL_CONFIG"
)
