package config

import (
	"fmt"
	"os"
	"regexp"
	"slices"
	"sort"
	"strings"
)

var envRefPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvStrict expands $VAR and ${VAR} in s. A ${VAR} naming an unset
// variable is an error rather than an empty string, and $$ is a literal $.
func expandEnvStrict(s string) (string, error) {
	const dollar = "\x00TRAILCTL_DOLLAR\x00"
	s = strings.ReplaceAll(s, "$$", dollar)

	var missing []string
	for _, m := range envRefPattern.FindAllStringSubmatch(s, -1) {
		if _, ok := os.LookupEnv(m[1]); !ok && !slices.Contains(missing, m[1]) {
			missing = append(missing, m[1])
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return "", fmt.Errorf("missing environment variables: %s", strings.Join(missing, ", "))
	}

	return strings.ReplaceAll(os.ExpandEnv(s), dollar, "$"), nil
}

// expandPaths expands environment references in file system paths.
func (c *Config) expandPaths() error {
	for name, p := range map[string]*string{
		"cache.path":   &c.Cache.Path,
		"wiki.fixture": &c.Wiki.Fixture,
	} {
		expanded, err := expandEnvStrict(*p)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*p = expanded
	}
	return nil
}
