package treecrypt

import (
	"os"
	"strings"

	"github.com/sabhiram/go-gitignore"

	"github.com/cryptopuck/cryptopuck/internal/exitcodes"
)

// prepareExcluder compiles the exclusion patterns. It returns nil when there
// is nothing to exclude.
func prepareExcluder(args EncryptArgs) (*ignore.GitIgnore, error) {
	patterns, err := getExclusionPatterns(args)
	if err != nil {
		return nil, err
	}
	if len(patterns) == 0 {
		return nil, nil
	}
	return ignore.CompileIgnoreLines(patterns...), nil
}

// getExclusionPatterns collects the patterns from --exclude and the lines
// of every --exclude-from file.
func getExclusionPatterns(args EncryptArgs) ([]string, error) {
	patterns := make([]string, len(args.Exclude))
	copy(patterns, args.Exclude)
	for _, file := range args.ExcludeFrom {
		lines, err := getLines(file)
		if err != nil {
			return nil, exitcodes.Errorf(exitcodes.ExcludeError,
				"Error reading exclusion patterns: %v", err)
		}
		patterns = append(patterns, lines...)
	}
	return patterns, nil
}

// getLines reads a file and splits it into lines
func getLines(file string) ([]string, error) {
	buffer, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	return strings.Split(string(buffer), "\n"), nil
}

func excluded(excl *ignore.GitIgnore, rel string) bool {
	return excl != nil && excl.MatchesPath(rel)
}
