package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"splitledger/pkg/logger"
)

const dotenvFilename = ".env"

type envVar struct {
	key   string
	value string
}

// loadDotEnv exports the nearest .env file, walking up from the working
// directory. Variables already present in the environment are kept.
func loadDotEnv(log logger.Logger) error {
	path, err := findUp(dotenvFilename)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	vars, err := readDotEnv(file)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	loaded, skipped, err := exportEnv(vars)
	if err != nil {
		return err
	}
	log.Info("config: dotenv loaded", "path", path, "loaded", loaded, "skipped", skipped)
	return nil
}

func findUp(filename string) (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(dir, filename)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", os.ErrNotExist
		}
		dir = parent
	}
}

// readDotEnv parses KEY=VALUE lines. Blank lines, comments and an optional
// "export " prefix are accepted; anything else without "=" is an error.
func readDotEnv(r io.Reader) ([]envVar, error) {
	var vars []envVar
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))

		key, raw, ok := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("line %d: expected KEY=VALUE", lineNo)
		}
		vars = append(vars, envVar{key: key, value: dotenvValue(strings.TrimSpace(raw))})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return vars, nil
}

func dotenvValue(raw string) string {
	if len(raw) >= 2 && raw[0] == raw[len(raw)-1] {
		switch raw[0] {
		case '"':
			if unquoted, err := strconv.Unquote(raw); err == nil {
				return unquoted
			}
			return raw[1 : len(raw)-1]
		case '\'':
			return raw[1 : len(raw)-1]
		}
	}
	// "a # b" drops the comment, "a#b" keeps it.
	if i := strings.Index(raw, " #"); i >= 0 {
		return strings.TrimSpace(raw[:i])
	}
	if i := strings.Index(raw, "\t#"); i >= 0 {
		return strings.TrimSpace(raw[:i])
	}
	return raw
}

func exportEnv(vars []envVar) (loaded, skipped int, err error) {
	for _, v := range vars {
		if _, exists := os.LookupEnv(v.key); exists {
			skipped++
			continue
		}
		if err := os.Setenv(v.key, v.value); err != nil {
			return loaded, skipped, err
		}
		loaded++
	}
	return loaded, skipped, nil
}
