// Package files provides the small set of filesystem helpers needed before
// a Run's Path Guard exists (wordlist/scope file reading, run-root bootstrap).
// Everything written inside a Run's artifact directory goes through
// pkg/artifacts instead.
package files

import (
	"bufio"
	"fmt"
	"log"
	"os"
)

// FileLinesToSlice reads path line by line, trimming the trailing newline.
func FileLinesToSlice(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	var result []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		result = append(result, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", path, err)
	}
	return result, nil
}

// CountLines counts lines in path without holding the whole file in memory,
// used to surface a wordlist size estimate in wordlist_enum's start log line.
func CountLines(path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	n := 0
	for scanner.Scan() {
		n++
	}
	return n, scanner.Err()
}

// CreateDir makes dirPath (and parents) if it doesn't already exist.
func CreateDir(dirPath string) error {
	if _, err := os.Stat(dirPath); os.IsNotExist(err) {
		if err := os.MkdirAll(dirPath, 0o755); err != nil {
			return err
		}
		log.Printf("directory created: %s", dirPath)
	}
	return nil
}
