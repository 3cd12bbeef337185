// Package sitelist loads newline-delimited site list files.
package sitelist

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Load reads a site list file: one URL per line, blank lines and lines
// beginning with '#' are ignored, bare hosts get an https scheme.
func Load(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open site list: %w", err)
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, Normalize(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read site list: %w", err)
	}
	return urls, nil
}

// Normalize defaults bare hosts to https.
func Normalize(raw string) string {
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw
	}
	return "https://" + raw
}
