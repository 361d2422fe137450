package source

import (
	"encoding/json"
	"fmt"
	"os"
)

// ReadFile loads a JSON array of raw entries. Failing to open or decode the
// file is a setup error and aborts the run; per-entry problems surface later
// during parsing.
func ReadFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open source file: %w", err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to read source file: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return nil, fmt.Errorf("source file %s is not a JSON array", path)
	}

	var entries []Entry
	for dec.More() {
		var entry Entry
		if err := dec.Decode(&entry); err != nil {
			return nil, fmt.Errorf("failed to decode entry %d: %w", len(entries), err)
		}
		entries = append(entries, entry)
	}

	return entries, nil
}
