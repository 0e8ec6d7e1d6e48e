// Copyright 2026 The Doula Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
)

// ReadFromPath loads a secret from a file, or from stdin when path is
// "-". Surrounding whitespace is trimmed (files created with echo end
// in a newline). The heap copies made while reading are zeroed before
// returning; the secret survives only in the protected buffer.
func ReadFromPath(path string) (*Buffer, error) {
	var data []byte

	if path == "-" {
		scanner := bufio.NewScanner(os.Stdin)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return nil, fmt.Errorf("reading stdin: %w", err)
			}
			return nil, fmt.Errorf("stdin is empty")
		}
		data = scanner.Bytes()
	} else {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, err
		}
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		Zero(data)
		return nil, fmt.Errorf("secret file %s is empty", path)
	}

	buffer, err := FromBytes(trimmed)
	// trimmed aliases data; zero the untrimmed remainder too.
	Zero(data)
	if err != nil {
		return nil, err
	}
	return buffer, nil
}
