// Copyright ©2024 The Bribbon Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ribbon

import (
	"bufio"
	"os"
	"strconv"
)

// WriteWidths writes one width per line, in row order.
func WriteWidths(path string, widths []int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, width := range widths {
		if _, err := w.WriteString(strconv.Itoa(width)); err != nil {
			return err
		}
		if err := w.WriteByte('\n'); err != nil {
			return err
		}
	}
	return w.Flush()
}
