// Copyright ©2024 The Bribbon Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kernel

import "fmt"

func errMismatchedEnsembleSize(local, peer int) error {
	return fmt.Errorf("kernel: local slab has %d ensemble members, peer has %d", local, peer)
}
