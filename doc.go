// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package thermo is a container for LM75 family temperature sensor drivers
// built on periph.io.
//
// The drivers live in subpackages, e.g. gx21m15. Shared fixed point helpers
// are in common.
package thermo
