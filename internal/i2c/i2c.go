// Package i2c provides a Linux i2c-dev bus usable by tinygo drivers.
// Bus satisfies tinygo.org/x/drivers.I2C.
package i2c

import "tinygo.org/x/drivers"

// DefaultDevice is the i2c-dev node the expander and display share.
const DefaultDevice = "/dev/i2c-1"

var _ drivers.I2C = (*Bus)(nil)
