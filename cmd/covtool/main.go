// Command covtool builds covariance matrices from YAML descriptions and runs
// the library operations on them from the command line.
package main

import (
	"github.com/sirupsen/logrus"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logrus.WithError(err).Fatal("covtool failed")
	}
}
