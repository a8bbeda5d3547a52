package spatial

import "github.com/sirupsen/logrus"

var log = logrus.WithField("module", "spatial")
