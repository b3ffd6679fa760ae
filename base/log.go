package base

import (
	"github.com/sirupsen/logrus"
)

// Logger is shared by every package in this module; cmd configures the
// formatter, level and output once at startup.
var Logger = logrus.New()

const (
	TimestampFormat = "2006-01-02T15:04:05.000000Z08:00"
)
