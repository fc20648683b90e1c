package main

import (
	"io/ioutil"

	"github.com/alexcesaro/log"
	"github.com/alexcesaro/log/golog"
)

var logger *golog.Logger

// SetLogger overrides the logger of the junior command. Subpackages have their
// own SetLogger.
func SetLogger(l *golog.Logger) {
	logger = l
}

func init() {
	SetLogger(golog.New(ioutil.Discard, log.Debug))
}
