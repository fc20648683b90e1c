package badger

import (
	"io"
	"io/ioutil"

	"github.com/alexcesaro/log"
	"github.com/alexcesaro/log/golog"
)

var logger *golog.Logger

// SetLogger overrides the logger output for this package, including Badger's
// own log output.
func SetLogger(w io.Writer) {
	logger = golog.New(w, log.Warning)
}

func init() {
	SetLogger(ioutil.Discard)
}
