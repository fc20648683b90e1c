package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/alexcesaro/log"
	"github.com/alexcesaro/log/golog"
	flags "github.com/jessevdk/go-flags"
	"github.com/vipnode/junior/jsonrpc2"
	"github.com/vipnode/junior/jsonrpc2/ws"
	"github.com/vipnode/junior/kv"
	"github.com/vipnode/junior/kv/store/badger"
)

// Version of the binary, assigned during build.
var Version string = "dev"

// Options contains the flag options
type Options struct {
	Verbose []bool `short:"v" long:"verbose" description:"Show verbose logging."`
	Version bool   `long:"version" description:"Print version and exit."`

	Serve struct {
		Bind          string  `long:"bind" description:"Address and port to listen on." default:"127.0.0.1:8080"`
		Store         string  `long:"store" description:"Storage driver. (badger|memory)" default:"memory"`
		DataDir       string  `long:"datadir" description:"Path for storing the persistent database. (Default: $XDG_DATA_HOME/vipnode/junior)"`
		TLSHost       string  `long:"tlshost" description:"Acquire an ACME TLS cert for this host (forces bind to :443)."`
		AllowOrigin   string  `long:"allow-origin" description:"Include Access-Control-Allow-Origin header for CORS."`
		RateLimit     float64 `long:"ratelimit" description:"HTTP requests per second to allow. (0 is unlimited)"`
		Burst         int     `long:"burst" description:"HTTP request burst size when rate limited." default:"10"`
		MaxContent    int64   `long:"maxcontent" description:"Maximum request body size in bytes. (0 is unlimited)" default:"1048576"`
		Concurrency   int     `long:"concurrency" description:"Batch elements to dispatch at once." default:"1"`
		Websocket     string  `long:"websocket" description:"Websocket implementation for GET upgrades." choice:"gorilla" choice:"gobwas" choice:"off" default:"gorilla"`
		NoContentType bool    `long:"no-content-type" description:"Don't set the JSON content type on HTTP responses."`
	} `command:"serve" description:"Serve the key-value service over JSONRPC."`

	Call struct {
		Endpoint string        `long:"endpoint" description:"http(s):// or ws(s):// URL of the JSONRPC server." default:"http://127.0.0.1:8080/"`
		Notify   bool          `long:"notify" description:"Send as a notification and don't wait for a result."`
		Named    bool          `long:"named" description:"Send params as a single JSON object of named params."`
		Timeout  time.Duration `long:"timeout" description:"Time to wait for a response." default:"5s"`
		Args     struct {
			Method string   `positional-arg-name:"method" description:"Method to call, such as kv_get." required:"yes"`
			Params []string `positional-arg-name:"params" description:"Params as JSON values. Anything that isn't valid JSON is sent as a string."`
		} `positional-args:"yes"`
	} `command:"call" description:"Call a method on a JSONRPC server."`
}

const callUsage = `Examples:
* Store a value:
  $ junior call kv_set --named '{"key": "foo", "value": [1, 2, 3]}'

* Get it back over websockets:
  $ junior call --endpoint ws://127.0.0.1:8080/ kv_get foo
`

var logLevels = []log.Level{
	log.Warning,
	log.Info,
	log.Debug,
}

func subcommand(cmd string, options Options) error {
	switch cmd {
	case "serve":
		return runServe(options)
	case "call":
		return runCall(options, os.Stdout)
	}
	return fmt.Errorf("unknown command: %q", cmd)
}

func main() {
	options := Options{}
	parser := flags.NewParser(&options, flags.Default)
	parser.SubcommandsOptional = true
	p, err := parser.Parse()
	if err != nil {
		if p == nil {
			fmt.Println(err)
		}
		if flagErr, ok := err.(*flags.Error); ok && flagErr.Type == flags.ErrHelp && parser.Active != nil {
			// Print additional usage help when run with --help
			switch parser.Active.Name {
			case "call":
				exit(0, callUsage)
			}
		}
		return
	}

	if options.Version {
		fmt.Println(Version)
		os.Exit(0)
	}

	if parser.Active == nil {
		parser.WriteHelp(os.Stderr)
		os.Exit(1)
	}

	// Figure out the log level
	numVerbose := len(options.Verbose)
	if numVerbose >= len(logLevels) {
		numVerbose = len(logLevels) - 1
	}

	logLevel := logLevels[numVerbose]
	logWriter := os.Stderr

	SetLogger(golog.New(logWriter, logLevel))
	if logLevel == log.Debug {
		// Enable logging from subpackages
		jsonrpc2.SetLogger(logWriter)
		ws.SetLogger(logWriter)
		kv.SetLogger(logWriter)
		badger.SetLogger(logWriter)
	}

	cmd := parser.Active.Name
	err = subcommand(cmd, options)
	if err == nil {
		return
	}

	if err == io.EOF {
		exit(3, "Connection closed.\n")
	}
	exit(2, "%s failed: %s\n", cmd, explain(err))
}

// explain wraps err in an ErrExplain suited to its type, unless it already
// has one.
func explain(err error) error {
	var explained ErrExplain
	if errors.As(err, &explained) {
		return err
	}

	var netErr net.Error
	var rpcErr interface{ ErrorCode() int }
	var mismatch jsonrpc2.IDMismatchError
	var batchErr jsonrpc2.BatchSizeError
	var httpErr jsonrpc2.HTTPRequestError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ErrExplain{err, `Timed out waiting for a response. Use --timeout to wait longer.`}
	case errors.As(err, &rpcErr):
		switch rpcErr.ErrorCode() {
		case jsonrpc2.ErrCodeMethodNotFound:
			return ErrExplain{err, `The server does not have this method. Method names are case sensitive, such as kv_get.`}
		case jsonrpc2.ErrCodeInvalidParams, jsonrpc2.ErrCodeException:
			return ErrExplain{err, `The method rejected the params. Check their number and types.`}
		case kv.ErrCodeNotFound:
			return ErrExplain{err, `The key does not exist. Use kv_keys to list stored keys.`}
		}
		return ErrExplain{err, fmt.Sprintf(`Unexpected RPC error occurred: %T (code %d).`, rpcErr, rpcErr.ErrorCode())}
	case errors.As(err, &mismatch), errors.As(err, &batchErr):
		return ErrExplain{err, `The server response does not correspond to the request. Is the endpoint a JSONRPC 2.0 server?`}
	case errors.As(err, &httpErr):
		return ErrExplain{err, `The server rejected the HTTP request.`}
	case errors.As(err, &netErr):
		return ErrExplain{err, `Disconnected from server unexpectedly. Could be a connectivity issue or the server is down. Try again?`}
	}
	return ErrExplain{err, fmt.Sprintf(`Error type %T is missing an explanation. Please open an issue at https://github.com/vipnode/junior`, err)}
}

func exit(code int, format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format, args...)
	os.Exit(code)
}

// ErrExplain annotates an error with an explanation.
type ErrExplain struct {
	Cause       error
	Explanation string
}

func (err ErrExplain) Error() string {
	return fmt.Sprintf("%s\n -> %s", err.Cause, err.Explanation)
}

func (err ErrExplain) Unwrap() error {
	return err.Cause
}
