package main

import (
	"net/http"
	"strings"

	"github.com/vipnode/junior/jsonrpc2"
	"github.com/vipnode/junior/jsonrpc2/ws"
)

// server answers JSONRPC over HTTP POST and over websocket upgrades of GET
// requests on the same endpoint.
type server struct {
	jsonrpc2.HTTPServer
	ws     ws.Upgrader // nil disables websockets
	header http.Header
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	for k, values := range s.header {
		for _, v := range values {
			w.Header().Set(k, v)
		}
	}

	if r.Method != http.MethodGet || s.ws == nil {
		s.HTTPServer.ServeHTTP(w, r)
		return
	}
	if !strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		http.Error(w, "incorrect jsonrpc api handshake", http.StatusBadRequest)
		return
	}
	ws.Handler(&s.HTTPServer.Server, s.ws)(w, r)
}
