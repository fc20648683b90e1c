/*
	Package jsonrpc2 implements both sides of JSONRPC 2.0 over a request/response
	transport.

	Server is an RPC method registry and dispatcher. Given a receiver, it will
	expose its exported methods as callable RPC methods. ServeJSON takes a raw
	request body (a single call, a notification, or a batch) and returns the
	raw response body, or nil when nothing should be sent back.

	Client is an RPC caller implementation. It builds requests with
	monotonically increasing IDs, hands the encoded payload to a Transport, and
	correlates the responses back to the requests by ID, including batches
	whose responses arrive in any order.

	Transport is the narrow collaborator that moves bytes. HTTPTransport posts
	payloads to an HTTP endpoint served by HTTPServer, LocalTransport calls a
	Server in-process, and the ws subpackage carries payloads over websockets.

	Protocol errors (parse failures, invalid requests, unknown methods, and
	errors raised by the called method) always travel back as error responses.
	Failures that happen before an envelope exists, such as an unreadable body
	or a response that can't be correlated, are returned as Go errors to the
	immediate caller instead.
*/
package jsonrpc2
