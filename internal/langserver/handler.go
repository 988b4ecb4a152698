package langserver

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
)

// Server-to-client methods the Tailwind language server sends.
const (
	methodWorkspaceConfiguration = "workspace/configuration"
	methodRegisterCapability     = "client/registerCapability"
	methodUnregisterCapability   = "client/unregisterCapability"
	methodWorkDoneProgressCreate = "window/workDoneProgress/create"
	methodShowMessageRequest     = "window/showMessageRequest"
	methodLogMessage             = "window/logMessage"
	methodShowMessage            = "window/showMessage"
)

type configurationItem struct {
	ScopeURI string `json:"scopeUri,omitempty"`
	Section  string `json:"section,omitempty"`
}

type configurationParams struct {
	Items []configurationItem `json:"items"`
}

type logMessageParams struct {
	Type    int    `json:"type"`
	Message string `json:"message"`
}

// handle dispatches server-to-client messages.
func (c *Client) handle(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	c.logger.WithField("method", req.Method()).Trace("lsp: server message")

	switch req.Method() {
	case protocol.MethodTextDocumentPublishDiagnostics:
		var params publishDiagnosticsParams
		if err := json.Unmarshal(req.Params(), &params); err != nil {
			c.logger.WithError(err).Debug("lsp: malformed publishDiagnostics")
			return reply(ctx, nil, nil)
		}
		if !c.hub.publish(params) {
			c.logger.WithField("uri", params.URI).Trace("lsp: unrequested diagnostics dropped")
		}
		return reply(ctx, nil, nil)

	case methodWorkspaceConfiguration:
		var params configurationParams
		if err := json.Unmarshal(req.Params(), &params); err != nil {
			return reply(ctx, nil, jsonrpc2.Errorf(jsonrpc2.ParseError, "invalid params: %v", err))
		}
		return reply(ctx, c.configuration(params), nil)

	case methodRegisterCapability,
		methodUnregisterCapability,
		methodWorkDoneProgressCreate,
		methodShowMessageRequest:
		return reply(ctx, nil, nil)

	case methodLogMessage, methodShowMessage:
		var params logMessageParams
		if err := json.Unmarshal(req.Params(), &params); err == nil {
			c.logServerMessage(params)
		}
		return reply(ctx, nil, nil)

	default:
		if _, isCall := req.(*jsonrpc2.Call); isCall {
			return jsonrpc2.MethodNotFoundHandler(ctx, reply, req)
		}
		return reply(ctx, nil, nil)
	}
}

// configuration answers workspace/configuration with one value per item.
func (c *Client) configuration(params configurationParams) []any {
	result := make([]any, len(params.Items))
	for i, item := range params.Items {
		result[i] = c.state.Section(item.Section)
	}
	return result
}

func (c *Client) logServerMessage(params logMessageParams) {
	entry := c.logger.WithField("server", c.serverName)
	switch params.Type {
	case 1:
		entry.Error(params.Message)
	case 2:
		entry.Warn(params.Message)
	case 3:
		entry.Debug(params.Message)
	default:
		entry.Log(logrus.TraceLevel, params.Message)
	}
}
