package kleinanzeigen

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-resty/resty/v2"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// DefaultDebuggerURL is where Chrome listens when started with
// --remote-debugging-port=9222.
const DefaultDebuggerURL = "http://localhost:9222"

// CDPClient is a minimal Chrome DevTools Protocol client. It attaches to a
// page target of an already-running browser; it never launches one.
type CDPClient struct {
	conn *websocket.Conn

	mu     sync.Mutex
	nextID int64
}

type cdpTarget struct {
	Type                 string `json:"type"`
	URL                  string `json:"url"`
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

type cdpMessage struct {
	ID     int64           `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *cdpError       `json:"error,omitempty"`
}

type cdpError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ConnectBrowser discovers the first page target of the debugger at baseURL
// and attaches to it over a websocket.
func ConnectBrowser(ctx context.Context, baseURL string) (*CDPClient, error) {
	httpClient := resty.New().SetBaseURL(baseURL)

	var targets []cdpTarget
	res, err := httpClient.NewRequest().
		SetContext(ctx).
		SetResult(&targets).
		Get("/json/list")
	if err != nil {
		return nil, fmt.Errorf("failed to reach browser debugger at %s (is the browser running with --remote-debugging-port?): %w", baseURL, err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("browser debugger returned status %d", res.StatusCode())
	}

	var page *cdpTarget
	for i := range targets {
		if targets[i].Type == "page" && targets[i].WebSocketDebuggerURL != "" {
			page = &targets[i]
			break
		}
	}
	if page == nil {
		return nil, fmt.Errorf("no page target found at %s", baseURL)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, page.WebSocketDebuggerURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to attach to page target: %w", err)
	}

	log.Info().Str("url", page.URL).Msg("attached to browser page")
	return &CDPClient{conn: conn}, nil
}

// Call sends a CDP command and waits for its response, discarding any
// protocol events that arrive in between. Commands are serialized; the
// pipeline drives the browser strictly sequentially.
func (c *CDPClient) Call(ctx context.Context, method string, params any, result any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	id := c.nextID

	msg := map[string]any{"id": id, "method": method}
	if params != nil {
		msg["params"] = params
	}
	if deadline, ok := ctx.Deadline(); ok {
		c.conn.SetReadDeadline(deadline)
		c.conn.SetWriteDeadline(deadline)
	}
	if err := c.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("cdp write failed (%s): %w", method, err)
	}

	for {
		var reply cdpMessage
		if err := c.conn.ReadJSON(&reply); err != nil {
			return fmt.Errorf("cdp read failed (%s): %w", method, err)
		}
		if reply.ID != id {
			// Event or stale response, not ours.
			continue
		}
		if reply.Error != nil {
			return fmt.Errorf("cdp command %s failed: %s", method, reply.Error.Message)
		}
		if result != nil && reply.Result != nil {
			if err := json.Unmarshal(reply.Result, result); err != nil {
				return fmt.Errorf("failed to decode cdp result for %s: %w", method, err)
			}
		}
		return nil
	}
}

// Evaluate runs a JavaScript expression in the page and unmarshals its
// by-value result into out (pass nil to ignore the result).
func (c *CDPClient) Evaluate(ctx context.Context, expression string, out any) error {
	var result struct {
		Result struct {
			Type  string          `json:"type"`
			Value json.RawMessage `json:"value"`
		} `json:"result"`
		ExceptionDetails *struct {
			Text string `json:"text"`
		} `json:"exceptionDetails"`
	}
	params := map[string]any{
		"expression":    expression,
		"returnByValue": true,
	}
	if err := c.Call(ctx, "Runtime.evaluate", params, &result); err != nil {
		return err
	}
	if result.ExceptionDetails != nil {
		return fmt.Errorf("page script failed: %s", result.ExceptionDetails.Text)
	}
	if out != nil && result.Result.Value != nil {
		if err := json.Unmarshal(result.Result.Value, out); err != nil {
			return fmt.Errorf("failed to decode script result: %w", err)
		}
	}
	return nil
}

// Navigate loads url in the attached page.
func (c *CDPClient) Navigate(ctx context.Context, url string) error {
	var result struct {
		ErrorText string `json:"errorText"`
	}
	if err := c.Call(ctx, "Page.navigate", map[string]any{"url": url}, &result); err != nil {
		return err
	}
	if result.ErrorText != "" {
		return fmt.Errorf("navigation to %s failed: %s", url, result.ErrorText)
	}
	return nil
}

// SetFileInput attaches local files to the first element matching selector.
func (c *CDPClient) SetFileInput(ctx context.Context, selector string, files []string) error {
	var doc struct {
		Root struct {
			NodeID int `json:"nodeId"`
		} `json:"root"`
	}
	if err := c.Call(ctx, "DOM.getDocument", nil, &doc); err != nil {
		return err
	}

	var node struct {
		NodeID int `json:"nodeId"`
	}
	params := map[string]any{"nodeId": doc.Root.NodeID, "selector": selector}
	if err := c.Call(ctx, "DOM.querySelector", params, &node); err != nil {
		return err
	}
	if node.NodeID == 0 {
		return fmt.Errorf("no element matches selector %q", selector)
	}

	return c.Call(ctx, "DOM.setFileInputFiles", map[string]any{
		"files":  files,
		"nodeId": node.NodeID,
	}, nil)
}

// Close detaches from the page target.
func (c *CDPClient) Close() error {
	return c.conn.Close()
}
