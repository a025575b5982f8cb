package browser

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/snapwatch/worker/internal/domain/models"
	"github.com/snapwatch/worker/internal/ports"
)

// maxCollectedErrors caps each error kind per viewport so noisy pages
// cannot grow memory without bound.
const maxCollectedErrors = 100

type jsErrorEvent struct {
	message string
	source  string
}

type networkErrorEvent struct {
	url          string
	method       string
	resourceType string
	statusText   string
}

type requestInfo struct {
	url    string
	method string
}

// eventCollector accumulates console errors, uncaught exceptions and
// failed network requests while a viewport is being captured. Requests
// are tracked by id so failures can be reported with URL and method.
type eventCollector struct {
	mu       sync.Mutex
	js       []jsErrorEvent
	network  []networkErrorEvent
	requests map[proto.NetworkRequestID]requestInfo
}

func newEventCollector() *eventCollector {
	return &eventCollector{requests: make(map[proto.NetworkRequestID]requestInfo)}
}

// attach subscribes to the page's events. Collection stops when the
// page closes.
func (c *eventCollector) attach(page *rod.Page) {
	go page.EachEvent(
		func(e *proto.RuntimeConsoleAPICalled) {
			if e.Type != proto.RuntimeConsoleAPICalledTypeError {
				return
			}
			c.addJS(consoleText(e.Args), "console")
		},
		func(e *proto.RuntimeExceptionThrown) {
			c.addJS(exceptionText(e.ExceptionDetails), exceptionSource(e.ExceptionDetails))
		},
		func(e *proto.NetworkRequestWillBeSent) {
			c.mu.Lock()
			c.requests[e.RequestID] = requestInfo{url: e.Request.URL, method: e.Request.Method}
			c.mu.Unlock()
		},
		func(e *proto.NetworkLoadingFailed) {
			if e.Canceled {
				return
			}
			c.addNetwork(e.RequestID, string(e.Type), e.ErrorText)
		},
		func(e *proto.NetworkResponseReceived) {
			if e.Response == nil || e.Response.Status < 400 {
				return
			}
			c.addNetwork(e.RequestID, string(e.Type), fmt.Sprintf("%d %s", e.Response.Status, e.Response.StatusText))
		},
	)()
}

func (c *eventCollector) addJS(message, source string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.js) >= maxCollectedErrors {
		return
	}
	c.js = append(c.js, jsErrorEvent{message: message, source: source})
}

func (c *eventCollector) addNetwork(id proto.NetworkRequestID, resourceType, statusText string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.network) >= maxCollectedErrors {
		return
	}
	req := c.requests[id]
	c.network = append(c.network, networkErrorEvent{
		url:          req.url,
		method:       req.method,
		resourceType: resourceType,
		statusText:   statusText,
	})
}

// collected materializes everything observed so far as error rows bound
// to the screenshot.
func (c *eventCollector) collected(ids ports.IDGenerator, screenshotID string) []*models.ScreenshotError {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]*models.ScreenshotError, 0, len(c.js)+len(c.network))
	for _, e := range c.js {
		out = append(out, models.NewJSError(ids.GenerateScreenshotErrorID(), screenshotID, e.message, e.source))
	}
	for _, e := range c.network {
		out = append(out, models.NewNetworkError(
			ids.GenerateScreenshotErrorID(), screenshotID, e.url, e.method, e.resourceType, e.statusText))
	}
	return out
}

func consoleText(args []*proto.RuntimeRemoteObject) string {
	var parts []string
	for _, arg := range args {
		if s := arg.Value.Str(); s != "" {
			parts = append(parts, s)
		} else if arg.Description != "" {
			parts = append(parts, arg.Description)
		}
	}
	if len(parts) == 0 {
		return "console.error"
	}
	return strings.Join(parts, " ")
}

func exceptionSource(d *proto.RuntimeExceptionDetails) string {
	if d == nil {
		return ""
	}
	if d.URL != "" {
		return fmt.Sprintf("%s:%d", d.URL, d.LineNumber)
	}
	return "exception"
}
