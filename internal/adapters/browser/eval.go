package browser

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"
)

// DefaultScriptTimeout bounds one user script evaluation.
const DefaultScriptTimeout = 30 * time.Second

// evalUserScript runs a user-authored script in the page and returns its
// completion value. Unlike page.Eval this does not wrap the source in a
// function, so multi-statement scripts behave as they do in a browser
// console. Promises are awaited before returning.
func evalUserScript(page *rod.Page, script string, timeout time.Duration) (gson.JSON, error) {
	if timeout <= 0 {
		timeout = DefaultScriptTimeout
	}

	res, err := proto.RuntimeEvaluate{
		Expression:    script,
		ReturnByValue: true,
		AwaitPromise:  true,
	}.Call(page.Timeout(timeout))
	if err != nil {
		return gson.New(nil), fmt.Errorf("script evaluation failed: %w", err)
	}
	if res.ExceptionDetails != nil {
		return gson.New(nil), fmt.Errorf("script threw: %s", exceptionText(res.ExceptionDetails))
	}
	if res.Result == nil {
		return gson.New(nil), nil
	}
	return res.Result.Value, nil
}

// exceptionText extracts a one-line message from a thrown value. The
// description's first line carries "Name: message"; the rest is stack.
func exceptionText(d *proto.RuntimeExceptionDetails) string {
	if d.Exception != nil && d.Exception.Description != "" {
		desc := d.Exception.Description
		if i := strings.IndexByte(desc, '\n'); i > 0 {
			desc = desc[:i]
		}
		return desc
	}
	if d.Text != "" {
		return d.Text
	}
	return "unknown script exception"
}

// evalTestScript runs a test script and interprets its completion value
// as {passed, message}. An exception or a malformed result counts as a
// failed test, not an execution error.
func evalTestScript(page *rod.Page, script string, timeout time.Duration) (bool, string) {
	res, err := evalUserScript(page, script, timeout)
	if err != nil {
		return false, err.Error()
	}
	passed, ok := res.Get("passed").Val().(bool)
	if !ok {
		return false, "test script must produce {passed: boolean, message: string}"
	}
	message, _ := res.Get("message").Val().(string)
	return passed, message
}
