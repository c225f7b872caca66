package commands

import (
	"fmt"
	"io"
	"sync"
)

// terminalNavigator stands in for page navigation: the current path is
// derived from the running command and a redirect becomes a hint on stderr.
type terminalNavigator struct {
	mu        sync.Mutex
	w         io.Writer
	path      string
	redirects []string
}

func newTerminalNavigator(w io.Writer, path string) *terminalNavigator {
	return &terminalNavigator{w: w, path: path}
}

func (n *terminalNavigator) CurrentPath() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.path
}

func (n *terminalNavigator) Redirect(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.redirects = append(n.redirects, path)
	n.path = path
	fmt.Fprintf(n.w, "→ signed out (%s): run `helpdesk login` to continue\n", path)
}

func (n *terminalNavigator) Redirected() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.redirects) > 0
}
